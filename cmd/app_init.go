package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadfunnel/internal/crm"
	"github.com/sells-group/leadfunnel/internal/db"
	"github.com/sells-group/leadfunnel/internal/store"
	"github.com/sells-group/leadfunnel/pkg/helpdesk"
	"github.com/sells-group/leadfunnel/pkg/nectar"
	sfpkg "github.com/sells-group/leadfunnel/pkg/salesforce"
)

// initHelpdesk builds a helpdesk client. An empty token means every call
// carries its own.
func initHelpdesk(token string) helpdesk.Client {
	return helpdesk.NewClient(cfg.Helpdesk.BaseURL, token,
		helpdesk.WithPathPrefix(cfg.Helpdesk.PathPrefix),
		helpdesk.WithTimeout(time.Duration(cfg.Helpdesk.TimeoutSecs)*time.Second),
	)
}

// initStore opens the sync-run store. Driver "none" returns a nil store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadfunnel.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &db.PoolConfig{})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initNectar() nectar.Client {
	return nectar.NewClient(cfg.Nectar.APIToken,
		nectar.WithBaseURL(cfg.Nectar.BaseURL),
		nectar.WithRateLimit(cfg.Nectar.RateLimit),
	)
}

func initSalesforce() (sfpkg.Client, error) {
	return sfpkg.Dial(sfpkg.JWTConfig{
		LoginURL: cfg.Salesforce.LoginURL,
		Username: cfg.Salesforce.Username,
		ClientID: cfg.Salesforce.ClientID,
		KeyPath:  cfg.Salesforce.KeyPath,
	}, sfpkg.WithRateLimit(cfg.Salesforce.RateLimit))
}

func nectarDefaults() crm.NectarDefaults {
	return crm.NectarDefaults{
		Pipeline: cfg.Nectar.DefaultPipeline,
		Stage:    cfg.Nectar.DefaultStage,
		Status:   cfg.Nectar.DefaultStatus,

		OwnerID:      cfg.Nectar.DefaultOwnerID,
		OwnerName:    cfg.Nectar.DefaultOwnerName,
		CustomFields: cfg.Nectar.CustomFields,
		DeadlineDays: cfg.Nectar.DeadlineDays,
	}
}

// initSink selects where qualified opportunities are created.
func initSink() (crm.OpportunitySink, error) {
	switch cfg.CRM.Provider {
	case "", "nectar":
		primary := crm.NewNectarSink(initNectar(), nectarDefaults())
		if !cfg.CRM.MirrorSalesforce {
			return primary, nil
		}
		sf, err := initSalesforce()
		if err != nil {
			return nil, eris.Wrap(err, "init salesforce mirror")
		}
		zap.L().Info("crm: mirroring opportunities to salesforce")
		return &crm.MirrorSink{
			Primary: primary,
			Mirror:  crm.NewSalesforceSink(sf, cfg.Salesforce.StageName),
		}, nil
	case "salesforce":
		sf, err := initSalesforce()
		if err != nil {
			return nil, eris.Wrap(err, "init salesforce")
		}
		return crm.NewSalesforceSink(sf, cfg.Salesforce.StageName), nil
	default:
		return nil, eris.Errorf("unsupported crm provider: %s", cfg.CRM.Provider)
	}
}
