package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadfunnel/internal/config"
	"github.com/sells-group/leadfunnel/internal/crm"
)

func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitStore_None(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "none"}})

	st, err := initStore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestInitStore_SQLite(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "runs.db"),
	}})

	st, err := initStore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close() //nolint:errcheck

	run, err := st.CreateRun(context.Background(), []string{"VENDAS"})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
}

func TestInitStore_UnsupportedDriver(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "mongo"}})

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestOpenRunStore_Disabled(t *testing.T) {
	withConfig(t, &config.Config{Store: config.StoreConfig{Driver: "none"}})

	_, err := openRunStore(runsListCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver is none")
}

func TestInitSink(t *testing.T) {
	tests := []struct {
		name    string
		crm     config.CRMConfig
		wantErr string
		check   func(t *testing.T, sink crm.OpportunitySink)
	}{
		{
			name: "nectar",
			crm:  config.CRMConfig{Provider: "nectar"},
			check: func(t *testing.T, sink crm.OpportunitySink) {
				assert.IsType(t, &crm.NectarSink{}, sink)
			},
		},
		{
			name: "default provider is nectar",
			crm:  config.CRMConfig{},
			check: func(t *testing.T, sink crm.OpportunitySink) {
				assert.IsType(t, &crm.NectarSink{}, sink)
			},
		},
		{name: "mirror without salesforce credentials", crm: config.CRMConfig{Provider: "nectar", MirrorSalesforce: true}, wantErr: "salesforce mirror"},
		{name: "salesforce without credentials", crm: config.CRMConfig{Provider: "salesforce"}, wantErr: "client id is required"},
		{name: "unknown provider", crm: config.CRMConfig{Provider: "hubspot"}, wantErr: "unsupported crm provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withConfig(t, &config.Config{
				CRM:    tt.crm,
				Nectar: config.NectarConfig{APIToken: "tok", BaseURL: "http://nectar.local"},
			})

			sink, err := initSink()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, sink)
		})
	}
}

func TestNectarDefaults(t *testing.T) {
	withConfig(t, &config.Config{Nectar: config.NectarConfig{
		DefaultPipeline: "Vendas", DefaultStage: 2, DefaultStatus: 0,
		DefaultOwnerID: 77, DefaultOwnerName: "Ana",
		CustomFields: map[string]any{"origem": "whatsapp"}, DeadlineDays: 5,
	}})

	d := nectarDefaults()
	assert.Equal(t, "Vendas", d.Pipeline)
	assert.Equal(t, 2, d.Stage)
	assert.Equal(t, 0, d.Status)
	assert.Equal(t, int64(77), d.OwnerID)
	assert.Equal(t, "Ana", d.OwnerName)
	assert.Equal(t, map[string]any{"origem": "whatsapp"}, d.CustomFields)
	assert.Equal(t, 5, d.DeadlineDays)
}
