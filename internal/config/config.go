package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/leadfunnel/internal/apperr"
	"github.com/sells-group/leadfunnel/internal/team"
)

// Config holds the full application configuration.
type Config struct {
	Helpdesk   HelpdeskConfig   `yaml:"helpdesk" mapstructure:"helpdesk"`
	Teams      []TeamConfig     `yaml:"teams" mapstructure:"teams"`
	SalesTeams []string         `yaml:"sales_teams" mapstructure:"sales_teams"`
	Nectar     NectarConfig     `yaml:"nectar" mapstructure:"nectar"`
	CRM        CRMConfig        `yaml:"crm" mapstructure:"crm"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Sync       SyncConfig       `yaml:"sync" mapstructure:"sync"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// HelpdeskConfig holds the conversation backend settings.
type HelpdeskConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	PathPrefix  string `yaml:"path_prefix" mapstructure:"path_prefix"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	AccountID   int64  `yaml:"account_id" mapstructure:"account_id"`
	RecipientID string `yaml:"recipient_id" mapstructure:"recipient_id"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// TeamConfig maps a team name to its two helpdesk identifiers.
type TeamConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	UUID string `yaml:"uuid" mapstructure:"uuid"`
	ID   int64  `yaml:"id" mapstructure:"id"`
}

// NectarConfig holds Nectar CRM settings.
type NectarConfig struct {
	APIToken        string  `yaml:"api_token" mapstructure:"api_token"`
	BaseURL         string  `yaml:"base_url" mapstructure:"base_url"`
	DefaultPipeline string  `yaml:"default_pipeline" mapstructure:"default_pipeline"`
	DefaultStage    int     `yaml:"default_stage" mapstructure:"default_stage"`
	DefaultStatus   int     `yaml:"default_status" mapstructure:"default_status"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`

	DefaultOwnerID   int64          `yaml:"default_owner_id" mapstructure:"default_owner_id"`
	DefaultOwnerName string         `yaml:"default_owner_name" mapstructure:"default_owner_name"`
	CustomFields     map[string]any `yaml:"custom_fields" mapstructure:"custom_fields"`
	DeadlineDays     int            `yaml:"deadline_days" mapstructure:"deadline_days"`
}

// CRMConfig selects where opportunities are created.
type CRMConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"`
	MirrorSalesforce bool   `yaml:"mirror_salesforce" mapstructure:"mirror_salesforce"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID  string  `yaml:"client_id" mapstructure:"client_id"`
	Username  string  `yaml:"username" mapstructure:"username"`
	KeyPath   string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL  string  `yaml:"login_url" mapstructure:"login_url"`
	StageName string  `yaml:"stage_name" mapstructure:"stage_name"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// SyncConfig configures the qualify-and-sync pipeline.
type SyncConfig struct {
	MaxConversationsPerTeam int `yaml:"max_conversations_per_team" mapstructure:"max_conversations_per_team"`
	MessagesPageSize        int `yaml:"messages_page_size" mapstructure:"messages_page_size"`
	Concurrency             int `yaml:"concurrency" mapstructure:"concurrency"`
}

// StoreConfig configures sync-run persistence. Driver "none" disables it.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	Debug       bool     `yaml:"debug" mapstructure:"debug"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADFUNNEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("helpdesk.base_url", "")
	v.SetDefault("helpdesk.access_token", "")
	v.SetDefault("helpdesk.account_id", 0)
	v.SetDefault("helpdesk.recipient_id", "")
	v.SetDefault("helpdesk.path_prefix", "/backend/v1")
	v.SetDefault("helpdesk.timeout_secs", 30)
	v.SetDefault("sales_teams", []string{})
	v.SetDefault("nectar.api_token", "")
	v.SetDefault("nectar.base_url", "https://app.nectarcrm.com.br/crm/api/1")
	v.SetDefault("nectar.default_pipeline", "")
	v.SetDefault("nectar.default_stage", 0)
	v.SetDefault("nectar.default_status", 0)
	v.SetDefault("nectar.rate_limit", 5.0)
	v.SetDefault("nectar.default_owner_id", 0)
	v.SetDefault("nectar.default_owner_name", "")
	v.SetDefault("nectar.deadline_days", 0)
	v.SetDefault("crm.provider", "nectar")
	v.SetDefault("crm.mirror_salesforce", false)
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.stage_name", "Prospecting")
	v.SetDefault("salesforce.rate_limit", 5.0)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("sync.max_conversations_per_team", 50)
	v.SetDefault("sync.messages_page_size", 20)
	v.SetDefault("sync.concurrency", 10)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.database_url", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the keys required by the given command mode are set.
// Known modes are "serve", "board", "sync" and "opportunities".
func (c *Config) Validate(mode string) error {
	var missing []string
	need := func(ok bool, key string) {
		if !ok {
			missing = append(missing, key+" is required")
		}
	}

	switch mode {
	case "serve":
		// helpdesk.base_url is checked per request so a misconfigured
		// server still answers /health.
		need(len(c.Teams) > 0, "teams")
	case "board":
		need(c.Helpdesk.BaseURL != "", "helpdesk.base_url")
		need(c.Helpdesk.AccessToken != "", "helpdesk.access_token")
		need(c.Helpdesk.AccountID != 0, "helpdesk.account_id")
		need(len(c.Teams) > 0, "teams")
	case "sync":
		need(c.Helpdesk.BaseURL != "", "helpdesk.base_url")
		need(c.Helpdesk.AccessToken != "", "helpdesk.access_token")
		need(c.Helpdesk.AccountID != 0, "helpdesk.account_id")
		need(c.Helpdesk.RecipientID != "", "helpdesk.recipient_id")
		need(len(c.Teams) > 0, "teams")
		need(c.Anthropic.Key != "", "anthropic.key")
		switch c.CRM.Provider {
		case "nectar", "":
			need(c.Nectar.APIToken != "", "nectar.api_token")
		case "salesforce":
			need(c.Salesforce.ClientID != "", "salesforce.client_id")
			need(c.Salesforce.KeyPath != "", "salesforce.key_path")
		default:
			return apperr.Configuration("config: unsupported crm.provider %q", c.CRM.Provider)
		}
		if c.CRM.MirrorSalesforce {
			need(c.Salesforce.ClientID != "", "salesforce.client_id")
			need(c.Salesforce.KeyPath != "", "salesforce.key_path")
		}
	case "opportunities":
		need(c.Nectar.APIToken != "", "nectar.api_token")
	default:
		return apperr.Configuration("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return apperr.Configuration("config: %s (mode %s)", strings.Join(missing, "; "), mode)
	}
	return nil
}

// TeamResolver builds the immutable team lookup from the configured table.
func (c *Config) TeamResolver() (*team.Resolver, error) {
	teams := make([]team.Team, len(c.Teams))
	for i, t := range c.Teams {
		teams[i] = team.Team{Name: t.Name, UUID: t.UUID, ID: t.ID}
	}
	r, err := team.NewResolver(teams, c.SalesTeams)
	if err != nil {
		return nil, eris.Wrap(err, "config: build team resolver")
	}
	return r, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
