package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/leadfunnel/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadfunnel",
	Short: "Helpdesk lead funnel and CRM sync",
	Long: `leadfunnel reads conversations from the helpdesk and turns them into sales work.

  serve          HTTP API with the funnel board (GET /funnel)
  board          print the funnel board for one or more teams
  sync           qualify recent conversations with Claude and create CRM opportunities
  opportunities  list opportunities already in Nectar or Salesforce
  runs           inspect recorded sync runs

Settings come from config.yaml and LEADFUNNEL_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyLogFlags(cmd.Flags(), &c.Log)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("log-level", "", "override log.level (debug, info, warn, error)")
	pf.String("log-format", "", "override log.format (json, console)")
}

// applyLogFlags lets --log-level and --log-format win over the config file.
func applyLogFlags(flags *pflag.FlagSet, log *config.LogConfig) {
	if f := flags.Lookup("log-level"); f != nil && f.Changed {
		log.Level = f.Value.String()
	}
	if f := flags.Lookup("log-format"); f != nil && f.Changed {
		log.Format = f.Value.String()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
