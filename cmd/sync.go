package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadfunnel/internal/qualify"
	"github.com/sells-group/leadfunnel/internal/syncer"
	"github.com/sells-group/leadfunnel/pkg/anthropic"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Qualify recent sales conversations and create CRM opportunities",
	Long: `Runs one qualify-and-sync pass over every configured sales team.

For each team the helpdesk users are looked up, recent conversations are
fetched and each conversation's latest messages are sent to Claude. Qualified
leads with an opportunity are created in the configured CRM. The run summary
is printed as JSON and, when a store is configured, recorded in the run
history.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("sync"); err != nil {
			return err
		}
		teams, err := cfg.TeamResolver()
		if err != nil {
			return err
		}

		sink, err := initSink()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return eris.Wrap(err, "sync: open store")
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		qualifier := qualify.NewAnthropicQualifier(
			anthropic.NewClient(cfg.Anthropic.Key),
			cfg.Anthropic.Model,
			cfg.Anthropic.MaxTokens,
		)
		pipeline := syncer.New(initHelpdesk(cfg.Helpdesk.AccessToken), qualifier, sink, st)

		limit, _ := cmd.Flags().GetInt("limit")
		if limit == 0 {
			limit = cfg.Sync.MaxConversationsPerTeam
		}
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		if concurrency == 0 {
			concurrency = cfg.Sync.Concurrency
		}

		summary, err := pipeline.Run(ctx, syncer.Options{
			AccountID:               cfg.Helpdesk.AccountID,
			RecipientID:             cfg.Helpdesk.RecipientID,
			Teams:                   teams.SalesTeams(),
			MaxConversationsPerTeam: limit,
			MessagesPageSize:        cfg.Sync.MessagesPageSize,
			Concurrency:             concurrency,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	syncCmd.Flags().Int("limit", 0, "max conversations per team (default from config)")
	syncCmd.Flags().Int("concurrency", 0, "conversations qualified in parallel (default from config)")
	rootCmd.AddCommand(syncCmd)
}
