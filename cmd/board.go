package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadfunnel/internal/funnel"
	"github.com/sells-group/leadfunnel/internal/model"
	"github.com/sells-group/leadfunnel/internal/team"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Classify conversations and print per-team funnel stats",
	Long: `Runs the same classification as GET /lead-qualification and prints the
per-team bucket counts.

Examples:
  leadfunnel board
  leadfunnel board --account 7 --teams 3,5
  leadfunnel board --format yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("board"); err != nil {
			return err
		}
		teams, err := cfg.TeamResolver()
		if err != nil {
			return err
		}

		account, _ := cmd.Flags().GetInt64("account")
		if account == 0 {
			account = cfg.Helpdesk.AccountID
		}
		teamList, _ := cmd.Flags().GetString("teams")
		ids, err := teams.ParseIDs([]string{teamList})
		if err != nil {
			return err
		}
		status, _ := cmd.Flags().GetString("status")
		assignee, _ := cmd.Flags().GetString("assignee-type")
		format, _ := cmd.Flags().GetString("format")

		res, err := funnel.NewBoard(initHelpdesk(cfg.Helpdesk.AccessToken)).Run(ctx, funnel.FetchRequest{
			AccountID:    account,
			TeamIDs:      ids,
			Status:       status,
			AssigneeType: assignee,
		})
		if err != nil {
			return err
		}

		return writeBoard(os.Stdout, format, newBoardReport(res, teams))
	},
}

func init() {
	f := boardCmd.Flags()
	f.Int64("account", 0, "helpdesk account id (default from config)")
	f.String("teams", "", "comma-separated team ids (default: every sales team)")
	f.String("status", "all", "conversation status filter")
	f.String("assignee-type", "all", "assignee filter")
	f.String("format", "text", "output format: text, json or yaml")
	rootCmd.AddCommand(boardCmd)
}

// boardReport is the printable view of a board run.
type boardReport struct {
	Total  int             `json:"total" yaml:"total"`
	Teams  []teamRow       `json:"teams" yaml:"teams"`
	Failed []failedTeamRow `json:"failed_teams" yaml:"failed_teams"`
}

type teamRow struct {
	Name            string `json:"name" yaml:"name"`
	model.TeamStats `yaml:",inline"`
}

type failedTeamRow struct {
	TeamID int64  `json:"team_id" yaml:"team_id"`
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Status int    `json:"status" yaml:"status"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newBoardReport(res *funnel.BoardResult, teams *team.Resolver) boardReport {
	rep := boardReport{Total: res.Meta.Total, Teams: []teamRow{}, Failed: []failedTeamRow{}}
	if res.Debug != nil {
		for _, s := range res.Debug.Stats {
			rep.Teams = append(rep.Teams, teamRow{Name: teamName(teams, s.TeamID), TeamStats: *s})
		}
	}
	for _, f := range res.Meta.FailedTeams {
		name := f.TeamName
		if name == "" {
			name = teamName(teams, f.TeamID)
		}
		rep.Failed = append(rep.Failed, failedTeamRow{TeamID: f.TeamID, Name: name, Status: f.Status, Error: f.Error})
	}
	return rep
}

func teamName(teams *team.Resolver, id int64) string {
	if t, ok := teams.ByID(id); ok {
		return t.Name
	}
	return fmt.Sprintf("#%d", id)
}

func writeBoard(out io.Writer, format string, rep boardReport) error {
	switch strings.ToLower(format) {
	case "", "text":
		formatBoard(out, rep)
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return eris.Wrap(err, "board: encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("board: unknown format %q", format)
	}
}

// formatBoard writes the per-team stats table to out.
func formatBoard(out io.Writer, rep boardReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	header := []string{"TEAM", "TOTAL"}
	for _, b := range model.Buckets {
		header = append(header, string(b))
	}
	header = append(header, "ANALYSIS", "RESOLVED")
	_, _ = fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, r := range rep.Teams {
		cols := []string{r.Name, fmt.Sprint(r.Total)}
		for _, b := range model.Buckets {
			cols = append(cols, fmt.Sprint(r.Buckets[b]))
		}
		cols = append(cols, fmt.Sprint(r.AnalysisAny), fmt.Sprint(r.Resolved))
		_, _ = fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nTotal conversations: %d\n", rep.Total)
	if len(rep.Failed) > 0 {
		_, _ = fmt.Fprintln(out, "Failed teams:")
		for _, f := range rep.Failed {
			_, _ = fmt.Fprintf(out, "  %s (%d): status %d %s\n", f.Name, f.TeamID, f.Status, f.Error)
		}
	}
}
