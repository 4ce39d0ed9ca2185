package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadfunnel/internal/crm"
	"github.com/sells-group/leadfunnel/pkg/nectar"
	sfpkg "github.com/sells-group/leadfunnel/pkg/salesforce"
)

var opportunitiesCmd = &cobra.Command{
	Use:     "opportunities",
	Aliases: []string{"opps"},
	Short:   "List CRM opportunities",
	Long: `Lists opportunities from Nectar (default) or, with --source salesforce,
the opportunities this tool mirrored into Salesforce.

Examples:
  leadfunnel opportunities --status 0 --from 2025-01-01
  leadfunnel opportunities --source salesforce --since 72h`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source, _ := cmd.Flags().GetString("source")
		asJSON, _ := cmd.Flags().GetBool("json")

		switch source {
		case "nectar":
			if err := cfg.Validate("opportunities"); err != nil {
				return err
			}
			params, err := listParams(cmd)
			if err != nil {
				return err
			}
			opps, err := initNectar().ListOpportunities(ctx, params)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, opps)
			}
			formatNectarOpportunities(os.Stdout, opps)
			return nil

		case "salesforce":
			since, _ := cmd.Flags().GetDuration("since")
			limit, _ := cmd.Flags().GetInt("limit")
			sf, err := initSalesforce()
			if err != nil {
				return err
			}
			opps, err := sfpkg.RecentOpportunities(ctx, sf, crm.LeadSource, time.Now().Add(-since), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(os.Stdout, opps)
			}
			formatSalesforceOpportunities(os.Stdout, opps)
			return nil

		default:
			return eris.Errorf("opportunities: unknown source %q", source)
		}
	},
}

func init() {
	f := opportunitiesCmd.Flags()
	f.String("source", "nectar", "where to list from: nectar or salesforce")
	f.Int("page", 0, "nectar page number")
	f.Int("limit", 50, "max opportunities to return")
	f.Int("status", -1, "nectar status filter (-1 for any)")
	f.String("name", "", "nectar name filter")
	f.String("from", "", "nectar creation date lower bound (YYYY-MM-DD)")
	f.String("to", "", "nectar creation date upper bound (YYYY-MM-DD)")
	f.String("updated-from", "", "nectar update date lower bound (YYYY-MM-DD)")
	f.String("updated-to", "", "nectar update date upper bound (YYYY-MM-DD)")
	f.Duration("since", 7*24*time.Hour, "salesforce creation window")
	f.Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(opportunitiesCmd)
}

// listParams maps the command flags onto nectar list filters.
func listParams(cmd *cobra.Command) (nectar.ListParams, error) {
	f := cmd.Flags()
	var p nectar.ListParams
	p.Page, _ = f.GetInt("page")
	p.DisplayLength, _ = f.GetInt("limit")
	p.Nome, _ = f.GetString("name")

	dates := []struct {
		flag string
		dst  *string
	}{
		{"from", &p.DataInicio},
		{"to", &p.DataFim},
		{"updated-from", &p.DataInicioAtualizacao},
		{"updated-to", &p.DataFimAtualizacao},
	}
	for _, d := range dates {
		v, _ := f.GetString(d.flag)
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return p, eris.Errorf("opportunities: --%s must be YYYY-MM-DD, got %q", d.flag, v)
		}
		*d.dst = v
	}

	if status, _ := f.GetInt("status"); status >= 0 {
		p.Status = &status
	}
	return p, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatNectarOpportunities(out io.Writer, opps []nectar.Opportunity) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPROB\tVALUE")
	for _, o := range opps {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%.0f%%\t%s\n",
			o.ID, truncate(o.Nome, 40), o.Status, o.Probabilidade, formatValue(o.ValorAvulso, o.ValorMensal))
	}
	_ = w.Flush()
}

func formatSalesforceOpportunities(out io.Writer, opps []sfpkg.Opportunity) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tSTAGE\tCLOSE\tAMOUNT")
	for _, o := range opps {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", o.ID, truncate(o.Name, 40), o.StageName, o.CloseDate, o.Amount)
	}
	_ = w.Flush()
}

func formatValue(avulso, mensal *float64) string {
	switch {
	case avulso != nil:
		return fmt.Sprintf("%.2f", *avulso)
	case mensal != nil:
		return fmt.Sprintf("%.2f/mo", *mensal)
	default:
		return "-"
	}
}

// truncate shortens s to n runes for table display.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
