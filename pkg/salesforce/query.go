package salesforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Opportunity is the subset of Opportunity fields the mirror writes and reads.
type Opportunity struct {
	ID          string  `json:"Id" salesforce:"Id"`
	Name        string  `json:"Name" salesforce:"Name"`
	StageName   string  `json:"StageName" salesforce:"StageName"`
	CloseDate   string  `json:"CloseDate" salesforce:"CloseDate"`
	Amount      float64 `json:"Amount" salesforce:"Amount"`
	Probability float64 `json:"Probability" salesforce:"Probability"`
	LeadSource  string  `json:"LeadSource" salesforce:"LeadSource"`
	Description string  `json:"Description" salesforce:"Description"`
	CreatedDate string  `json:"CreatedDate" salesforce:"CreatedDate"`
}

var opportunityFields = []string{
	"Id", "Name", "StageName", "CloseDate", "Amount",
	"Probability", "LeadSource", "Description", "CreatedDate",
}

// RecentOpportunities returns opportunities created at or after since with
// the given lead source, newest first. An empty leadSource matches all.
func RecentOpportunities(ctx context.Context, c Client, leadSource string, since time.Time, limit int) ([]Opportunity, error) {
	if limit <= 0 {
		limit = 50
	}
	where := []string{"CreatedDate >= " + since.UTC().Format("2006-01-02T15:04:05Z")}
	if leadSource != "" {
		where = append(where, fmt.Sprintf("LeadSource = '%s'", escapeSoql(leadSource)))
	}
	soql := fmt.Sprintf(
		"SELECT %s FROM Opportunity WHERE %s ORDER BY CreatedDate DESC LIMIT %d",
		strings.Join(opportunityFields, ", "),
		strings.Join(where, " AND "),
		limit,
	)

	var opps []Opportunity
	if err := c.Query(ctx, soql, &opps); err != nil {
		return nil, eris.Wrap(err, "sf: recent opportunities")
	}
	return opps, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
