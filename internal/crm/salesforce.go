package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadfunnel/internal/qualify"
	"github.com/sells-group/leadfunnel/pkg/salesforce"
)

// LeadSource tags opportunities created from helpdesk conversations.
const LeadSource = "Helpdesk"

// closeWindow is how far ahead CloseDate is set on new opportunities.
const closeWindow = 30 * 24 * time.Hour

// SalesforceSink creates Opportunity records in Salesforce.
type SalesforceSink struct {
	client    salesforce.Client
	stageName string
	now       func() time.Time
}

// NewSalesforceSink returns a sink that creates opportunities in stageName.
func NewSalesforceSink(client salesforce.Client, stageName string) *SalesforceSink {
	if stageName == "" {
		stageName = "Prospecting"
	}
	return &SalesforceSink{client: client, stageName: stageName, now: time.Now}
}

// Create implements OpportunitySink.
func (s *SalesforceSink) Create(ctx context.Context, conversationID int64, opp *qualify.Opportunity) (string, error) {
	if opp == nil {
		return "", eris.New("crm: nil opportunity")
	}
	id, err := s.client.InsertOne(ctx, "Opportunity", s.record(conversationID, opp))
	if err != nil {
		return "", eris.Wrapf(err, "crm: salesforce create for conversation %d", conversationID)
	}
	return id, nil
}

func (s *SalesforceSink) record(conversationID int64, opp *qualify.Opportunity) map[string]any {
	rec := map[string]any{
		"Name":        opp.Nome,
		"StageName":   s.stageName,
		"CloseDate":   s.now().Add(closeWindow).Format("2006-01-02"),
		"LeadSource":  LeadSource,
		"Description": description(conversationID, opp),
	}
	if amount, ok := amount(opp); ok {
		rec["Amount"] = amount
	}
	if opp.Probabilidade != nil {
		rec["Probability"] = *opp.Probabilidade
	}
	return rec
}

// amount prefers the one-off value, then the monthly value, then the sum of
// line totals.
func amount(opp *qualify.Opportunity) (float64, bool) {
	if opp.ValorAvulso != nil {
		return *opp.ValorAvulso, true
	}
	if opp.ValorMensal != nil {
		return *opp.ValorMensal, true
	}
	var sum float64
	var found bool
	for _, p := range opp.Produtos {
		if p := nectarProduct(p); p.ValorTotal > 0 {
			sum += p.ValorTotal
			found = true
		}
	}
	return sum, found
}

func description(conversationID int64, opp *qualify.Opportunity) string {
	var b strings.Builder
	if opp.Observacao != "" {
		b.WriteString(opp.Observacao)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Conversa #%d", conversationID)
	if opp.Cliente != nil && opp.Cliente.Nome != "" {
		fmt.Fprintf(&b, "\nCliente: %s", opp.Cliente.Nome)
	}
	if opp.Cliente != nil && len(opp.Cliente.Telefones) > 0 {
		fmt.Fprintf(&b, "\nTelefones: %s", strings.Join(opp.Cliente.Telefones, ", "))
	}
	for _, p := range opp.Produtos {
		fmt.Fprintf(&b, "\n- %s", p.Nome)
	}
	return b.String()
}
