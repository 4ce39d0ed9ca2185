package crm

import (
	"context"
	"maps"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadfunnel/internal/qualify"
	"github.com/sells-group/leadfunnel/pkg/nectar"
)

// DefaultClientName is used when the model names no customer.
const DefaultClientName = "Novo Cliente"

// NectarDefaults are applied to every created opportunity. Zero values are
// left out of the request.
type NectarDefaults struct {
	Pipeline string
	Stage    int
	Status   int

	// Owner is sent as responsavel when either field is set.
	OwnerID   int64
	OwnerName string

	CustomFields map[string]any

	// DeadlineDays sets dataLimite that many days after creation.
	DeadlineDays int
}

// NectarSink creates opportunities in Nectar CRM.
type NectarSink struct {
	client   nectar.Client
	defaults NectarDefaults
	now      func() time.Time
}

// NewNectarSink returns a sink backed by client.
func NewNectarSink(client nectar.Client, defaults NectarDefaults) *NectarSink {
	return &NectarSink{client: client, defaults: defaults, now: time.Now}
}

// Create implements OpportunitySink.
func (s *NectarSink) Create(ctx context.Context, conversationID int64, opp *qualify.Opportunity) (string, error) {
	if opp == nil {
		return "", eris.New("crm: nil opportunity")
	}
	req := NectarRequest(opp, s.defaults)
	if s.defaults.DeadlineDays > 0 {
		req.DataLimite = s.now().AddDate(0, 0, s.defaults.DeadlineDays).Format("2006-01-02")
	}
	created, err := s.client.CreateOpportunity(ctx, req)
	if err != nil {
		return "", eris.Wrapf(err, "crm: nectar create for conversation %d", conversationID)
	}
	return strconv.FormatInt(created.ID, 10), nil
}

// NectarRequest maps a qualified opportunity onto the Nectar create body.
func NectarRequest(opp *qualify.Opportunity, d NectarDefaults) nectar.CreateRequest {
	req := nectar.CreateRequest{
		Nome:          opp.Nome,
		Pipeline:      d.Pipeline,
		Probabilidade: opp.Probabilidade,
		ValorAvulso:   opp.ValorAvulso,
		ValorMensal:   opp.ValorMensal,
		Observacao:    opp.Observacao,
		Cliente:       clientRef(opp.Cliente),
	}
	if d.Stage > 0 {
		stage := d.Stage
		req.Etapa = &stage
	}
	if d.Status > 0 {
		status := d.Status
		req.Status = &status
	}
	if d.OwnerID > 0 || d.OwnerName != "" {
		owner := &nectar.Owner{Nome: d.OwnerName}
		if d.OwnerID > 0 {
			id := d.OwnerID
			owner.ID = &id
		}
		req.Responsavel = owner
	}
	if len(d.CustomFields) > 0 {
		req.CamposPersonalizados = maps.Clone(d.CustomFields)
	}
	for _, p := range opp.Produtos {
		req.Produtos = append(req.Produtos, nectarProduct(p))
	}
	return req
}

func clientRef(c *qualify.Client) nectar.ClientRef {
	if id, ok := c.CRMID(); ok {
		return nectar.ClientRef{ID: &id}
	}
	switch {
	case c != nil && c.Nome != "":
		return nectar.ClientRef{Nome: c.Nome}
	default:
		return nectar.ClientRef{Nome: DefaultClientName}
	}
}

func nectarProduct(p qualify.Product) nectar.Product {
	out := nectar.Product{
		Nome:        p.Nome,
		Quantidade:  valueOr(p.Quantidade, 1),
		Recorrencia: valueOr(p.Recorrencia, 1),
		Valor:       valueOr(p.Valor, 0),
	}
	if p.ValorTotal != nil {
		out.ValorTotal = *p.ValorTotal
	} else {
		out.ValorTotal = out.Valor * out.Quantidade
	}
	return out
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
