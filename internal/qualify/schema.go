package qualify

import (
	"encoding/json"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadfunnel/internal/apperr"
)

// Result is the structured answer expected from the qualification model.
type Result struct {
	IsQualified  *bool        `json:"isQualified,omitempty"`
	Score        *float64     `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	Motivo       string       `json:"motivo"`
	Oportunidade *Opportunity `json:"oportunidade,omitempty"`
}

// Qualified reports whether the model judged the conversation a lead.
func (r *Result) Qualified() bool {
	return r != nil && r.IsQualified != nil && *r.IsQualified
}

// ScoreValue returns the score, or 0 when the model gave none.
func (r *Result) ScoreValue() float64 {
	if r == nil || r.Score == nil {
		return 0
	}
	return *r.Score
}

// Opportunity is the proposed CRM opportunity.
type Opportunity struct {
	Nome          string    `json:"nome" validate:"required"`
	Probabilidade *float64  `json:"probabilidade,omitempty"`
	ValorAvulso   *float64  `json:"valorAvulso,omitempty"`
	ValorMensal   *float64  `json:"valorMensal,omitempty"`
	Observacao    string    `json:"observacao,omitempty"`
	Cliente       *Client   `json:"cliente,omitempty"`
	Produtos      []Product `json:"produtos,omitempty" validate:"omitempty,dive"`
}

// Client references the customer, by CRM id or by name. The model may write
// the id as any JSON number; CRMID converts it.
type Client struct {
	ID        *float64 `json:"id,omitempty"`
	Nome      string   `json:"nome,omitempty"`
	Telefones []string `json:"telefones,omitempty"`
}

// Product is one opportunity line item.
type Product struct {
	Nome        string   `json:"nome" validate:"required"`
	Quantidade  *float64 `json:"quantidade,omitempty"`
	Recorrencia *float64 `json:"recorrencia,omitempty"`
	Valor       *float64 `json:"valor,omitempty"`
	ValorTotal  *float64 `json:"valorTotal,omitempty"`
}

// CRMID returns the client id as an integer. Ids that are not positive whole
// numbers are ignored so the caller falls back to the name.
func (c *Client) CRMID() (int64, bool) {
	if c == nil || c.ID == nil {
		return 0, false
	}
	id := *c.ID
	if id <= 0 || id != math.Trunc(id) || id >= math.MaxInt64 {
		return 0, false
	}
	return int64(id), true
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func schemaValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ParseResult decodes and validates the model's text answer. Any decoding or
// validation failure is reported as a schema mismatch.
func ParseResult(text string) (*Result, error) {
	raw := cleanJSON(text)
	if raw == "" {
		return nil, apperr.SchemaMismatch(eris.New("qualify: empty model response"))
	}

	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, apperr.SchemaMismatch(eris.Wrap(err, "qualify: decode model response"))
	}
	if err := schemaValidator().Struct(&r); err != nil {
		return nil, apperr.SchemaMismatch(eris.Wrap(err, "qualify: validate model response"))
	}

	r.applyDefaults()
	return &r, nil
}

// applyDefaults clamps the probability to 0-100 and fills line-item quantity
// and recurrence with 1 when absent.
func (r *Result) applyDefaults() {
	if r.Oportunidade == nil {
		return
	}
	if p := r.Oportunidade.Probabilidade; p != nil {
		clamped := min(max(*p, 0), 100)
		r.Oportunidade.Probabilidade = &clamped
	}
	for i := range r.Oportunidade.Produtos {
		p := &r.Oportunidade.Produtos[i]
		if p.Quantidade == nil {
			one := 1.0
			p.Quantidade = &one
		}
		if p.Recorrencia == nil {
			one := 1.0
			p.Recorrencia = &one
		}
	}
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
