// Package nectar provides a client for the Nectar CRM opportunities API.
package nectar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://app.nectarcrm.com.br/crm/api/1"

// Client defines the Nectar operations used by the CRM sink and the CLI.
type Client interface {
	ListOpportunities(ctx context.Context, params ListParams) ([]Opportunity, error)
	CreateOpportunity(ctx context.Context, req CreateRequest) (*Opportunity, error)
}

// ListParams filters the opportunity list. Zero values are not sent.
type ListParams struct {
	Page                  int
	DisplayLength         int
	DataInicio            string
	DataFim               string
	DataInicioAtualizacao string
	DataFimAtualizacao    string
	Status                *int
	Nome                  string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.DisplayLength > 0 {
		v.Set("displayLength", strconv.Itoa(p.DisplayLength))
	}
	set := func(k, s string) {
		if s != "" {
			v.Set(k, s)
		}
	}
	set("dataInicio", p.DataInicio)
	set("dataFim", p.DataFim)
	set("dataInicioAtualizacao", p.DataInicioAtualizacao)
	set("dataFimAtualizacao", p.DataFimAtualizacao)
	set("nome", p.Nome)
	if p.Status != nil {
		v.Set("status", strconv.Itoa(*p.Status))
	}
	return v
}

// Opportunity is an opportunity as returned by Nectar.
type Opportunity struct {
	ID            int64    `json:"id"`
	Nome          string   `json:"nome"`
	Status        int      `json:"status"`
	Probabilidade float64  `json:"probabilidade"`
	ValorAvulso   *float64 `json:"valorAvulso,omitempty"`
	ValorMensal   *float64 `json:"valorMensal,omitempty"`
}

// ClientRef references the customer by id or, when absent, by name.
type ClientRef struct {
	ID   *int64 `json:"id,omitempty"`
	Nome string `json:"nome,omitempty"`
}

// Owner is the opportunity's responsible user.
type Owner struct {
	ID   *int64 `json:"id,omitempty"`
	Nome string `json:"nome,omitempty"`
}

// Product is an opportunity line item.
type Product struct {
	Nome               string   `json:"nome"`
	Quantidade         float64  `json:"quantidade"`
	Recorrencia        float64  `json:"recorrencia"`
	Valor              float64  `json:"valor"`
	ValorTotal         float64  `json:"valorTotal"`
	Desconto           *float64 `json:"desconto,omitempty"`
	DescontoPorcentual *bool    `json:"descontoPorcentual,omitempty"`
	ComissaoPorcentual *bool    `json:"comissaoPorcentual,omitempty"`
}

// CreateRequest is the create-opportunity body.
type CreateRequest struct {
	Nome                 string         `json:"nome"`
	DataLimite           string         `json:"dataLimite,omitempty"`
	Pipeline             string         `json:"pipeline,omitempty"`
	Etapa                *int           `json:"etapa,omitempty"`
	Probabilidade        *float64       `json:"probabilidade,omitempty"`
	Status               *int           `json:"status,omitempty"`
	ValorAvulso          *float64       `json:"valorAvulso,omitempty"`
	ValorMensal          *float64       `json:"valorMensal,omitempty"`
	Observacao           string         `json:"observacao,omitempty"`
	Cliente              ClientRef      `json:"cliente"`
	Responsavel          *Owner         `json:"responsavel,omitempty"`
	Produtos             []Product      `json:"produtos,omitempty"`
	CamposPersonalizados map[string]any `json:"camposPersonalizados,omitempty"`
}

// Option configures the Nectar client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second request limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Nectar client authenticated with the api_token query
// parameter.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListOpportunities(ctx context.Context, params ListParams) ([]Opportunity, error) {
	var out []Opportunity
	if err := c.do(ctx, http.MethodGet, params.values(), nil, &out); err != nil {
		return nil, eris.Wrap(err, "nectar: list opportunities")
	}
	return out, nil
}

func (c *httpClient) CreateOpportunity(ctx context.Context, req CreateRequest) (*Opportunity, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "nectar: marshal opportunity")
	}
	var out Opportunity
	if err := c.do(ctx, http.MethodPost, nil, body, &out); err != nil {
		return nil, eris.Wrapf(err, "nectar: create opportunity %q", req.Nome)
	}
	zap.L().Info("nectar: opportunity created", zap.Int64("opportunity_id", out.ID), zap.String("nome", out.Nome))
	return &out, nil
}

func (c *httpClient) do(ctx context.Context, method string, params url.Values, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit")
		}
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.token)
	reqURL := fmt.Sprintf("%s/oportunidades/?%s", c.baseURL, params.Encode())

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")

	// The token travels in the query string; keep the URL out of errors.
	resp, err := c.http.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return eris.Wrapf(err, "%s oportunidades", method)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return eris.Errorf("%s oportunidades -> %d %s", method, resp.StatusCode, truncate(string(respBody), 512))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
