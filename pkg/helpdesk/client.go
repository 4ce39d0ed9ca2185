// Package helpdesk provides a client for the support-conversation backend
// (conversations, messages and team membership endpoints).
package helpdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/leadfunnel/internal/apperr"
)

// Client defines the helpdesk operations used by the funnel and the sync
// pipeline. Conversation and message calls return the raw JSON body because
// the envelope shape varies between backend versions.
type Client interface {
	ListConversations(ctx context.Context, q ConversationQuery) ([]byte, error)
	ListMessages(ctx context.Context, q MessageQuery) ([]byte, error)
	TeamUsers(ctx context.Context, recipientID, teamUUID string) ([]TeamUser, error)
}

// ConversationQuery filters the conversations endpoint. Empty Status and
// AssigneeType are omitted from the request. Token overrides the client's
// configured access token for this call.
type ConversationQuery struct {
	AccountID    int64
	TeamID       int64
	Status       string
	AssigneeType string
	Before       string
	Token        string
}

// MessageQuery selects the messages of one conversation.
type MessageQuery struct {
	AccountID      int64
	ConversationID int64
	Before         string
	Token          string
}

// TeamUser is one member of a team.
type TeamUser struct {
	AttendantID string `json:"attendant_id"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	UpdatedAt   string `json:"updated_at"`
}

// StatusError is returned for non-2xx responses. Body is the raw response.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("helpdesk: unexpected status %d: %s", e.StatusCode, truncate(string(e.Body), 512))
}

// Option configures the helpdesk client.
type Option func(*httpClient)

// WithPathPrefix sets the API path prefix (default /backend/v1).
func WithPathPrefix(prefix string) Option {
	return func(c *httpClient) {
		c.prefix = "/" + strings.Trim(prefix, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

type httpClient struct {
	baseURL string
	prefix  string
	token   string
	http    *http.Client
}

// NewClient creates a helpdesk client for baseURL authenticated with token.
func NewClient(baseURL, token string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  "/backend/v1",
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListConversations(ctx context.Context, q ConversationQuery) ([]byte, error) {
	params := url.Values{}
	params.Set("account_id", strconv.FormatInt(q.AccountID, 10))
	params.Set("team_id", strconv.FormatInt(q.TeamID, 10))
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.AssigneeType != "" {
		params.Set("assignee_type", q.AssigneeType)
	}
	if q.Before != "" {
		params.Set("before", q.Before)
	}

	body, err := c.get(ctx, "conversations", params, q.Token)
	if err != nil {
		return nil, eris.Wrapf(err, "helpdesk: list conversations team %d", q.TeamID)
	}
	return body, nil
}

func (c *httpClient) ListMessages(ctx context.Context, q MessageQuery) ([]byte, error) {
	params := url.Values{}
	params.Set("account_id", strconv.FormatInt(q.AccountID, 10))
	params.Set("conversation_id", strconv.FormatInt(q.ConversationID, 10))
	if q.Before != "" {
		params.Set("before", q.Before)
	}

	body, err := c.get(ctx, "messages", params, q.Token)
	if err != nil {
		return nil, eris.Wrapf(err, "helpdesk: list messages conversation %d", q.ConversationID)
	}
	return body, nil
}

// teamUsersPaths are the envelope paths tried, in order, for team/users.
var teamUsersPaths = []string{"@this", "payload", "data.payload", "data"}

func (c *httpClient) TeamUsers(ctx context.Context, recipientID, teamUUID string) ([]TeamUser, error) {
	params := url.Values{}
	params.Set("recipient_id", recipientID)
	params.Set("team_id", teamUUID)

	body, err := c.get(ctx, "team/users", params, "")
	if err != nil {
		return nil, eris.Wrapf(err, "helpdesk: team users %s", teamUUID)
	}

	for _, path := range teamUsersPaths {
		res := gjson.GetBytes(body, path)
		if !res.IsArray() {
			continue
		}
		var users []TeamUser
		if err := json.Unmarshal([]byte(res.Raw), &users); err != nil {
			return nil, eris.Wrap(err, "helpdesk: unmarshal team users")
		}
		return users, nil
	}
	return nil, nil
}

// get issues a GET against {baseURL}{prefix}/{path}. Non-2xx responses become
// an apperr upstream error wrapping *StatusError; network failures become an
// apperr transport error. No retries are attempted.
func (c *httpClient) get(ctx context.Context, path string, params url.Values, token string) ([]byte, error) {
	if token == "" {
		token = c.token
	}
	reqURL := fmt.Sprintf("%s%s/%s", c.baseURL, c.prefix, path)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("api_access_token", token)
	}

	zap.L().Debug("helpdesk: request", zap.String("path", path), zap.String("query", params.Encode()))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Transport(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Transport(eris.Wrap(err, "read response body"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		zap.L().Warn("helpdesk: request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 512)),
		)
		return nil, apperr.Upstream(resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Body: body})
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
