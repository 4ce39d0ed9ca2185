package funnel

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadfunnel/internal/apperr"
	"github.com/sells-group/leadfunnel/internal/model"
	"github.com/sells-group/leadfunnel/pkg/helpdesk"
)

// FetchRequest selects the conversations to fetch. TeamIDs must already be
// validated against the allow-list.
type FetchRequest struct {
	AccountID    int64
	TeamIDs      []int64
	Status       string
	AssigneeType string
	Before       string
	Token        string
}

// TeamResult is the outcome of one team's fetch. When OK is false, Status
// and Body describe the upstream failure and Conversations is empty.
type TeamResult struct {
	OK            bool
	TeamID        int64
	Conversations []model.Conversation
	Meta          json.RawMessage
	Path          string
	Diagnostic    string
	Skipped       int

	Status int
	Body   json.RawMessage
	Err    error
}

// Failure converts a failed result to its reported form.
func (r TeamResult) Failure() model.TeamFailure {
	f := model.TeamFailure{TeamID: r.TeamID, Status: r.Status, Body: r.Body}
	if r.Err != nil {
		f.Error = r.Err.Error()
	}
	return f
}

// Fetcher lists conversations for several teams concurrently.
type Fetcher struct {
	client helpdesk.Client
}

// NewFetcher creates a Fetcher backed by client.
func NewFetcher(client helpdesk.Client) *Fetcher {
	return &Fetcher{client: client}
}

// FetchTeams issues one request per team and waits for all of them. A failed
// team never cancels its siblings. Results follow the order of req.TeamIDs.
func (f *Fetcher) FetchTeams(ctx context.Context, req FetchRequest) []TeamResult {
	results := make([]TeamResult, len(req.TeamIDs))

	g, gCtx := errgroup.WithContext(ctx)
	for i, teamID := range req.TeamIDs {
		g.Go(func() error {
			results[i] = f.fetchTeam(gCtx, req, teamID)
			return nil // failures are reported per team
		})
	}
	_ = g.Wait()

	return results
}

func (f *Fetcher) fetchTeam(ctx context.Context, req FetchRequest, teamID int64) TeamResult {
	body, err := f.client.ListConversations(ctx, helpdesk.ConversationQuery{
		AccountID:    req.AccountID,
		TeamID:       teamID,
		Status:       req.Status,
		AssigneeType: req.AssigneeType,
		Before:       req.Before,
		Token:        req.Token,
	})
	if err != nil {
		zap.L().Warn("funnel: team fetch failed",
			zap.Int64("team_id", teamID),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err),
		)
		return failedResult(teamID, err)
	}

	decoded := DecodeConversations(body)
	if decoded.Diagnostic != "" {
		zap.L().Warn("funnel: no conversation list in response",
			zap.Int64("team_id", teamID),
			zap.String("diagnostic", decoded.Diagnostic),
		)
	}
	return TeamResult{
		OK:            true,
		TeamID:        teamID,
		Conversations: decoded.Items,
		Meta:          ExtractMeta(body),
		Path:          decoded.Path,
		Diagnostic:    decoded.Diagnostic,
		Skipped:       decoded.Skipped,
	}
}

func failedResult(teamID int64, err error) TeamResult {
	r := TeamResult{TeamID: teamID, Err: err}
	var se *helpdesk.StatusError
	if errors.As(err, &se) {
		r.Status = se.StatusCode
		r.Body = RawBody(se.Body)
		return r
	}
	r.Status = apperr.HTTPStatus(err)
	r.Body, _ = json.Marshal(apperr.ToBody(err))
	return r
}
