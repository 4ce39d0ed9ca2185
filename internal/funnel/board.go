package funnel

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadfunnel/internal/model"
	"github.com/sells-group/leadfunnel/pkg/helpdesk"
)

// BoardMeta describes a board run.
type BoardMeta struct {
	AccountID   int64                      `json:"account_id"`
	TeamIDs     []int64                    `json:"team_ids"`
	Total       int                        `json:"total"`
	FailedTeams []model.TeamFailure        `json:"failed_teams"`
	Upstream    map[string]json.RawMessage `json:"upstream,omitempty"`
}

// EnvelopeInfo records how a team's response envelope was read.
type EnvelopeInfo struct {
	Path       string `json:"path"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Skipped    int    `json:"skipped"`
}

// BoardDebug carries per-run diagnostics.
type BoardDebug struct {
	Stats     []*model.TeamStats        `json:"stats"`
	Decisions map[string]model.Decision `json:"decisions"` // keyed "<team>:<conversation>"
	Envelopes map[string]EnvelopeInfo   `json:"envelopes"`
}

// BoardResult is the classified view over several teams.
type BoardResult struct {
	Meta  BoardMeta        `json:"meta"`
	Items []model.LeadCard `json:"items"`
	Debug *BoardDebug      `json:"debug,omitempty"`
}

// Board fetches, classifies and aggregates conversations.
type Board struct {
	fetcher *Fetcher
}

// NewBoard creates a Board over the given helpdesk client.
func NewBoard(client helpdesk.Client) *Board {
	return &Board{fetcher: NewFetcher(client)}
}

// Run fetches every requested team, classifies each conversation and returns
// the cards sorted by last activity, newest first. Team failures are reported
// in the meta, never returned as an error. Debug is always populated; callers
// drop it when not wanted.
func decisionKey(teamID, conversationID int64) string {
	return strconv.FormatInt(teamID, 10) + ":" + strconv.FormatInt(conversationID, 10)
}

func (b *Board) Run(ctx context.Context, req FetchRequest) (*BoardResult, error) {
	results := b.fetcher.FetchTeams(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "funnel: board run")
	}

	agg := NewAggregator()
	res := &BoardResult{
		Meta: BoardMeta{
			AccountID:   req.AccountID,
			TeamIDs:     req.TeamIDs,
			FailedTeams: []model.TeamFailure{},
		},
		Items: []model.LeadCard{},
		Debug: &BoardDebug{
			Decisions: make(map[string]model.Decision),
			Envelopes: make(map[string]EnvelopeInfo),
		},
	}

	for _, r := range results {
		key := strconv.FormatInt(r.TeamID, 10)
		if !r.OK {
			res.Meta.FailedTeams = append(res.Meta.FailedTeams, r.Failure())
			continue
		}
		if r.Meta != nil {
			if res.Meta.Upstream == nil {
				res.Meta.Upstream = make(map[string]json.RawMessage)
			}
			res.Meta.Upstream[key] = r.Meta
		}
		res.Debug.Envelopes[key] = EnvelopeInfo{Path: r.Path, Diagnostic: r.Diagnostic, Skipped: r.Skipped}

		for i := range r.Conversations {
			conv := &r.Conversations[i]
			d := Classify(conv)
			agg.Observe(r.TeamID, d)

			card := BuildCard(conv)
			card.Bucket = d.Bucket
			res.Items = append(res.Items, card)
			res.Debug.Decisions[decisionKey(r.TeamID, conv.ID)] = d
		}
	}

	SortCards(res.Items)
	res.Meta.Total = len(res.Items)
	res.Debug.Stats = agg.Snapshot()

	zap.L().Info("funnel: board run complete",
		zap.Int64("account_id", req.AccountID),
		zap.Int("teams", len(req.TeamIDs)),
		zap.Int("failed_teams", len(res.Meta.FailedTeams)),
		zap.Int("conversations", res.Meta.Total),
	)
	return res, nil
}

// SortCards orders cards by last activity descending, then by conversation
// id descending so equal timestamps have a stable order.
func SortCards(cards []model.LeadCard) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].LastActivityAt != cards[j].LastActivityAt {
			return cards[i].LastActivityAt > cards[j].LastActivityAt
		}
		return cards[i].ConversationID > cards[j].ConversationID
	})
}
