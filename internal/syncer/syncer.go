// Package syncer runs the qualify-and-sync pipeline: it fetches recent
// conversations for the sales teams, asks the qualifier about each one and
// creates a CRM opportunity for every qualified lead.
//
// A run never aborts on a single team or conversation. Team failures land in
// SyncSummary.TeamFailures and conversation failures in SyncSummary.Errors.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadfunnel/internal/apperr"
	"github.com/sells-group/leadfunnel/internal/crm"
	"github.com/sells-group/leadfunnel/internal/funnel"
	"github.com/sells-group/leadfunnel/internal/model"
	"github.com/sells-group/leadfunnel/internal/qualify"
	"github.com/sells-group/leadfunnel/internal/store"
	"github.com/sells-group/leadfunnel/internal/team"
	"github.com/sells-group/leadfunnel/pkg/helpdesk"
)

const (
	defaultConversationLimit = 50
	defaultMessageWindow     = 20
	defaultConcurrency       = 10
)

// Options configures one run.
type Options struct {
	AccountID   int64
	RecipientID string
	Teams       []team.Team

	MaxConversationsPerTeam int
	MessagesPageSize        int
	Concurrency             int
}

func (o *Options) applyDefaults() {
	if o.MaxConversationsPerTeam <= 0 {
		o.MaxConversationsPerTeam = defaultConversationLimit
	}
	if o.MessagesPageSize <= 0 {
		o.MessagesPageSize = defaultMessageWindow
	}
	if o.Concurrency <= 0 {
		o.Concurrency = defaultConcurrency
	}
}

// Pipeline wires the helpdesk, the qualifier and the CRM sink.
type Pipeline struct {
	helpdesk  helpdesk.Client
	fetcher   *funnel.Fetcher
	qualifier qualify.Qualifier
	sink      crm.OpportunitySink
	store     store.Store
}

// New creates a Pipeline. st may be nil to skip run persistence.
func New(hd helpdesk.Client, q qualify.Qualifier, sink crm.OpportunitySink, st store.Store) *Pipeline {
	return &Pipeline{
		helpdesk:  hd,
		fetcher:   funnel.NewFetcher(hd),
		qualifier: q,
		sink:      sink,
		store:     st,
	}
}

// conversationRef is a conversation queued for qualification.
type conversationRef struct {
	id     int64
	teamID int64
}

// Run executes one pass. It only returns an error for configuration
// problems; everything else is reported in the summary.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*model.SyncSummary, error) {
	if len(opts.Teams) == 0 {
		return nil, apperr.Configuration("syncer: no sales teams configured")
	}
	opts.applyDefaults()

	start := time.Now()
	names := make([]string, len(opts.Teams))
	for i, t := range opts.Teams {
		names[i] = t.Name
	}
	runID := p.startRun(ctx, names)

	summary := &model.SyncSummary{Errors: []string{}}
	queue := p.collect(ctx, opts, summary)

	processed, created, errs := p.qualifyAll(ctx, opts, queue)
	summary.Processed = processed
	summary.CreatedOpps = created
	summary.Errors = append(summary.Errors, errs...)

	status := model.SyncStatusComplete
	if ctx.Err() != nil {
		status = model.SyncStatusFailed
	}
	p.finishRun(ctx, runID, status, summary)

	zap.L().Info("syncer: run complete",
		zap.String("run_id", runID),
		zap.Int("teams", len(opts.Teams)),
		zap.Int("team_failures", len(summary.TeamFailures)),
		zap.Int("conversations", len(queue)),
		zap.Int("processed", summary.Processed),
		zap.Int("created_opps", summary.CreatedOpps),
		zap.Int("errors", len(summary.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return summary, nil
}

// collect resolves each team's users, fetches its conversations and returns
// the flattened queue, at most MaxConversationsPerTeam per team.
func (p *Pipeline) collect(ctx context.Context, opts Options, summary *model.SyncSummary) []conversationRef {
	ready := make([]bool, len(opts.Teams))
	failures := make([]*model.TeamFailure, len(opts.Teams))

	g, gCtx := errgroup.WithContext(ctx)
	for i, t := range opts.Teams {
		g.Go(func() error {
			users, err := p.helpdesk.TeamUsers(gCtx, opts.RecipientID, t.UUID)
			if err != nil {
				f := teamFailure(t, err)
				failures[i] = &f
				zap.L().Warn("syncer: team users lookup failed",
					zap.String("team", t.Name),
					zap.Int64("team_id", t.ID),
					zap.Error(err),
				)
				return nil
			}
			zap.L().Debug("syncer: team users",
				zap.String("team", t.Name),
				zap.Int("users", len(users)),
			)
			ready[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var ids []int64
	for i, t := range opts.Teams {
		if ready[i] {
			ids = append(ids, t.ID)
		}
	}

	results := p.fetcher.FetchTeams(ctx, funnel.FetchRequest{
		AccountID:    opts.AccountID,
		TeamIDs:      ids,
		Status:       "all",
		AssigneeType: "all",
	})
	byID := make(map[int64]funnel.TeamResult, len(results))
	for _, r := range results {
		byID[r.TeamID] = r
	}

	var queue []conversationRef
	for i, t := range opts.Teams {
		if failures[i] != nil {
			summary.TeamFailures = append(summary.TeamFailures, *failures[i])
			continue
		}
		r := byID[t.ID]
		if !r.OK {
			f := r.Failure()
			f.TeamName = t.Name
			summary.TeamFailures = append(summary.TeamFailures, f)
			continue
		}
		convs := r.Conversations
		if len(convs) > opts.MaxConversationsPerTeam {
			convs = convs[:opts.MaxConversationsPerTeam]
		}
		for _, c := range convs {
			queue = append(queue, conversationRef{id: c.ID, teamID: t.ID})
		}
	}
	return queue
}

// qualifyAll processes the queue with bounded concurrency.
func (p *Pipeline) qualifyAll(ctx context.Context, opts Options, queue []conversationRef) (int, int, []string) {
	var processed, created atomic.Int64
	var mu sync.Mutex
	errs := []string{}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, ref := range queue {
		g.Go(func() error {
			answered, opened, err := p.processConversation(gCtx, opts, ref)
			if answered {
				processed.Add(1)
			}
			if opened {
				created.Add(1)
			}
			if err != nil {
				zap.L().Warn("syncer: conversation failed",
					zap.Int64("conversation_id", ref.id),
					zap.Int64("team_id", ref.teamID),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, fmt.Sprintf("conversation %d: %s", ref.id, err.Error()))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(processed.Load()), int(created.Load()), errs
}

// processConversation reports whether the model answered, whether an
// opportunity was created, and the failure, if any.
func (p *Pipeline) processConversation(ctx context.Context, opts Options, ref conversationRef) (bool, bool, error) {
	if err := ctx.Err(); err != nil {
		return false, false, err
	}

	body, err := p.helpdesk.ListMessages(ctx, helpdesk.MessageQuery{
		AccountID:      opts.AccountID,
		ConversationID: ref.id,
	})
	if err != nil {
		return false, false, eris.Wrap(err, "list messages")
	}

	msgs := funnel.DecodeMessages(body).Items
	transcript := qualify.Transcript(ref.id, qualify.Window(msgs, opts.MessagesPageSize))

	result, err := p.qualifier.Qualify(ctx, ref.id, transcript)
	if apperr.Is(err, apperr.KindSchemaMismatch) {
		zap.L().Info("syncer: answer failed validation, no opportunity",
			zap.Int64("conversation_id", ref.id),
		)
		return true, false, nil
	}
	if err != nil {
		return false, false, err
	}

	if !result.Qualified() || result.Oportunidade == nil {
		return true, false, nil
	}

	id, err := p.sink.Create(ctx, ref.id, result.Oportunidade)
	if err != nil {
		return true, false, err
	}
	zap.L().Info("syncer: opportunity created",
		zap.Int64("conversation_id", ref.id),
		zap.String("opportunity_id", id),
		zap.Float64("score", result.ScoreValue()),
	)
	return true, true, nil
}

func (p *Pipeline) startRun(ctx context.Context, teams []string) string {
	if p.store == nil {
		return ""
	}
	run, err := p.store.CreateRun(ctx, teams)
	if err != nil {
		zap.L().Warn("syncer: could not record run start", zap.Error(err))
		return ""
	}
	return run.ID
}

func (p *Pipeline) finishRun(ctx context.Context, runID string, status model.SyncStatus, summary *model.SyncSummary) {
	if p.store == nil || runID == "" {
		return
	}
	// The run context may already be done; the record should still land.
	if err := p.store.FinishRun(context.WithoutCancel(ctx), runID, status, summary); err != nil {
		zap.L().Warn("syncer: could not record run result", zap.String("run_id", runID), zap.Error(err))
	}
}

func teamFailure(t team.Team, err error) model.TeamFailure {
	f := model.TeamFailure{TeamID: t.ID, TeamName: t.Name, Error: err.Error()}
	var se *helpdesk.StatusError
	if errors.As(err, &se) {
		f.Status = se.StatusCode
		f.Body = funnel.RawBody(se.Body)
	} else {
		f.Status = apperr.HTTPStatus(err)
	}
	return f
}
