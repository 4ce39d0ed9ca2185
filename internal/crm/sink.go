// Package crm writes qualified leads to the CRM as opportunities.
package crm

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/leadfunnel/internal/qualify"
)

// OpportunitySink creates one CRM opportunity per call and returns its id.
// Calls are not idempotent.
type OpportunitySink interface {
	Create(ctx context.Context, conversationID int64, opp *qualify.Opportunity) (string, error)
}

// MirrorSink creates in Primary and copies every success into Mirror.
// A mirror failure is logged and does not fail the call.
type MirrorSink struct {
	Primary OpportunitySink
	Mirror  OpportunitySink
}

// Create implements OpportunitySink.
func (m *MirrorSink) Create(ctx context.Context, conversationID int64, opp *qualify.Opportunity) (string, error) {
	id, err := m.Primary.Create(ctx, conversationID, opp)
	if err != nil {
		return "", err
	}
	if m.Mirror == nil {
		return id, nil
	}
	if mirrorID, mErr := m.Mirror.Create(ctx, conversationID, opp); mErr != nil {
		zap.L().Warn("crm: mirror create failed",
			zap.Int64("conversation_id", conversationID),
			zap.String("primary_id", id),
			zap.Error(mErr),
		)
	} else {
		zap.L().Debug("crm: opportunity mirrored",
			zap.Int64("conversation_id", conversationID),
			zap.String("mirror_id", mirrorID),
		)
	}
	return id, nil
}
