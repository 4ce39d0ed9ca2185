// Package funnel classifies helpdesk conversations into lead buckets, builds
// lead cards, aggregates per-team stats and fans out conversation fetches.
package funnel

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sells-group/leadfunnel/internal/model"
)

// Disqualification markers written by agents and the qualification bot.
const (
	DisqualifiedLabel  = "lead_desqualificado"
	QualificationAttr  = "qualificacao"
	DisqualifiedValue  = "desqualificado"
	DisqualifiedPhrase = "lead desqualificado"
	AnalysisAttr       = "analysis"
)

// Classify assigns conv to exactly one bucket. Precedence is disqualified,
// resolved, no contact, contact made. Every check runs so the reason trail is
// complete even when an earlier check decides the bucket. Classify does not
// modify conv.
func Classify(conv *model.Conversation) model.Decision {
	if conv == nil {
		conv = &model.Conversation{}
	}
	var reasons []string

	disqReasons := disqualificationReasons(conv)
	disqualified := len(disqReasons) > 0
	if disqualified {
		reasons = append(reasons, disqReasons...)
	} else {
		reasons = append(reasons, "no disqualification marker")
	}

	resolved := conv.Status == model.StatusResolved
	if resolved {
		reasons = append(reasons, "status is resolved")
	} else {
		reasons = append(reasons, fmt.Sprintf("status %q is not resolved", statusOrUnknown(conv.Status)))
	}

	replied := conv.FirstReplyCreatedAt != nil && *conv.FirstReplyCreatedAt != 0
	if replied {
		reasons = append(reasons, fmt.Sprintf("first reply at %d", *conv.FirstReplyCreatedAt))
	} else {
		reasons = append(reasons, "no first reply")
	}

	human := hasHumanMessage(conv.Messages)
	if human {
		reasons = append(reasons, "human message present")
	} else {
		reasons = append(reasons, "no human message")
	}

	analysis := AnalysisFrom(conv)

	var bucket model.Bucket
	switch {
	case disqualified:
		bucket = model.BucketDisqualified
	case resolved:
		bucket = model.BucketComplete
	case !replied && !human:
		bucket = model.BucketNoContact
	default:
		bucket = model.BucketContactMade
	}
	reasons = append(reasons, "bucket "+string(bucket))

	return model.Decision{
		Bucket:  bucket,
		Reasons: reasons,
		Flags: model.DecisionFlags{
			HasHumanMessage: human,
			IsResolved:      resolved,
			IsDisqualified:  disqualified,
			HasAnalysis:     analysis.Source != model.AnalysisNone,
			AnalysisSource:  analysis.Source,
		},
	}
}

// IsDisqualified reports whether any disqualification marker is present.
func IsDisqualified(conv *model.Conversation) bool {
	return len(disqualificationReasons(conv)) > 0
}

// disqualificationReasons returns one reason per matching marker. Labels
// match exactly; the attribute and the bot phrase are case-insensitive.
func disqualificationReasons(conv *model.Conversation) []string {
	var out []string
	if slices.Contains(conv.Labels, DisqualifiedLabel) {
		out = append(out, "label "+DisqualifiedLabel)
	}
	if v, ok := conv.CustomAttributes[QualificationAttr]; ok && v != nil {
		if strings.ToLower(fmt.Sprint(v)) == DisqualifiedValue {
			out = append(out, fmt.Sprintf("custom attribute %s=%v", QualificationAttr, v))
		}
	}
	if last := conv.LastNonActivityMessage; last.IsBot() {
		if strings.Contains(strings.ToLower(last.Text()), DisqualifiedPhrase) {
			out = append(out, fmt.Sprintf("bot message contains %q", DisqualifiedPhrase))
		}
	}
	return out
}

func hasHumanMessage(msgs []model.Message) bool {
	for i := range msgs {
		if msgs[i].IsHuman() {
			return true
		}
	}
	return false
}

// AnalysisFrom extracts the analysis text: a non-blank cached custom
// attribute first, then the most recent non-blank bot message.
func AnalysisFrom(conv *model.Conversation) model.Analysis {
	if s, ok := conv.CustomAttributes[AnalysisAttr].(string); ok {
		if t := strings.TrimSpace(s); t != "" {
			return model.Analysis{Text: &t, Source: model.AnalysisCached}
		}
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		m := &conv.Messages[i]
		if !m.IsBot() {
			continue
		}
		if t := strings.TrimSpace(m.Text()); t != "" {
			return model.Analysis{Text: &t, Source: model.AnalysisBotDerived}
		}
	}
	return model.Analysis{Source: model.AnalysisNone}
}

func statusOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
