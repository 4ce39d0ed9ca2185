package funnel

import "github.com/sells-group/leadfunnel/internal/model"

// Preview author values.
const (
	AuthorContact = "contact"
	AuthorAgent   = "agent"
	AuthorBot     = "bot"
)

// BuildCard projects conv into a LeadCard. Bucket is left empty; the board
// sets it after classification.
func BuildCard(conv *model.Conversation) model.LeadCard {
	analysis := AnalysisFrom(conv)
	card := model.LeadCard{
		ConversationID: conv.ID,
		UUID:           conv.UUID,
		Status:         statusOrUnknown(conv.Status),
		UnreadCount:    conv.UnreadCount,
		LastActivityAt: conv.LastActivityAt,
		Preview:        PreviewFrom(conv),
		Analysis:       analysis.Text,
		AnalysisSource: analysis.Source,
	}

	if meta := conv.Meta; meta != nil {
		if s := meta.Sender; s != nil {
			card.ContactName = s.Name
			card.ContactPhone = s.PhoneNumber
		}
		if a := meta.Assignee; a != nil {
			card.AssigneeName = a.AvailableName
			if card.AssigneeName == nil {
				card.AssigneeName = a.Name
			}
		}
		if t := meta.Team; t != nil {
			id := t.ID
			card.TeamID = &id
			if t.Name != "" {
				name := t.Name
				card.TeamName = &name
			}
		}
	}

	if card.ContactPhone == nil {
		if last := conv.LastNonActivityMessage; last != nil && last.Conversation != nil && last.Conversation.ContactInbox != nil {
			card.ContactPhone = last.Conversation.ContactInbox.SourceID
		}
	}
	return card
}

// PreviewFrom returns the last non-activity message, or else the last
// embedded message, as a preview. Both absent yields an all-nil preview.
func PreviewFrom(conv *model.Conversation) model.Preview {
	m := conv.LastNonActivityMessage
	if m == nil && len(conv.Messages) > 0 {
		m = &conv.Messages[len(conv.Messages)-1]
	}
	if m == nil {
		return model.Preview{}
	}

	p := model.Preview{Text: m.TextPtr()}
	var author string
	switch m.SenderType {
	case model.SenderContact:
		author = AuthorContact
	case model.SenderAgent:
		author = AuthorAgent
	case model.SenderBot:
		author = AuthorBot
	}
	if author != "" {
		p.Author = &author
	}
	p.CreatedAt = m.CreatedAtPtr()
	return p
}
