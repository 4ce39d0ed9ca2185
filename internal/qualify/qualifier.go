// Package qualify turns a conversation transcript into a lead qualification
// using the Anthropic Messages API.
package qualify

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadfunnel/pkg/anthropic"
)

// Qualifier decides whether a transcript is a sales lead. A response that
// fails schema validation is returned as an apperr schema mismatch.
type Qualifier interface {
	Qualify(ctx context.Context, conversationID int64, transcript string) (*Result, error)
}

const systemPrompt = `You qualify sales leads for a commercial vehicle dealer (used trucks, logistics, transport and fleet rental).
Read the helpdesk conversation transcript and answer with a single JSON object and nothing else:

{
  "isQualified": boolean,            // true when the contact is a real buying opportunity
  "score": number,                   // 0-100, confidence in the qualification
  "motivo": string,                  // short objective reason
  "oportunidade": {                  // only when isQualified is true
    "nome": string,                  // opportunity name
    "probabilidade": number,         // 0-100, optional
    "valorAvulso": number,           // one-off value, optional
    "valorMensal": number,           // monthly value, optional
    "observacao": string,            // notes, optional
    "cliente": {"id": number, "nome": string, "telefones": [string]},
    "produtos": [{"nome": string, "quantidade": number, "recorrencia": number, "valor": number, "valorTotal": number}]
  }
}

Write names, reasons and notes in Brazilian Portuguese. Omit unknown optional fields instead of guessing.`

// AnthropicQualifier implements Qualifier with a single Messages API call.
type AnthropicQualifier struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicQualifier creates a qualifier that uses model.
func NewAnthropicQualifier(client anthropic.Client, model string, maxTokens int64) *AnthropicQualifier {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &AnthropicQualifier{client: client, model: model, maxTokens: maxTokens}
}

// Qualify sends the transcript and parses the structured answer.
func (q *AnthropicQualifier) Qualify(ctx context.Context, conversationID int64, transcript string) (*Result, error) {
	resp, err := q.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     q.model,
		MaxTokens: q.maxTokens,
		System:    anthropic.CachedSystem(systemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: transcript}},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "qualify: conversation %d", conversationID)
	}
	resp.Usage.LogCost(q.model, conversationID)

	result, err := ParseResult(extractText(resp))
	if err != nil {
		zap.L().Warn("qualify: model answer rejected",
			zap.Int64("conversation_id", conversationID),
			zap.String("stop_reason", resp.StopReason),
			zap.Error(err),
		)
		return nil, err
	}

	zap.L().Debug("qualify: conversation qualified",
		zap.Int64("conversation_id", conversationID),
		zap.Bool("qualified", result.Qualified()),
		zap.Float64("score", result.ScoreValue()),
	)
	return result, nil
}

// extractText concatenates all text content blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
