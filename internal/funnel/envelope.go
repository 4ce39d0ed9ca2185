package funnel

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/sells-group/leadfunnel/internal/model"
)

// Candidate gjson paths, tried in order; the first that holds an array wins.
// "@this" matches a bare top-level array.
var (
	ConversationPaths = []string{"data.payload", "payload", "data", "@this"}
	MessagePaths      = []string{"payload", "data.payload", "data", "@this"}
	MetaPaths         = []string{"data.meta", "meta"}
)

// Diagnostics explaining why an envelope produced no list.
const (
	DiagInvalidJSON = "invalid_json"
	DiagNoList      = "no_list_at_known_paths"
)

// Decoded is the normalized list extracted from an envelope.
type Decoded[T any] struct {
	Items []T
	// Path is the candidate path that matched, empty when none did.
	Path string
	// Diagnostic is set when no path matched and Items defaulted to empty.
	Diagnostic string
	// Skipped counts elements that were present but failed to decode.
	Skipped int
}

// ExtractList returns the first array found under paths, along with the
// matching path. When the body is not JSON or no path holds an array, the
// returned diagnostic is non-empty and the slice is nil.
func ExtractList(body []byte, paths []string) ([]gjson.Result, string, string) {
	if !gjson.ValidBytes(body) {
		return nil, "", DiagInvalidJSON
	}
	for _, p := range paths {
		res := gjson.GetBytes(body, p)
		if res.IsArray() {
			return res.Array(), p, ""
		}
	}
	return nil, "", DiagNoList
}

func decodeList[T any](body []byte, paths []string) Decoded[T] {
	raw, path, diag := ExtractList(body, paths)
	out := Decoded[T]{Items: make([]T, 0, len(raw)), Path: path, Diagnostic: diag}
	for i, el := range raw {
		var v T
		if err := json.Unmarshal([]byte(el.Raw), &v); err != nil {
			zap.L().Warn("funnel: skipping undecodable element",
				zap.String("path", path),
				zap.Int("index", i),
				zap.Error(err),
			)
			out.Skipped++
			continue
		}
		out.Items = append(out.Items, v)
	}
	return out
}

// DecodeConversations normalizes a conversations response body.
func DecodeConversations(body []byte) Decoded[model.Conversation] {
	return decodeList[model.Conversation](body, ConversationPaths)
}

// DecodeMessages normalizes a messages response body.
func DecodeMessages(body []byte) Decoded[model.Message] {
	return decodeList[model.Message](body, MessagePaths)
}

// ExtractMeta returns the upstream meta object (conversation counts) if the
// envelope carries one.
func ExtractMeta(body []byte) json.RawMessage {
	for _, p := range MetaPaths {
		res := gjson.GetBytes(body, p)
		if res.IsObject() {
			return json.RawMessage(res.Raw)
		}
	}
	return nil
}

// RawBody returns body as JSON, wrapping non-JSON text as {"raw": text}.
func RawBody(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if gjson.ValidBytes(body) {
		return json.RawMessage(body)
	}
	wrapped, err := json.Marshal(map[string]string{"raw": string(body)})
	if err != nil {
		return nil
	}
	return wrapped
}
