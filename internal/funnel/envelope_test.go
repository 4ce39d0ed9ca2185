package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConversations_Envelopes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantIDs  []int64
		wantPath string
		wantDiag string
	}{
		{"data.payload", `{"data":{"meta":{"all_count":2},"payload":[{"id":1},{"id":2}]}}`, []int64{1, 2}, "data.payload", ""},
		{"payload", `{"payload":[{"id":3}]}`, []int64{3}, "payload", ""},
		{"data array", `{"data":[{"id":4}]}`, []int64{4}, "data", ""},
		{"bare array", `[{"id":5},{"id":6}]`, []int64{5, 6}, "@this", ""},
		{"data.payload wins over payload", `{"payload":[{"id":7}],"data":{"payload":[{"id":8}]}}`, []int64{8}, "data.payload", ""},
		{"payload not an array falls through", `{"data":{"payload":{"id":1}},"payload":[{"id":9}]}`, []int64{9}, "payload", ""},
		{"empty list", `{"data":{"payload":[]}}`, []int64{}, "data.payload", ""},
		{"no known path", `{"conversations":[{"id":1}]}`, []int64{}, "", DiagNoList},
		{"invalid json", `<html>bad gateway</html>`, []int64{}, "", DiagInvalidJSON},
		{"empty body", ``, []int64{}, "", DiagInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := DecodeConversations([]byte(tt.body))
			ids := make([]int64, 0, len(got.Items))
			for _, c := range got.Items {
				ids = append(ids, c.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantPath, got.Path)
			assert.Equal(t, tt.wantDiag, got.Diagnostic)
			assert.NotNil(t, got.Items)
		})
	}
}

func TestDecodeConversations_SkipsUndecodableElements(t *testing.T) {
	t.Parallel()

	body := `{"payload":[{"id":1},"not an object",{"id":"abc"},{"id":2}]}`
	got := DecodeConversations([]byte(body))

	require.Len(t, got.Items, 2)
	assert.Equal(t, int64(1), got.Items[0].ID)
	assert.Equal(t, int64(2), got.Items[1].ID)
	assert.Equal(t, 2, got.Skipped)
}

func TestDecodeMessages_PrefersPayload(t *testing.T) {
	t.Parallel()

	got := DecodeMessages([]byte(`{"meta":{},"payload":[{"id":10,"sender_type":"Contact","content":"oi","created_at":5}]}`))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "payload", got.Path)
	assert.Equal(t, "oi", got.Items[0].Text())
	assert.Equal(t, int64(5), got.Items[0].CreatedAt)
}

func TestCandidatePathsAreData(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"data.payload", "payload", "data", "@this"}, ConversationPaths)
	assert.Equal(t, "@this", MessagePaths[len(MessagePaths)-1])

	items, path, diag := ExtractList([]byte(`{"x":{"y":[1,2,3]}}`), []string{"x.z", "x.y"})
	assert.Len(t, items, 3)
	assert.Equal(t, "x.y", path)
	assert.Empty(t, diag)
}

func TestExtractMeta(t *testing.T) {
	t.Parallel()

	assert.JSONEq(t, `{"all_count":3}`, string(ExtractMeta([]byte(`{"data":{"meta":{"all_count":3},"payload":[]}}`))))
	assert.JSONEq(t, `{"mine_count":1}`, string(ExtractMeta([]byte(`{"meta":{"mine_count":1},"payload":[]}`))))
	assert.Nil(t, ExtractMeta([]byte(`[]`)))
}

func TestRawBody(t *testing.T) {
	t.Parallel()

	assert.JSONEq(t, `{"error":"x"}`, string(RawBody([]byte(`{"error":"x"}`))))
	assert.JSONEq(t, `{"raw":"Bad Gateway"}`, string(RawBody([]byte(`Bad Gateway`))))
	assert.Nil(t, RawBody(nil))
}
