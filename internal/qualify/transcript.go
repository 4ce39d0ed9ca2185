package qualify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/leadfunnel/internal/model"
)

// Window returns the last n messages by created_at ascending. The input
// slice is not modified. n <= 0 keeps every message.
func Window(msgs []model.Message, n int) []model.Message {
	sorted := make([]model.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt < sorted[j].CreatedAt })
	if n > 0 && len(sorted) > n {
		sorted = sorted[len(sorted)-n:]
	}
	return sorted
}

// Transcript renders messages as one "(<created_at>) <text>" line each,
// under a header naming the conversation. A message's processed content is
// used when present, otherwise its raw content.
func Transcript(conversationID int64, msgs []model.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Histórico da conversa #%d:", conversationID)
	for i := range msgs {
		fmt.Fprintf(&b, "\n(%d) %s", msgs[i].CreatedAt, msgs[i].Text())
	}
	return b.String()
}
