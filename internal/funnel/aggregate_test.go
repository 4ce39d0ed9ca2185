package funnel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadfunnel/internal/model"
)

func TestAggregator_Counts(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	convs := []*model.Conversation{
		{Labels: []string{DisqualifiedLabel}, Status: model.StatusResolved},
		{Status: model.StatusResolved, CustomAttributes: map[string]any{"analysis": "ok"}},
		{},
		{FirstReplyCreatedAt: int64Ptr(10), Messages: []model.Message{{SenderType: model.SenderBot, Content: strPtr("resumo")}}},
	}
	for _, c := range convs {
		agg.Observe(3, Classify(c))
	}
	agg.Observe(5, Classify(&model.Conversation{}))

	s, ok := agg.Team(3)
	require.True(t, ok)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, map[model.Bucket]int{
		model.BucketNoContact:    1,
		model.BucketContactMade:  1,
		model.BucketDisqualified: 1,
		model.BucketComplete:     1,
	}, s.Buckets)
	assert.Equal(t, 2, s.AnalysisAny)
	assert.Equal(t, 1, s.AnalysisSources[model.AnalysisCached])
	assert.Equal(t, 1, s.AnalysisSources[model.AnalysisBotDerived])
	assert.Equal(t, 0, s.AnalysisSources[model.AnalysisNone])
	assert.Equal(t, 1, s.Disqualified)
	assert.Equal(t, 2, s.Resolved)

	snap := agg.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(3), snap[0].TeamID)
	assert.Equal(t, int64(5), snap[1].TeamID)

	_, ok = agg.Team(99)
	assert.False(t, ok)
}

func TestAggregator_SnapshotIsACopy(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	agg.Observe(1, Classify(&model.Conversation{}))

	snap := agg.Snapshot()
	snap[0].Total = 100
	snap[0].Buckets[model.BucketNoContact] = 100

	s, _ := agg.Team(1)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.Buckets[model.BucketNoContact])
}

func TestAggregator_ConcurrentObserveKeepsBucketSumEqualToTotal(t *testing.T) {
	t.Parallel()

	agg := NewAggregator()
	samples := []*model.Conversation{
		{Labels: []string{DisqualifiedLabel}},
		{Status: model.StatusResolved},
		{},
		{FirstReplyCreatedAt: int64Ptr(1)},
	}

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				c := samples[(worker+i)%len(samples)]
				agg.Observe(int64(i%3), Classify(c))
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, s := range agg.Snapshot() {
		assert.Equal(t, s.Total, s.BucketSum(), "team %d", s.TeamID)
		total += s.Total
	}
	assert.Equal(t, 2000, total)
}
