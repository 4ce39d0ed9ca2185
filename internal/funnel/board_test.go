package funnel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadfunnel/internal/apperr"
	"github.com/sells-group/leadfunnel/internal/model"
	"github.com/sells-group/leadfunnel/pkg/helpdesk"
	"github.com/sells-group/leadfunnel/pkg/helpdesk/mocks"
)

func teamQuery(teamID int64) any {
	return mock.MatchedBy(func(q helpdesk.ConversationQuery) bool { return q.TeamID == teamID })
}

func TestFetchTeams_OneTeamFailsOthersSucceed(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockClient(t)
	client.On("ListConversations", mock.Anything, teamQuery(3)).
		Return([]byte(`{"data":{"payload":[{"id":1},{"id":2}]}}`), nil)
	client.On("ListConversations", mock.Anything, teamQuery(5)).
		Return(nil, apperr.Upstream(500, &helpdesk.StatusError{StatusCode: 500, Body: []byte(`{"error":"boom"}`)}))
	client.On("ListConversations", mock.Anything, teamQuery(8)).
		Return([]byte(`[{"id":3}]`), nil)

	results := NewFetcher(client).FetchTeams(context.Background(), FetchRequest{AccountID: 7, TeamIDs: []int64{3, 5, 8}})

	require.Len(t, results, 3)
	assert.True(t, results[0].OK)
	assert.Len(t, results[0].Conversations, 2)

	assert.False(t, results[1].OK)
	assert.Equal(t, int64(5), results[1].TeamID)
	assert.Equal(t, 500, results[1].Status)
	assert.JSONEq(t, `{"error":"boom"}`, string(results[1].Body))
	assert.Empty(t, results[1].Conversations)

	assert.True(t, results[2].OK)
	assert.Equal(t, "@this", results[2].Path)
}

func TestFetchTeams_TransportFailure(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockClient(t)
	client.On("ListConversations", mock.Anything, mock.Anything).
		Return(nil, apperr.Transport(errors.New("dial tcp: connection refused")))

	results := NewFetcher(client).FetchTeams(context.Background(), FetchRequest{TeamIDs: []int64{3}})

	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Equal(t, 502, results[0].Status)
	assert.Contains(t, string(results[0].Body), "transport_error")
	assert.Contains(t, results[0].Failure().Error, "connection refused")
}

func TestFetchTeams_PassesFilters(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockClient(t)
	client.On("ListConversations", mock.Anything, helpdesk.ConversationQuery{
		AccountID:    7,
		TeamID:       3,
		Status:       "open",
		AssigneeType: "all",
		Before:       "123",
		Token:        "inbound",
	}).Return([]byte(`[]`), nil).Once()

	results := NewFetcher(client).FetchTeams(context.Background(), FetchRequest{
		AccountID:    7,
		TeamIDs:      []int64{3},
		Status:       "open",
		AssigneeType: "all",
		Before:       "123",
		Token:        "inbound",
	})
	require.Len(t, results, 1)
	assert.True(t, results[0].OK)
}

func TestBoardRun_ClassifiesSortsAndReportsFailures(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockClient(t)
	client.On("ListConversations", mock.Anything, teamQuery(3)).Return([]byte(`{
		"data": {
			"meta": {"all_count": 2},
			"payload": [
				{"id": 10, "status": "open", "last_activity_at": 100, "labels": ["lead_desqualificado"], "meta": {"team": {"id": 3}}},
				{"id": 11, "status": "resolved", "last_activity_at": 300, "meta": {"team": {"id": 3}}}
			]
		}
	}`), nil)
	client.On("ListConversations", mock.Anything, teamQuery(5)).Return([]byte(`{
		"payload": [
			{"id": 20, "last_activity_at": 200, "first_reply_created_at": 0, "messages": []},
			{"id": 21, "last_activity_at": 200, "first_reply_created_at": 0, "messages": [{"sender_type": "Contact", "content": "oi"}]}
		]
	}`), nil)
	client.On("ListConversations", mock.Anything, teamQuery(8)).
		Return(nil, apperr.Upstream(401, &helpdesk.StatusError{StatusCode: 401, Body: []byte(`Unauthorized`)}))

	res, err := NewBoard(client).Run(context.Background(), FetchRequest{AccountID: 7, TeamIDs: []int64{3, 5, 8}})
	require.NoError(t, err)

	ids := make([]int64, 0, len(res.Items))
	buckets := make(map[int64]model.Bucket)
	for _, c := range res.Items {
		ids = append(ids, c.ConversationID)
		buckets[c.ConversationID] = c.Bucket
	}
	assert.Equal(t, []int64{11, 21, 20, 10}, ids)
	assert.Equal(t, model.BucketDisqualified, buckets[10])
	assert.Equal(t, model.BucketComplete, buckets[11])
	assert.Equal(t, model.BucketNoContact, buckets[20])
	assert.Equal(t, model.BucketContactMade, buckets[21])

	assert.Equal(t, int64(7), res.Meta.AccountID)
	assert.Equal(t, 4, res.Meta.Total)
	require.Len(t, res.Meta.FailedTeams, 1)
	assert.Equal(t, int64(8), res.Meta.FailedTeams[0].TeamID)
	assert.Equal(t, 401, res.Meta.FailedTeams[0].Status)
	assert.JSONEq(t, `{"raw":"Unauthorized"}`, string(res.Meta.FailedTeams[0].Body))
	assert.JSONEq(t, `{"all_count":2}`, string(res.Meta.Upstream["3"]))

	require.NotNil(t, res.Debug)
	require.Len(t, res.Debug.Stats, 2)
	for _, s := range res.Debug.Stats {
		assert.Equal(t, s.Total, s.BucketSum())
	}
	assert.Equal(t, int64(3), res.Debug.Stats[0].TeamID)
	assert.Equal(t, 1, res.Debug.Stats[0].Resolved)
	assert.Equal(t, model.BucketDisqualified, res.Debug.Decisions["3:10"].Bucket)
	assert.Equal(t, "payload", res.Debug.Envelopes["5"].Path)
}

func TestBoardRun_AllTeamsFailStillReturnsResult(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockClient(t)
	client.On("ListConversations", mock.Anything, mock.Anything).
		Return(nil, apperr.Upstream(503, &helpdesk.StatusError{StatusCode: 503}))

	res, err := NewBoard(client).Run(context.Background(), FetchRequest{AccountID: 1, TeamIDs: []int64{3, 5}})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Len(t, res.Meta.FailedTeams, 2)

	out, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"items":[]`)
	assert.Contains(t, string(out), `"total":0`)
}

func TestBoardRun_CancelledContext(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockClient(t)
	client.On("ListConversations", mock.Anything, mock.Anything).
		Return(nil, apperr.Transport(context.Canceled)).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBoard(client).Run(ctx, FetchRequest{TeamIDs: []int64{3}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoardRun_DecisionsKeyedByTeam(t *testing.T) {
	t.Parallel()

	client := mocks.NewMockClient(t)
	client.On("ListConversations", mock.Anything, teamQuery(3)).Return([]byte(`{
		"payload": [{"id": 10, "status": "resolved", "last_activity_at": 100}]
	}`), nil)
	client.On("ListConversations", mock.Anything, teamQuery(5)).Return([]byte(`{
		"payload": [{"id": 10, "status": "open", "last_activity_at": 100, "labels": ["lead_desqualificado"]}]
	}`), nil)

	res, err := NewBoard(client).Run(context.Background(), FetchRequest{AccountID: 7, TeamIDs: []int64{3, 5}})
	require.NoError(t, err)

	require.Len(t, res.Debug.Decisions, 2)
	assert.Equal(t, model.BucketComplete, res.Debug.Decisions["3:10"].Bucket)
	assert.Equal(t, model.BucketDisqualified, res.Debug.Decisions["5:10"].Bucket)
}
