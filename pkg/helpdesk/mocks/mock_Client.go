// Package mocks provides test doubles for the helpdesk client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	helpdesk "github.com/sells-group/leadfunnel/pkg/helpdesk"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// ListConversations provides a mock function with given fields: ctx, q
func (_m *MockClient) ListConversations(ctx context.Context, q helpdesk.ConversationQuery) ([]byte, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for ListConversations")
	}

	var r0 []byte
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, helpdesk.ConversationQuery) ([]byte, error)); ok {
		return rf(ctx, q)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// ListMessages provides a mock function with given fields: ctx, q
func (_m *MockClient) ListMessages(ctx context.Context, q helpdesk.MessageQuery) ([]byte, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for ListMessages")
	}

	var r0 []byte
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, helpdesk.MessageQuery) ([]byte, error)); ok {
		return rf(ctx, q)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// TeamUsers provides a mock function with given fields: ctx, recipientID, teamUUID
func (_m *MockClient) TeamUsers(ctx context.Context, recipientID string, teamUUID string) ([]helpdesk.TeamUser, error) {
	ret := _m.Called(ctx, recipientID, teamUUID)

	if len(ret) == 0 {
		panic("no return value specified for TeamUsers")
	}

	var r0 []helpdesk.TeamUser
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, string) ([]helpdesk.TeamUser, error)); ok {
		return rf(ctx, recipientID, teamUUID)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]helpdesk.TeamUser)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

var _ helpdesk.Client = (*MockClient)(nil)
