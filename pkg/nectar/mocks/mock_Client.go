// Package mocks provides test doubles for the Nectar client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	nectar "github.com/sells-group/leadfunnel/pkg/nectar"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// ListOpportunities provides a mock function with given fields: ctx, params
func (_m *MockClient) ListOpportunities(ctx context.Context, params nectar.ListParams) ([]nectar.Opportunity, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for ListOpportunities")
	}

	var r0 []nectar.Opportunity
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, nectar.ListParams) ([]nectar.Opportunity, error)); ok {
		return rf(ctx, params)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]nectar.Opportunity)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// CreateOpportunity provides a mock function with given fields: ctx, req
func (_m *MockClient) CreateOpportunity(ctx context.Context, req nectar.CreateRequest) (*nectar.Opportunity, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for CreateOpportunity")
	}

	var r0 *nectar.Opportunity
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, nectar.CreateRequest) (*nectar.Opportunity, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*nectar.Opportunity)
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

var _ nectar.Client = (*MockClient)(nil)
