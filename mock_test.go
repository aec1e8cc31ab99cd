package namedmsg

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRegistry struct {
	m mock.Mock
}

func (r *MockRegistry) Bind(name string) (Endpoint, error) {
	args := r.m.Called(name)
	ep, _ := args.Get(0).(Endpoint)
	return ep, args.Error(1)
}

func (r *MockRegistry) Resolve(_ context.Context, name string) (Link, error) {
	args := r.m.Called(name)
	link, _ := args.Get(0).(Link)
	return link, args.Error(1)
}

type MockEndpoint struct {
	m mock.Mock
}

func (ep *MockEndpoint) Name() string {
	return "ep1"
}

func (ep *MockEndpoint) Receive(_ context.Context) (Delivery, error) {
	args := ep.m.Called()
	return args.Get(0).(Delivery), args.Error(1)
}

func (ep *MockEndpoint) Close() error {
	return ep.m.Called().Error(0)
}

type MockLink struct {
	m mock.Mock
}

func (l *MockLink) Send(_ context.Context, msg Message) (Status, error) {
	args := l.m.Called(msg.Text())
	return args.Get(0).(Status), args.Error(1)
}

func (l *MockLink) Pulse(_ context.Context) error {
	return l.m.Called().Error(0)
}

func (l *MockLink) Close() error {
	return l.m.Called().Error(0)
}
