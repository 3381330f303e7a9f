package events

import (
	"testing"
	"time"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventBus is a mock for EventBus.Bus
type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Subscribe(topic string, fn interface{}) error {
	args := m.Called(topic, fn)
	return args.Error(0)
}

func (m *MockEventBus) SubscribeAsync(topic string, fn interface{}, transactional bool) error {
	args := m.Called(topic, fn, transactional)
	return args.Error(0)
}

func (m *MockEventBus) SubscribeOnce(topic string, fn interface{}) error {
	args := m.Called(topic, fn)
	return args.Error(0)
}

func (m *MockEventBus) SubscribeOnceAsync(topic string, fn interface{}) error {
	args := m.Called(topic, fn)
	return args.Error(0)
}

func (m *MockEventBus) Unsubscribe(topic string, handler interface{}) error {
	args := m.Called(topic, handler)
	return args.Error(0)
}

func (m *MockEventBus) Publish(topic string, args ...interface{}) {
	m.Called(append([]interface{}{topic}, args...)...)
}

func (m *MockEventBus) HasCallback(topic string) bool {
	args := m.Called(topic)
	return args.Bool(0)
}

func (m *MockEventBus) WaitAsync() {
	m.Called()
}

const (
	pulledHandlerType = "func(*domain.SyncPulledEvent)"
	pushedHandlerType = "func(*domain.SyncPushedEvent)"
)

func TestNewSubscribers(t *testing.T) {
	mockBus := new(MockEventBus)

	var capturedHandler interface{}
	mockBus.On("Subscribe", domain.EventSyncPulled, mock.AnythingOfType(pulledHandlerType)).
		Run(func(args mock.Arguments) {
			capturedHandler = args.Get(1)
		}).
		Return(nil)
	mockBus.On("Subscribe", domain.EventSyncPushed, mock.AnythingOfType(pushedHandlerType)).Return(nil)

	var reloaded *domain.SyncPayload
	_ = NewSubscribers(logger.Mock(), mockBus, func(p domain.SyncPayload) {
		reloaded = &p
	})

	mockBus.AssertExpectations(t)
	require.NotNil(t, capturedHandler)

	handlerFunc, ok := capturedHandler.(func(*domain.SyncPulledEvent))
	require.True(t, ok, "captured handler is not of the expected type")

	payload := domain.SyncPayload{DoneIDs: []int{1, 2}}.Normalize()
	handlerFunc(&domain.SyncPulledEvent{Room: "abc123", Payload: payload, At: time.Now()})

	require.NotNil(t, reloaded)
	assert.Equal(t, payload, *reloaded)
}

func TestSubscriber_Register_SubscribeError(t *testing.T) {
	mockBus := new(MockEventBus)
	mockBus.On("Subscribe", domain.EventSyncPulled, mock.AnythingOfType(pulledHandlerType)).Return(assert.AnError)
	mockBus.On("Subscribe", domain.EventSyncPushed, mock.AnythingOfType(pushedHandlerType)).Return(assert.AnError)

	assert.NotPanics(t, func() {
		_ = NewSubscribers(logger.Mock(), mockBus, nil)
	})
	mockBus.AssertExpectations(t)
}

func TestSubscriber_WithRealBus(t *testing.T) {
	bus := EventBus.New()

	reloads := 0
	_ = NewSubscribers(logger.Mock(), bus, func(domain.SyncPayload) { reloads++ })

	bus.Publish(domain.EventSyncPulled, &domain.SyncPulledEvent{Room: "r", Payload: domain.SyncPayload{}.Normalize()})
	bus.Publish(domain.EventSyncPushed, &domain.SyncPushedEvent{Room: "r", Bytes: 2048, At: time.Now()})

	assert.Equal(t, 1, reloads)
}
