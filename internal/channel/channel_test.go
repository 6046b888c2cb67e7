package channel_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m-2-h/TextSecure-Server/internal/channel"
	"github.com/m-2-h/TextSecure-Server/internal/metrics"
	"github.com/m-2-h/TextSecure-Server/pkg/dispatch"
	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// --- Mocks ---

type MockCanceler struct {
	mock.Mock
}

func (m *MockCanceler) Cancel(address entities.DeliveryAddress) {
	m.Called(address)
}

type MockConnection struct {
	mock.Mock
}

func (m *MockConnection) SendEnvelope(envelope entities.Envelope) error {
	return m.Called(envelope).Error(0)
}

func (m *MockConnection) Close() error {
	return m.Called().Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testAddress = entities.NewDeliveryAddress("+14151231234", 1)

func TestRegistry_RegisterCancelsPendingFallback(t *testing.T) {
	canceler := new(MockCanceler)
	registry := channel.NewRegistry(canceler, testLogger())

	canceler.On("Cancel", testAddress).Return()

	conn := new(MockConnection)
	registry.Register(testAddress, conn)

	canceler.AssertExpectations(t)
	got, ok := registry.Get(testAddress)
	require.True(t, ok)
	assert.Same(t, conn, got.(*MockConnection))
	assert.Equal(t, int64(1), registry.Online())
}

func TestRegistry_RegisterClosesReplacedConnection(t *testing.T) {
	canceler := new(MockCanceler)
	registry := channel.NewRegistry(canceler, testLogger())
	canceler.On("Cancel", testAddress).Return()

	first := new(MockConnection)
	first.On("Close").Return(nil)
	second := new(MockConnection)

	registry.Register(testAddress, first)
	registry.Register(testAddress, second)

	first.AssertCalled(t, "Close")
	got, ok := registry.Get(testAddress)
	require.True(t, ok)
	assert.Same(t, second, got.(*MockConnection))
	assert.Equal(t, int64(1), registry.Online())
}

func TestRegistry_UnregisterIgnoresStaleConnection(t *testing.T) {
	canceler := new(MockCanceler)
	registry := channel.NewRegistry(canceler, testLogger())
	canceler.On("Cancel", testAddress).Return()

	stale := new(MockConnection)
	stale.On("Close").Return(nil)
	current := new(MockConnection)

	registry.Register(testAddress, stale)
	registry.Register(testAddress, current)

	// The stale connection's read loop races its own teardown against the
	// replacement; it must not evict the replacement.
	registry.Unregister(testAddress, stale)
	_, ok := registry.Get(testAddress)
	assert.True(t, ok)

	registry.Unregister(testAddress, current)
	_, ok = registry.Get(testAddress)
	assert.False(t, ok)
	assert.Equal(t, int64(0), registry.Online())
}

func TestSender_Send(t *testing.T) {
	ctx := context.Background()
	account := entities.Account{Number: testAddress.Number}
	device := entities.Device{ID: testAddress.DeviceID, ApplePushID: "apn-token"}
	envelope := entities.Envelope{Type: entities.EnvelopeTypeCiphertext, Content: []byte("payload")}

	newSender := func(t *testing.T) (*channel.Sender, *channel.Registry, *metrics.Registry) {
		t.Helper()
		canceler := new(MockCanceler)
		canceler.On("Cancel", mock.Anything).Return()
		registry := channel.NewRegistry(canceler, testLogger())
		registryMetrics := metrics.NewRegistry()
		return channel.NewSender(registry, registryMetrics, testLogger()), registry, registryMetrics
	}

	t.Run("no live connection is non-delivery", func(t *testing.T) {
		sender, _, registryMetrics := newSender(t)

		status, err := sender.Send(ctx, account, device, envelope, dispatch.ChannelAPN)

		require.NoError(t, err)
		assert.False(t, status.Delivered)
		assert.Equal(t, int64(1), registryMetrics.Counter("channel.offline.apn").Value())
	})

	t.Run("connected client accepts the envelope", func(t *testing.T) {
		sender, registry, registryMetrics := newSender(t)

		conn := new(MockConnection)
		conn.On("SendEnvelope", envelope).Return(nil)
		registry.Register(testAddress, conn)

		status, err := sender.Send(ctx, account, device, envelope, dispatch.ChannelAPN)

		require.NoError(t, err)
		assert.True(t, status.Delivered)
		assert.Equal(t, int64(1), registryMetrics.Counter("channel.online.apn").Value())
		conn.AssertExpectations(t)
	})

	t.Run("write failure evicts the connection", func(t *testing.T) {
		sender, registry, _ := newSender(t)

		conn := new(MockConnection)
		conn.On("SendEnvelope", envelope).Return(assert.AnError)
		conn.On("Close").Return(nil)
		registry.Register(testAddress, conn)

		status, err := sender.Send(ctx, account, device, envelope, dispatch.ChannelWeb)

		require.NoError(t, err)
		assert.False(t, status.Delivered)
		_, ok := registry.Get(testAddress)
		assert.False(t, ok)
		conn.AssertExpectations(t)
	})
}
