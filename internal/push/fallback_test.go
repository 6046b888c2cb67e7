package push

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m-2-h/TextSecure-Server/internal/metrics"
	"github.com/m-2-h/TextSecure-Server/pkg/dispatch"
	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

func newTestFallbackManager(t *testing.T, gateway *MockGateway) *FallbackManager {
	t.Helper()
	manager := NewFallbackManager(gateway, FallbackConfig{
		RetryDelay:   20 * time.Millisecond,
		MaxAttempts:  2,
		PollInterval: 5 * time.Millisecond,
	}, metrics.NewRegistry(), testLogger())
	manager.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = manager.Stop(ctx)
	})
	return manager
}

func voipFallbackTask() (entities.DeliveryAddress, dispatch.FallbackTask) {
	address := entities.NewDeliveryAddress("+14151231234", 2)
	message := entities.NewVoipApnMessage("voip-token", address.Number, address.DeviceID, time.Now().Add(VoipExpiration))
	return address, dispatch.FallbackTask{ApnID: "apn-token", Message: message}
}

func TestFallbackManager_RetriesWithStandardToken(t *testing.T) {
	gateway := new(MockGateway)
	manager := newTestFallbackManager(t, gateway)

	sent := make(chan entities.ApnMessage, 4)
	gateway.On("Send", mock.Anything).Run(func(args mock.Arguments) {
		sent <- args.Get(0).(entities.ApnMessage)
	}).Return(nil)

	address, task := voipFallbackTask()
	manager.Schedule(address, task)
	assert.Equal(t, int64(1), manager.PendingCount())

	select {
	case message := <-sent:
		// The retry goes to the regular token, not the VoIP one.
		assert.Equal(t, "apn-token", message.Token)
		assert.False(t, message.VoIP)
		assert.True(t, message.Expiration.Equal(entities.ApnMaxExpiration))
	case <-time.After(2 * time.Second):
		t.Fatal("fallback never fired")
	}
}

func TestFallbackManager_CancelPreventsRetry(t *testing.T) {
	gateway := new(MockGateway)
	manager := newTestFallbackManager(t, gateway)

	address, task := voipFallbackTask()
	manager.Schedule(address, task)
	manager.Cancel(address)

	assert.Equal(t, int64(0), manager.PendingCount())
	time.Sleep(100 * time.Millisecond)
	gateway.AssertNotCalled(t, "Send", mock.Anything)
}

func TestFallbackManager_AbandonsAfterMaxAttempts(t *testing.T) {
	gateway := new(MockGateway)
	manager := newTestFallbackManager(t, gateway)

	gateway.On("Send", mock.Anything).Return(nil)

	address, task := voipFallbackTask()
	manager.Schedule(address, task)

	require.Eventually(t, func() bool {
		return manager.PendingCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Attempt budget is 2, so exactly two notifications went out.
	time.Sleep(100 * time.Millisecond)
	gateway.AssertNumberOfCalls(t, "Send", 2)
}

func TestFallbackManager_RescheduleResetsAttempts(t *testing.T) {
	gateway := new(MockGateway)
	manager := newTestFallbackManager(t, gateway)

	var sends atomic.Int64
	gateway.On("Send", mock.Anything).Run(func(mock.Arguments) {
		sends.Add(1)
	}).Return(nil)

	address, task := voipFallbackTask()
	manager.Schedule(address, task)
	assert.Equal(t, int64(1), manager.PendingCount())

	require.Eventually(t, func() bool {
		return sends.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)

	// A refreshed schedule starts the attempt budget over: still one pending
	// slot, but the address now gets more notifications than a single
	// schedule's two attempts would allow.
	manager.Schedule(address, task)
	assert.Equal(t, int64(1), manager.PendingCount())

	require.Eventually(t, func() bool {
		return manager.PendingCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, sends.Load(), int64(3))
}
