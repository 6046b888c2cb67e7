package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-2-h/TextSecure-Server/internal/metrics"
	"github.com/m-2-h/TextSecure-Server/pkg/dispatch"
	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// FallbackConfig tunes the re-delivery cadence of the fallback manager.
type FallbackConfig struct {
	// RetryDelay is how long after a VoIP push the first fallback fires.
	RetryDelay time.Duration
	// MaxAttempts bounds fallback notifications per scheduled address.
	MaxAttempts int
	// PollInterval is how often the pending set is scanned.
	PollInterval time.Duration
}

func (c *FallbackConfig) applyDefaults() {
	if c.RetryDelay <= 0 {
		c.RetryDelay = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
}

type fallbackEntry struct {
	task      dispatch.FallbackTask
	nextRetry time.Time
	attempts  int
}

// FallbackManager compensates for silently lost VoIP notifications: once a
// VoIP push is dispatched it re-sends a standard-priority notification to the
// device's regular token on a schedule, until the device reconnects and the
// channel registry cancels the task, or the attempt budget runs out.
type FallbackManager struct {
	gateway dispatch.GatewayClient
	cfg     FallbackConfig
	logger  *slog.Logger

	retried   *metrics.Counter
	abandoned *metrics.Counter

	mu      sync.Mutex
	pending map[entities.DeliveryAddress]*fallbackEntry

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

var _ dispatch.FallbackScheduler = (*FallbackManager)(nil)
var _ dispatch.FallbackCanceler = (*FallbackManager)(nil)

func NewFallbackManager(gateway dispatch.GatewayClient, cfg FallbackConfig, registry *metrics.Registry, logger *slog.Logger) *FallbackManager {
	cfg.applyDefaults()
	m := &FallbackManager{
		gateway:   gateway,
		cfg:       cfg,
		logger:    logger.With("component", "ApnFallbackManager"),
		retried:   registry.Counter("push.apn_fallback_retries"),
		abandoned: registry.Counter("push.apn_fallback_abandoned"),
		pending:   make(map[entities.DeliveryAddress]*fallbackEntry),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	registry.RegisterGauge("push.apn_fallback_pending", m.PendingCount)
	return m
}

// Start launches the scan loop.
func (m *FallbackManager) Start() {
	go m.loop()
}

// Stop halts the scan loop. Pending tasks are discarded; fallback is an
// optimization over upstream persistence, not a delivery guarantee.
func (m *FallbackManager) Stop(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stop) })
	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule registers (or refreshes) the fallback task for an address.
func (m *FallbackManager) Schedule(address entities.DeliveryAddress, task dispatch.FallbackTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[address] = &fallbackEntry{
		task:      task,
		nextRetry: time.Now().Add(m.cfg.RetryDelay),
	}
}

// Cancel drops any pending task for an address. Invoked when the device
// reconnects over the live channel.
func (m *FallbackManager) Cancel(address entities.DeliveryAddress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, address)
}

// PendingCount reports the number of addresses with an outstanding task.
func (m *FallbackManager) PendingCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.pending))
}

func (m *FallbackManager) loop() {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.retryDue(now)
		}
	}
}

func (m *FallbackManager) retryDue(now time.Time) {
	type due struct {
		address entities.DeliveryAddress
		task    dispatch.FallbackTask
	}

	m.mu.Lock()
	var batch []due
	for address, entry := range m.pending {
		if entry.nextRetry.After(now) {
			continue
		}
		entry.attempts++
		if entry.attempts >= m.cfg.MaxAttempts {
			delete(m.pending, address)
			m.abandoned.Inc()
		} else {
			entry.nextRetry = now.Add(m.cfg.RetryDelay)
		}
		batch = append(batch, due{address: address, task: entry.task})
	}
	m.mu.Unlock()

	for _, d := range batch {
		// The VoIP class is unreliable; the fallback goes to the standard
		// token with the maximum expiration so APNs retries on our behalf.
		message := entities.NewApnMessage(d.task.ApnID, d.task.Message.Number, d.task.Message.DeviceID)
		if err := m.gateway.Send(context.Background(), message); err != nil {
			m.logger.Warn("fallback notification failed", "address", d.address.String(), "err", err)
			continue
		}
		m.retried.Inc()
	}
}
