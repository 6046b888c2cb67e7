// Package channel delivers messages over a device's live persistent
// connection. A registry tracks open connections by delivery address; the
// sender reports whether a connected client accepted the message.
package channel

import (
	"log/slog"
	"sync"

	"github.com/m-2-h/TextSecure-Server/pkg/dispatch"
	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// ClientConnection is one live connection to a device.
type ClientConnection interface {
	// SendEnvelope writes the envelope to the connected client.
	SendEnvelope(envelope entities.Envelope) error
	// Close tears the connection down.
	Close() error
}

// Registry tracks live connections by delivery address. Registering a
// connection cancels any pending APN fallback for the address, since the
// device has evidently reconnected.
type Registry struct {
	fallback dispatch.FallbackCanceler
	logger   *slog.Logger

	mu          sync.RWMutex
	connections map[entities.DeliveryAddress]ClientConnection
}

func NewRegistry(fallback dispatch.FallbackCanceler, logger *slog.Logger) *Registry {
	return &Registry{
		fallback:    fallback,
		logger:      logger.With("component", "ChannelRegistry"),
		connections: make(map[entities.DeliveryAddress]ClientConnection),
	}
}

// Register installs conn as the live connection for address, closing any
// previous one, and cancels the address's pending fallback task.
func (r *Registry) Register(address entities.DeliveryAddress, conn ClientConnection) {
	r.mu.Lock()
	previous := r.connections[address]
	r.connections[address] = conn
	r.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	r.fallback.Cancel(address)
	r.logger.Debug("connection registered", "address", address.String())
}

// Unregister removes conn if it is still the current connection for address.
// A stale connection that was already replaced is left alone.
func (r *Registry) Unregister(address entities.DeliveryAddress, conn ClientConnection) {
	r.mu.Lock()
	if r.connections[address] == conn {
		delete(r.connections, address)
	}
	r.mu.Unlock()
	r.logger.Debug("connection unregistered", "address", address.String())
}

// Get returns the live connection for address, if any.
func (r *Registry) Get(address entities.DeliveryAddress) (ClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[address]
	return conn, ok
}

// Online reports the number of live connections, for the connection gauge.
func (r *Registry) Online() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.connections))
}
