package channel

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/m-2-h/TextSecure-Server/pkg/entities"
)

// WebsocketHandler upgrades HTTP requests to live connections and registers
// them by delivery address. The caller identifies itself with the `number`
// and `device` query parameters; authenticating those claims is session
// management and handled upstream of this handler.
type WebsocketHandler struct {
	registry *Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWebsocketHandler(registry *Registry, logger *slog.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger.With("component", "WebsocketHandler"),
	}
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	deviceParam := r.URL.Query().Get("device")
	deviceID, err := strconv.ParseUint(deviceParam, 10, 64)
	if number == "" || err != nil {
		http.Error(w, "missing or invalid number/device", http.StatusBadRequest)
		return
	}
	address := entities.NewDeliveryAddress(number, deviceID)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Debug("websocket upgrade failed", "address", address.String(), "err", err)
		return
	}

	client := &websocketConnection{conn: conn}
	h.registry.Register(address, client)

	// Hold the connection open until the client goes away. Inbound frames
	// are drained and discarded; this channel is outbound-only.
	go func() {
		defer h.registry.Unregister(address, client)
		defer client.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// websocketConnection adapts a gorilla connection to ClientConnection.
// Gorilla connections support one concurrent writer, hence the mutex.
type websocketConnection struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *websocketConnection) SendEnvelope(envelope entities.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(envelope)
}

func (c *websocketConnection) Close() error {
	return c.conn.Close()
}
