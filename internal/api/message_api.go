// Package api exposes the dispatch entry points over HTTP: message
// submission and explicit wake-up requests.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m-2-h/TextSecure-Server/internal/storage"
	"github.com/m-2-h/TextSecure-Server/pkg/dispatch"
	"github.com/m-2-h/TextSecure-Server/pkg/entities"
	"github.com/m-2-h/TextSecure-Server/pkg/util"
)

// MessageSender is the dispatcher surface this API drives.
type MessageSender interface {
	SendMessage(account entities.Account, device entities.Device, envelope entities.Envelope) error
	SendQueuedNotification(account entities.Account, device entities.Device) error
}

type MessageAPI struct {
	Sender    MessageSender
	Devices   storage.DeviceStore
	BlockList storage.BlockList
	Logger    *slog.Logger
}

func NewMessageAPI(sender MessageSender, devices storage.DeviceStore, blockList storage.BlockList, logger *slog.Logger) *MessageAPI {
	return &MessageAPI{
		Sender:    sender,
		Devices:   devices,
		BlockList: blockList,
		Logger:    logger.With("component", "MessageAPI"),
	}
}

// Register installs the API routes on mux.
func (api *MessageAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/messages/{destination}/{device}", api.SendMessageHandler)
	mux.HandleFunc("PUT /v1/notifications/{destination}/{device}", api.SendNotificationHandler)
}

type sendMessageRequest struct {
	Source       string `json:"source"`
	SourceDevice uint64 `json:"sourceDevice"`
	Type         int32  `json:"type"`
	Content      []byte `json:"content"`
	Timestamp    int64  `json:"timestamp"`
}

// SendMessageHandler accepts an envelope for one destination device.
// 204 means accepted for delivery, not confirmed delivered.
func (api *MessageAPI) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	destination, deviceID, ok := api.destination(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !util.IsValidNumber(req.Source) {
		writeJSONError(w, http.StatusBadRequest, "invalid source number")
		return
	}

	status, err := api.BlockList.Lookup(ctx, req.Source, destination)
	if err != nil {
		api.Logger.Error("block list lookup failed", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "block list unavailable")
		return
	}
	// An anonymous-only block does not apply here: the source is identified.
	if status.Blocked && !status.AnonymousOnly {
		writeJSONError(w, http.StatusForbidden, "destination has blocked source")
		return
	}

	device, ok := api.lookupDevice(ctx, w, destination, deviceID)
	if !ok {
		return
	}

	timestamp := req.Timestamp
	if timestamp == 0 {
		timestamp = time.Now().UnixMilli()
	}
	envelope := entities.Envelope{
		Type:         entities.EnvelopeType(req.Type),
		Source:       req.Source,
		SourceDevice: req.SourceDevice,
		Timestamp:    timestamp,
		Content:      req.Content,
		ServerGUID:   uuid.New(),
	}

	err = api.Sender.SendMessage(entities.Account{Number: destination}, device, envelope)
	if errors.Is(err, dispatch.ErrNotPushRegistered) {
		writeJSONError(w, http.StatusNotFound, "destination device is not push registered")
		return
	}
	if err != nil {
		api.Logger.Error("message dispatch rejected", "destination", destination, "device", deviceID, "err", err)
		writeJSONError(w, http.StatusServiceUnavailable, "dispatch unavailable")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SendNotificationHandler triggers a wake-up push with no payload. Transient
// gateway failures surface here, unlike during ordinary delivery.
func (api *MessageAPI) SendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	destination, deviceID, ok := api.destination(w, r)
	if !ok {
		return
	}
	device, ok := api.lookupDevice(ctx, w, destination, deviceID)
	if !ok {
		return
	}

	err := api.Sender.SendQueuedNotification(entities.Account{Number: destination}, device)
	switch {
	case errors.Is(err, dispatch.ErrNotPushRegistered):
		writeJSONError(w, http.StatusNotFound, "destination device is not push registered")
	case dispatch.IsTransientPushFailure(err):
		writeJSONError(w, http.StatusServiceUnavailable, "push gateway unavailable")
	case err != nil:
		api.Logger.Error("wake-up notification failed", "destination", destination, "device", deviceID, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "notification failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (api *MessageAPI) destination(w http.ResponseWriter, r *http.Request) (string, uint64, bool) {
	destination := r.PathValue("destination")
	deviceID, err := strconv.ParseUint(r.PathValue("device"), 10, 64)
	if !util.IsValidNumber(destination) || err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid destination")
		return "", 0, false
	}
	return destination, deviceID, true
}

func (api *MessageAPI) lookupDevice(ctx context.Context, w http.ResponseWriter, destination string, deviceID uint64) (entities.Device, bool) {
	device, err := api.Devices.GetDevice(ctx, destination, deviceID)
	if errors.Is(err, storage.ErrDeviceNotFound) {
		writeJSONError(w, http.StatusNotFound, "no such destination device")
		return entities.Device{}, false
	}
	if err != nil {
		api.Logger.Error("device lookup failed", "destination", destination, "device", deviceID, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "device lookup failed")
		return entities.Device{}, false
	}
	return device, true
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
