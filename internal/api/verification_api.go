package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/m-2-h/TextSecure-Server/pkg/util"
)

// CodeSender delivers one-time verification codes; the registration flow
// that generates and checks them lives upstream.
type CodeSender interface {
	DeliverSmsVerification(ctx context.Context, destination, clientType, verificationCode string) error
	DeliverVoxVerification(ctx context.Context, destination, verificationCode string) error
	DeliverEmail(ctx context.Context, destination, verificationCode string) error
}

type VerificationAPI struct {
	Codes  CodeSender
	Logger *slog.Logger
}

func NewVerificationAPI(codes CodeSender, logger *slog.Logger) *VerificationAPI {
	return &VerificationAPI{
		Codes:  codes,
		Logger: logger.With("component", "VerificationAPI"),
	}
}

func (api *VerificationAPI) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sms/code/{destination}", api.DeliverCodeHandler)
}

type deliverCodeRequest struct {
	Code      string `json:"code"`
	Client    string `json:"client,omitempty"`
	Transport string `json:"transport,omitempty"` // sms (default), vox, email
}

func (api *VerificationAPI) DeliverCodeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	destination := r.PathValue("destination")

	var req deliverCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Code == "" {
		writeJSONError(w, http.StatusBadRequest, "missing code")
		return
	}

	var err error
	switch req.Transport {
	case "", "sms":
		if !util.IsValidNumber(destination) {
			writeJSONError(w, http.StatusBadRequest, "invalid destination number")
			return
		}
		err = api.Codes.DeliverSmsVerification(ctx, destination, req.Client, req.Code)
	case "vox":
		if !util.IsValidNumber(destination) {
			writeJSONError(w, http.StatusBadRequest, "invalid destination number")
			return
		}
		err = api.Codes.DeliverVoxVerification(ctx, destination, req.Code)
	case "email":
		err = api.Codes.DeliverEmail(ctx, destination, req.Code)
	default:
		writeJSONError(w, http.StatusBadRequest, "unknown transport")
		return
	}

	if err != nil {
		api.Logger.Error("code delivery failed", "transport", req.Transport, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "code delivery failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
