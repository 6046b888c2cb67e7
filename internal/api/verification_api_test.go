package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m-2-h/TextSecure-Server/internal/api"
)

type MockCodeSender struct {
	mock.Mock
}

func (m *MockCodeSender) DeliverSmsVerification(ctx context.Context, destination, clientType, verificationCode string) error {
	return m.Called(destination, clientType, verificationCode).Error(0)
}

func (m *MockCodeSender) DeliverVoxVerification(ctx context.Context, destination, verificationCode string) error {
	return m.Called(destination, verificationCode).Error(0)
}

func (m *MockCodeSender) DeliverEmail(ctx context.Context, destination, verificationCode string) error {
	return m.Called(destination, verificationCode).Error(0)
}

func postCode(t *testing.T, codes *MockCodeSender, dest, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	api.NewVerificationAPI(codes, testLogger()).Register(mux)
	req := httptest.NewRequest(http.MethodPost, "/v1/sms/code/"+dest, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestDeliverCodeHandler(t *testing.T) {
	t.Run("sms is the default transport", func(t *testing.T) {
		codes := new(MockCodeSender)
		codes.On("DeliverSmsVerification", destination, "ios", "123-456").Return(nil)

		rec := postCode(t, codes, destination, `{"code":"123-456","client":"ios"}`)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		codes.AssertExpectations(t)
	})

	t.Run("vox transport", func(t *testing.T) {
		codes := new(MockCodeSender)
		codes.On("DeliverVoxVerification", destination, "123-456").Return(nil)

		rec := postCode(t, codes, destination, `{"code":"123-456","transport":"vox"}`)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		codes.AssertExpectations(t)
	})

	t.Run("email transport skips number validation", func(t *testing.T) {
		codes := new(MockCodeSender)
		codes.On("DeliverEmail", "user@example.com", "123-456").Return(nil)

		rec := postCode(t, codes, "user@example.com", `{"code":"123-456","transport":"email"}`)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		codes.AssertExpectations(t)
	})

	t.Run("invalid number rejected for sms", func(t *testing.T) {
		codes := new(MockCodeSender)

		rec := postCode(t, codes, "bogus", `{"code":"123-456"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		codes.AssertNotCalled(t, "DeliverSmsVerification", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing code rejected", func(t *testing.T) {
		rec := postCode(t, new(MockCodeSender), destination, `{"client":"ios"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown transport rejected", func(t *testing.T) {
		rec := postCode(t, new(MockCodeSender), destination, `{"code":"123-456","transport":"carrier-pigeon"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
