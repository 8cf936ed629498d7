package common

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorUsesAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, BadRequest("payment-gateway is required", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var body map[string]ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, CodeBadRequest, body["error"].Code)
	require.Equal(t, "payment-gateway is required", body["error"].Message)
}

func TestWriteErrorWrapsUnknown(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, "10.0.0.1", ClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	require.Equal(t, "10.0.0.2", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.3")
	require.Equal(t, "203.0.113.9", ClientIP(req))
}
