package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trimooo/SecurePasskey/internal/dtos"
	"github.com/trimooo/SecurePasskey/internal/utils"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeAndValidateMalformedBody(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))

	var dst dtos.ClaimQRRequest
	require.False(t, decodeAndValidate(w, r, &dst))
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeErrorBody(t, w)
	require.Equal(t, utils.ErrCodeInvalidPayload, body["code"])
	// the decode error is logged, never echoed to the client
	require.NotContains(t, body, "details")
}

func TestDecodeAndValidateFailedValidation(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"challengeId":"not-a-uuid"}`))

	var dst dtos.ClaimQRRequest
	require.False(t, decodeAndValidate(w, r, &dst))
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeErrorBody(t, w)
	require.Equal(t, utils.ErrCodeValidation, body["code"])
	require.NotContains(t, body, "details")
}

func TestRespondServiceErrorHidesInternals(t *testing.T) {
	for _, tc := range []struct {
		name     string
		err      error
		wantCode string
		status   int
	}{
		{"unexpected error", errors.New("pq: connection refused"), utils.ErrCodeInternal, http.StatusInternalServerError},
		{"provider failure", utils.ErrExternalServiceFailure, utils.ErrCodeExternalService, http.StatusBadGateway},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			respondServiceError(w, tc.err)
			require.Equal(t, tc.status, w.Code)

			body := decodeErrorBody(t, w)
			require.Equal(t, tc.wantCode, body["code"])
			require.NotContains(t, body, "details")
			require.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}
