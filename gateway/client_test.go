package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/gateway"
	"github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestClient_GenerateOTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, gateway.RouteOTPGenerate, r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req authmodel.OTPRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "+91", req.AreaCode)
		require.Equal(t, "9876543210", req.PhoneNumber)
		require.Equal(t, authmodel.UserTypeCustomer, req.UserType)
		require.Equal(t, "login", req.Purpose)

		_ = json.NewEncoder(w).Encode(authmodel.OTPResponse{RequestID: "req-1"})
	}))
	defer srv.Close()

	c := gateway.New(srv.URL + "/")
	resp, err := c.GenerateOTP(context.Background(), authmodel.OTPRequest{
		AreaCode: "+91", PhoneNumber: "9876543210", UserType: authmodel.UserTypeCustomer, Purpose: "login",
	})
	require.NoError(t, err)
	require.Equal(t, "req-1", resp.RequestID)
}

func TestClient_ErrorMessages(t *testing.T) {
	t.Run("message from body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid OTP code"}`))
		}))
		defer srv.Close()

		_, err := gateway.New(srv.URL).ValidateOTP(context.Background(), authmodel.OTPValidation{})
		require.EqualError(t, err, "Invalid OTP code")

		var statusErr *gateway.StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	})

	t.Run("fallback to status text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := gateway.New(srv.URL).GenerateOTP(context.Background(), authmodel.OTPRequest{})
		require.EqualError(t, err, "OTP generation failed: Service Unavailable")
	})

	t.Run("refresh failure is session expired", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := gateway.New(srv.URL).Refresh(context.Background(), "rt")
		require.ErrorIs(t, err, errors.ErrSessionExpired)

		var statusErr *gateway.StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	})
}

func TestClient_BearerCalls(t *testing.T) {
	var sawLogout bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case gateway.RouteSession + "sess-1":
			_, _ = w.Write([]byte(`{"session_id":"sess-1","is_active":true,"last_accessed_at":"2025-06-01T10:00:00Z"}`))
		case gateway.RouteLogout:
			var req authmodel.LogoutRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "sess-1", req.SessionID)
			require.Equal(t, "web_dev", req.DeviceID)
			sawLogout = true
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := gateway.New(srv.URL)

	status, err := c.GetSession(context.Background(), "access-1", "sess-1")
	require.NoError(t, err)
	require.True(t, status.Active())
	require.NotNil(t, status.LastAccessedAt)

	require.NoError(t, c.Logout(context.Background(), "access-1", authmodel.LogoutRequest{SessionID: "sess-1", DeviceID: "web_dev"}))
	require.True(t, sawLogout)

	_, err = c.GetSession(context.Background(), "access-1", "unknown")
	require.Error(t, err)
}
