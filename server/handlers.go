package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// maxBodyBytes bounds request bodies
const maxBodyBytes = 64 * 1024

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "app": s.config.GetAppName()})
	}
}

func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// GenerateOTPHandler sends a code to the phone number
func (s *Server) GenerateOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request authmodel.OTPRequest
		if !decodeBody(w, r, &request) {
			return
		}
		resp, err := s.auth.GenerateOTP(request)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ValidateOTPHandler exchanges a code for a token set
func (s *Server) ValidateOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var validation authmodel.OTPValidation
		if !decodeBody(w, r, &validation) {
			return
		}
		resp, err := s.auth.ValidateOTP(validation)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var request authmodel.RefreshRequest
		if !decodeBody(w, r, &request) {
			return
		}
		resp, err := s.auth.Refresh(request.RefreshToken)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Missing claims")
			return
		}
		var request authmodel.LogoutRequest
		if !decodeBody(w, r, &request) {
			return
		}
		if err := s.auth.Logout(claims, request); err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	}
}

func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Missing claims")
			return
		}
		status, err := s.auth.GetSession(claims, r.PathValue("session_id"))
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, errors.ErrInvalidOTP):
		writeError(w, http.StatusBadRequest, "invalid_otp", "Invalid OTP code")
	case errors.Is(err, errors.ErrOTPExpired):
		writeError(w, http.StatusBadRequest, "otp_expired", "OTP has expired, please request a new one")
	case errors.Is(err, errors.ErrOTPAttempts):
		writeError(w, http.StatusTooManyRequests, "too_many_attempts", "Too many attempts, please request a new OTP")
	case errors.Is(err, errors.ErrInvalidRefreshToken),
		errors.Is(err, errors.ErrRefreshTokenExpired),
		errors.Is(err, errors.ErrSessionInactive),
		errors.Is(err, errors.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, errors.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Session not found")
	default:
		logError(r.Method, r.URL.Path, err.Error())
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, authmodel.ErrorResponse{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
