package authmodel

// OTPRequest asks the gateway to send a one time code.
type OTPRequest struct {
	AreaCode    string   `json:"area_code"`
	PhoneNumber string   `json:"phone_number"`
	UserType    UserType `json:"user_type"`
	Purpose     string   `json:"purpose"`
}

type OTPResponse struct {
	RequestID string `json:"request_id"`
}

// DeviceInfo describes the client presenting an OTP.
type DeviceInfo struct {
	DeviceType      string `json:"device_type"`
	DeviceName      string `json:"device_name"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	AppVersion      string `json:"app_version"`
	FCMToken        string `json:"fcm_token"`
}

// OTPValidation exchanges a code for a token set.
type OTPValidation struct {
	AreaCode    string     `json:"area_code"`
	PhoneNumber string     `json:"phone_number"`
	UserType    UserType   `json:"user_type"`
	OTPCode     string     `json:"otp_code"`
	RequestID   string     `json:"request_id"`
	DeviceInfo  DeviceInfo `json:"device_info"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type LogoutRequest struct {
	SessionID string `json:"session_id"`
	DeviceID  string `json:"device_id"`
}

// ErrorResponse is the error body returned by the gateway.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
