package server

import "github.com/jrsteele09/go-auth-session/gateway"

// Route path constants, shared with the gateway client
const (
	RouteOTPGenerate = gateway.RouteOTPGenerate
	RouteOTPValidate = gateway.RouteOTPValidate
	RouteRefresh     = gateway.RouteRefresh
	RouteLogout      = gateway.RouteLogout
	RouteSession     = gateway.RouteSession + "{session_id}"

	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
