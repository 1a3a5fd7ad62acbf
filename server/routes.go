package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.handler())

	// OTP login
	s.RegisterRouteHandler("POST "+RouteOTPGenerate, ChainMiddleware(s.GenerateOTPHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOTPValidate, ChainMiddleware(s.ValidateOTPHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	// Protected endpoints (require a valid access token)
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware(s.RequireAuth())...))

	// CORS preflight
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
