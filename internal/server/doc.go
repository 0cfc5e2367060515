// Package server provides HTTP server management for the dispatcher.
//
// Route providers contribute handlers to a shared public router: the
// dispatch pipeline mounted under the configured sub-context and the
// health and status endpoints. Providers that also implement
// AdminRouteProvider contribute endpoints to the internal admin server,
// which listens on its own port behind bearer token authentication.
//
// Usage:
//
//	mgr := server.NewManager(&server.ServerConfig{
//	    HTTPAddress:  cfg.Server.Host,
//	    HTTPPort:     cfg.Server.Port,
//	    AdminPort:    cfg.Server.AdminPort,
//	    AdminToken:   cfg.Server.AdminToken,
//	    CORS:         cfg.CORS,
//	    LoggingLevel: cfg.Logging.Level,
//	}, logger)
//
//	mgr.AddProvider(server.NewStatusProvider(statusHandlers))
//	mgr.AddProvider(server.NewDispatchProvider(pipeline))
//	mgr.AddProvider(server.NewAdminProvider(adminHandlers))
//
//	mgr.Start(ctx)
package server
