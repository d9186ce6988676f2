// Package api provides the HTTP REST API and WebSocket server for Motive Core.
//
// It exposes the controller manager's operations (load, configure, switch,
// finalize, unload), lifecycle history queries, and real-time event streaming
// to operator tooling and dashboards.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// The WebSocket Hub doubles as a manager.EventSink: lifecycle transitions and
// applied switches are broadcast to subscribed clients as they happen.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
