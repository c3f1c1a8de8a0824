// Package mcpserver exposes jsonparams over the Model Context Protocol so
// AI agents can list the injectable params of a JSON body, rewrite one of
// them, and run an active scan against an endpoint.
//
// Transports:
//
//	srv := mcpserver.New(&mcpserver.Config{})
//	srv.RunStdio(ctx)            // IDE integrations
//	http.ListenAndServe(addr, srv.HTTPHandler()) // remote clients
package mcpserver
