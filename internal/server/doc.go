// Package server exposes the catalog pipeline over HTTP.
//
// The server is a gin engine with a single read endpoint (GET /products by
// default) plus health routes. Every request validates its query options,
// fetches the upstream document once and runs the pipeline over it:
//
//	srv := server.New(cfg.Server, client, p,
//		server.WithLogger(logger),
//		server.WithMetrics(metrics),
//	)
//	go func() { _ = srv.Start(ctx) }()
//	defer srv.Stop(ctx)
package server
