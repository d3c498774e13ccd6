// Package server exposes the renderer as an HTTP service.
//
// # Endpoints
//
//	POST /v1/render  render a recipe document (RenderRequest → RenderResponse)
//	POST /v1/match   test a package against a dependency spec
//	GET  /health     liveness
//	GET  /ready      readiness
//	GET  /metrics    Prometheus metrics
//
// API endpoints run behind request ID, panic recovery, rate limiting,
// logging and metrics middleware. Failures are reported as ErrorResponse
// bodies whose code is the error code of the failure; render errors add
// the pipeline stage and the source position of the offending node.
//
// # Configuration
//
// NewConfig reads PORT and SHUTDOWN_TIMEOUT_SECONDS from the environment.
//
//	s := server.New(server.WithVersion(version))
//	if err := s.Start(ctx); err != nil {
//	    return err
//	}
package server
