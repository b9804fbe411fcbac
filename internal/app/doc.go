// Package app wires the KPI dashboard together and runs it.
//
// New resolves paths, installs the logger and OpenTelemetry providers, then
// builds the dashboard service, the live channel hub and the chi router.
// Serve runs the HTTP server next to the background workers (hub, session
// sweeper, rate limiter pruning) in one errgroup; the first failure or the
// end of the context stops them all and shuts the server down.
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    slog.Error("Failed to initialize application", slog.String("error", err.Error()))
//	    os.Exit(1)
//	}
//	if err := application.Run(); err != nil {
//	    os.Exit(1)
//	}
//
// Run listens on the configured address and returns after SIGINT or SIGTERM
// once in-flight requests have finished and telemetry has been flushed.
package app
