// Package services implements the business logic layer of the dashboard.
// It sits between the HTTP and live-channel handlers and the loader and
// analytics pipeline, and owns all per-user session state.
//
// # Sessions
//
// Each session holds one immutable Dataset and the current FilterState.
// Sessions live in an in-memory SessionStore; idle sessions are swept after
// the configured TTL and the store rejects new sessions past its cap. The
// OnExpire hook hears about every expired session, whichever path dropped it.
//
//	store := services.NewSessionStore(30*time.Minute, 1000)
//	store.OnExpire(func(ids []string) { ... })
//	go store.Run(ctx, time.Minute, logger)
//
// # Dashboard
//
// DashboardService runs every interaction synchronously against the session
// dataset:
//
//	svc, err := services.NewDashboardService(cfg, paths, metrics, logger)
//	sess, err := svc.CreateSession(ctx)
//	model, err := svc.View(ctx, sess.ID, api.FilterRequest{Site: "S1"})
//	drill, err := svc.Drill(ctx, sess.ID, api.ClickRequest{Date: "2024-01-02"})
//
// The default dataset is loaded on first use and shared read-only by every
// session that starts on it.
//
// # Error Handling
//
// Services return the sentinels in errors.go, or the typed load errors of
// the dataprocessing package, wrapped with context. Handlers map them to
// problem responses through internal/errors.
package services
