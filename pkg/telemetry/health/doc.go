// Package health provides liveness, readiness and version endpoints.
//
//   - /health answers 200 while the process runs.
//   - /ready runs the registered checks and answers 503 while any fails.
//   - /version reports build information.
//
// The simulator registers two readiness checks: remote_store, which fails
// while the SFTP session is down, and bootstrap, which fails until every
// configured node has a live file.
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck(health.CheckRemoteStore, health.RemoteStoreCheck(store))
//	checker.RegisterCheck(health.CheckBootstrap, health.BootstrapCheck(eng))
//	health.Register(mux, checker, version, commit, buildTime)
package health
