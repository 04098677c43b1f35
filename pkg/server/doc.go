// Package server exposes the simulator over HTTP.
//
// Routes:
//
//	GET /generateRop                     manual trigger; 200 or 418 with X-Generate-Failure
//	GET /file/v1/files?filter=&limit=    notification records as {"files":[...]}
//	GET /getcENMPMfile?fileName=         download a template file
//	GET /v1/cycles?limit=                recent generation cycles
//	/health, /ready, /version            probes
//	GET /metrics                         Prometheus scrape endpoint
//
// Every route gets a request ID, a server span and a completion log line.
// The manual trigger response lists the configured node counts:
//
//	MANUAL Rename and Sending of 10 SFTP-FT Counter files and ... : Status = OK
//
// Serve blocks until its context is cancelled and then shuts down within
// server.shutdown_timeout; signal handling is left to the caller.
package server
