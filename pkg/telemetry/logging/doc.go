// Package logging builds the process slog handler chain.
//
// The chain adds the fields carried by a context (request_id, trigger_id,
// trigger_source, rop_window, category, trace_id), masks credentials and
// writes JSON, text or console output:
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//	slog.SetDefault(logger.Slog())
//
//	ctx = logging.WithTriggerID(ctx, id)
//	slog.InfoContext(ctx, "rotating")  // includes trigger_id
//
// Attributes whose key names a credential (password, passphrase,
// private_key, token, ...) are replaced entirely. String values are scanned
// for inline passwords, PEM private keys, bearer tokens and URL userinfo.
package logging
