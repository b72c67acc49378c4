// Package log provides structured protocol logging for Fast Pair sessions.
//
// This package defines the Logger interface and Event types for capturing
// pairing events at multiple layers (radio bond, key exchange, session).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// Key material is never part of an event. Message events carry the message
// type and size only.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/fastpair/seeker.fplog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Bond: radio notifications (BondEvent)
//   - Exchange: handshake messages (MessageEvent)
//   - Session: state machine transitions (StateChangeEvent)
//
// Errors have a dedicated event type.
//
// # File Format
//
// Log files use CBOR encoding with .fplog extension. A file starts with a
// Header, a CBOR array of the "FPLOG" magic, the format version and the
// creation time, followed by one CBOR map per event. Readers reject files
// without the header or with a version above FileVersion.
//
// The fastpair-sim CLI can dump them with its "log" command; fastpair-log
// views, filters, exports and summarises them.
package log
