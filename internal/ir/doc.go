// Package ir provides the tagged data envelope exchanged with the host.
//
// Every argument value that crosses the UI/host boundary is wrapped in an
// Envelope. This package imports nothing internal; all other packages that
// build or read envelopes import ir.
//
// Key design constraints:
//   - Envelope is sealed: Int, Float, String, Bool, JSON, Null, Plug
//   - Int and Float are distinguished by the integrality of the number
//   - Wire form is {"type": <Kind>, "value": <value>}
//   - Unsupported runtime values are logged and coerced to Null, never returned as errors
//   - Envelopes are built immediately before a host call and never persisted
package ir
