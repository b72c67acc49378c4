// Package retry paces bounded retries with exponential backoff and jitter.
//
// Address resolution uses it between attempts; each failed attempt doubles the
// delay up to a maximum. Errors wrapped with Permanent stop the loop at once.
package retry
