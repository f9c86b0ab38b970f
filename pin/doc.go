// Package pin is the bundled Redis-backed implementation of the PIN
// verification collaborator: argon2id-hashed 4-digit PINs, a consecutive
// failure counter with a rolling window, timed lockout, and security
// question storage for the PIN reset wizard.
//
// The engine consumes the [Verifier] interface only; deployments with an
// existing credential service can substitute their own implementation.
package pin
