// Package guard protects the whole-store reset behind a challenge code.
//
// A caller first asks for a reset without a credential and receives the
// current code inside the error. A human confirms, and the caller repeats
// the request with the code followed by ConfirmationSuffix. A wrong
// credential replaces the code at once, and a verified one is consumed
// whether or not the reset succeeds, so no credential works twice.
//
// Resets are only available when the server runs in the privileged
// namespace.
package guard
