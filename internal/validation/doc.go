// Package validation resolves emulated API requests against the service
// configuration.
//
// Resolution is an ordered short-circuit over three gates: the service must
// exist and be active, the entity must be present and active within it, and
// an active endpoint must serve the requested route and verb. The gate that
// failed, and the records resolved before it, are reported to the caller.
package validation
