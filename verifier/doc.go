/*
Package verifier probes whether packages are importable inside the running
containers of pods, one probe command per package, reporting per-package
outcomes as data rather than errors.

Probes run strictly sequentially and share no state, so a verification call
needs no locking whatsoever; the caller exclusively owns the returned
results.
*/
package verifier
