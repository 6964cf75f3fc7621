/*
Package readiness waits for pods to report a true readiness condition,
polling the pod status at a bounded interval until readiness or until a
configurable window elapses.

There is exactly one logical wait per call: the poll loop itself retries,
but a timed-out wait is never retried automatically.
*/
package readiness
