/*
Package importprobe verifies that container images running as Kubernetes
pods actually contain the software packages they are supposed to ship. It
was born out of validating custom notebook ("workbench") images: such images
get spawned as pods by a controller, and the only reliable way to know
whether, say, numpy really is installed is to ask the running container
itself.

The probe is deliberately minimal: an interpreter gets invoked inside the
target container with a single "import <package>" statement, and the exit
status decides the verdict. Importing a package does not mutate container
state, so probing is side-effect free and can be repeated at will.

This root package contains only the pure data model: probe [Request]s,
per-package [Result]s (collected into [Results]), and read-only [PodStatus]
snapshots. It has no Kubernetes dependencies whatsoever and thus also no
opinion about how to reach a pod.

# Verifier

A [github.com/peckish/importprobe/verifier.Verifier] turns a validated
Request into one Result per requested package, probing packages one at a
time and continuing past individual failures: a missing package is reported
data, never an error. Only structural problems (an invalid request, an
absent or non-running pod, an unknown container) abort a verification call,
and then always before any remote command has been issued.

# Readiness

Pods running large custom images can take many minutes to pull and start.
[github.com/peckish/importprobe/readiness.Wait] polls a pod's status until
its readiness condition holds, failing with a distinguishable NotReadyError
that carries the last observed PodStatus for diagnosis.

# Pod access

All remote access goes through the small
[github.com/peckish/importprobe/podclient.PodClient] interface: status
reads, bounded command execution, and best-effort log tails. The
podclient/kube package implements it on top of client-go; tests use the
mock client from test/mockingpod instead of a live cluster.

# Cases

The cases package loads strongly-typed per-image verification cases from
YAML, each carrying its own package list, so that what gets probed is never
inferred from how a case happens to be named.
*/
package importprobe
