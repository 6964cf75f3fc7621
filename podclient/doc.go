/*
Package podclient defines the PodClient interface between concrete cluster
access implementations and the cluster-neutral readiness and verifier
packages.

The kube sub-package implements PodClient on top of client-go; the mock
client in test/mockingpod implements it for unit testing without any
cluster.
*/
package podclient
