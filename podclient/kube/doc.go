/*
Package kube implements the podclient.PodClient interface on top of
client-go, talking to a real cluster API: pod status via typed Get, import
probes via the pods/exec subresource (SPDY exec stream), and diagnostics via
bounded log tails.
*/
package kube
