/*
Package mockingpod provides a mock podclient.PodClient for unit testing
readiness waiting and package verification without any cluster: mocked pods
declare their phase, readiness, installed packages, and canned logs, and the
mock keeps an audit trail of every exec command issued against it.
*/
package mockingpod
