// Copyright 2025 The importprobe authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package kube

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"

	"github.com/peckish/importprobe"
	"github.com/peckish/importprobe/podclient"
)

// ExecutorFactory creates the remote command executor used for streaming an
// exec request into a pod's container. Production code sticks with the
// default SPDY executor; unit tests inject their own factory instead.
type ExecutorFactory func(config *rest.Config, method string, u *url.URL) (remotecommand.Executor, error)

// Client is a cluster-API PodClient for interfacing the generic package
// probing with real Kubernetes clusters, using client-go for pod status
// reads, exec streams, and log retrieval.
type Client struct {
	clientset   kubernetes.Interface // typed cluster API client.
	config      *rest.Config         // kept for constructing exec streams.
	newExecutor ExecutorFactory
}

// Make sure that the PodClient interface is fully implemented.
var _ podclient.PodClient = (*Client)(nil)

// NewOption represents options to New when creating pod clients talking to
// real clusters.
type NewOption func(*Client)

// WithClientset sets the cluster API clientset, instead of deriving one
// from the rest config. Mostly useful with client-go's fake clientset in
// unit tests.
func WithClientset(clientset kubernetes.Interface) NewOption {
	return func(c *Client) {
		c.clientset = clientset
	}
}

// WithExecutorFactory sets the factory for remote command executors,
// replacing the default SPDY executor.
func WithExecutorFactory(factory ExecutorFactory) NewOption {
	return func(c *Client) {
		c.newExecutor = factory
	}
}

// New returns a new Client for the cluster addressed by the specified rest
// config.
func New(config *rest.Config, opts ...NewOption) (*Client, error) {
	c := &Client{
		config:      config,
		newExecutor: remotecommand.NewSPDYExecutor,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.clientset == nil {
		clientset, err := kubernetes.NewForConfig(config)
		if err != nil {
			return nil, errors.Wrap(err, "cannot create cluster API client")
		}
		c.clientset = clientset
	}
	return c, nil
}

// Status queries the current status of the specified pod, returning a
// read-only snapshot covering phase, readiness condition, and per-container
// state. Returns an error wrapping podclient.ErrNotFound when the pod
// doesn't exist.
func (c *Client) Status(ctx context.Context, namespace, name string) (*importprobe.PodStatus, error) {
	pod, err := c.clientset.CoreV1().Pods(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, errors.Wrapf(podclient.ErrNotFound, "pod '%s/%s'", namespace, name)
		}
		return nil, errors.Wrapf(err, "cannot query status of pod '%s/%s'", namespace, name)
	}
	return podStatus(pod), nil
}

// podStatus maps the wire-level pod object onto the limited status snapshot
// the readiness and verifier packages work with.
func podStatus(pod *corev1.Pod) *importprobe.PodStatus {
	status := &importprobe.PodStatus{
		Namespace: pod.Namespace,
		Name:      pod.Name,
		Phase:     string(pod.Status.Phase),
	}
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			status.Ready = cond.Status == corev1.ConditionTrue
			status.Reason = cond.Reason
			break
		}
	}
	// Containers come from the pod spec so that containers still waiting
	// for their status to appear aren't silently missing.
	for _, cntr := range pod.Spec.Containers {
		state := importprobe.ContainerState{Name: cntr.Name}
		for _, cs := range pod.Status.ContainerStatuses {
			if cs.Name != cntr.Name {
				continue
			}
			state.Ready = cs.Ready
			if waiting := cs.State.Waiting; waiting != nil {
				state.WaitingReason = waiting.Reason
				state.WaitingMessage = waiting.Message
			}
			if terminated := cs.State.Terminated; terminated != nil {
				state.Terminated = true
				state.ExitCode = terminated.ExitCode
				state.TerminatedReason = terminated.Reason
			}
			break
		}
		status.Containers = append(status.Containers, state)
	}
	return status
}

// Exec runs a command inside the specified container of a pod via the
// pods/exec subresource, bounded by the specified timeout, and returns the
// captured standard output and standard error. A command terminating with a
// non-zero exit status is reported as a *podclient.ExecError; exceeding the
// timeout kills the stream and surfaces the context's deadline error.
func (c *Client) Exec(
	ctx context.Context,
	namespace, pod, container string,
	command []string,
	timeout time.Duration,
) (string, string, error) {
	req := c.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(namespace).
		Name(pod).
		SubResource("exec").
		VersionedParams(&corev1.PodExecOptions{
			Container: container,
			Command:   command,
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)
	executor, err := c.newExecutor(c.config, http.MethodPost, req.URL())
	if err != nil {
		return "", "", errors.Wrap(err, "cannot create remote command executor")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var stdout, stderr bytes.Buffer
	err = executor.StreamWithContext(ctx, remotecommand.StreamOptions{
		Stdout: &stdout,
		Stderr: &stderr,
	})
	if err != nil {
		var codeErr utilexec.CodeExitError
		if errors.As(err, &codeErr) {
			return stdout.String(), stderr.String(), &podclient.ExecError{
				Command:  strings.Join(command, " "),
				ExitCode: codeErr.Code,
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return stdout.String(), stderr.String(),
			errors.Wrapf(err, "cannot exec into container '%s' of pod '%s/%s'",
				container, namespace, pod)
	}
	return stdout.String(), stderr.String(), nil
}

// Logs fetches (at most) the specified number of most recent log lines of
// the specified container.
func (c *Client) Logs(ctx context.Context, namespace, pod, container string, tailLines int64) (string, error) {
	opts := &corev1.PodLogOptions{Container: container}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}
	stream, err := c.clientset.CoreV1().Pods(namespace).GetLogs(pod, opts).Stream(ctx)
	if err != nil {
		return "", errors.Wrapf(err, "cannot stream logs of container '%s' in pod '%s/%s'",
			container, namespace, pod)
	}
	defer stream.Close()
	logs, err := io.ReadAll(stream)
	if err != nil {
		return "", errors.Wrapf(err, "cannot read logs of container '%s' in pod '%s/%s'",
			container, namespace, pod)
	}
	return string(logs), nil
}

// Close releases any client resources; client-go clientsets don't hold any
// that would need explicit releasing.
func (c *Client) Close() {}
