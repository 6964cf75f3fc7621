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

package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/peckish/importprobe"
	"github.com/peckish/importprobe/podclient"
)

// DefaultTimeout is the maximum wait for a pod to become ready. It is
// generous on purpose: pulling a large custom image onto a fresh node
// easily takes several minutes.
const DefaultTimeout = 10 * time.Minute

// DefaultInterval is the pause between two successive status polls.
const DefaultInterval = 2 * time.Second

// NotReadyError signals that a pod did not report a true readiness
// condition within the allotted wait window. It carries the last observed
// pod status so that callers can render diagnostics from the very same
// state this waiter saw; the waiter itself never formats any.
type NotReadyError struct {
	Namespace  string                  // namespace of the watched pod.
	Pod        string                  // name of the watched pod.
	Timeout    time.Duration           // the wait window that elapsed.
	LastStatus *importprobe.PodStatus  // last observed status, or nil if the pod never appeared.
}

// Error renders the pod identity and the elapsed wait window, together with
// the last observed pod phase, when there was one.
func (e *NotReadyError) Error() string {
	if e.LastStatus == nil {
		return fmt.Sprintf("pod '%s/%s' was not created within %s",
			e.Namespace, e.Pod, e.Timeout)
	}
	return fmt.Sprintf("pod '%s/%s' did not become ready within %s (last phase: %s)",
		e.Namespace, e.Pod, e.Timeout, e.LastStatus.Phase)
}

// Option represents options to Wait.
type Option func(*options)

type options struct {
	timeout  time.Duration
	interval time.Duration
	log      zerolog.Logger
}

// WithTimeout sets the maximum wait for the pod to become ready, replacing
// DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithInterval sets the pause between two successive status polls,
// replacing DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
	}
}

// WithLogger sets the logger used for per-poll progress; without it,
// nothing gets logged.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// Wait blocks until the specified pod reports a true readiness condition,
// polling its status at a bounded interval. Each poll only reads status and
// never modifies the target. A pod that doesn't exist (yet) keeps getting
// polled, as controllers routinely create their pods with some delay.
//
// When the wait window elapses without readiness, Wait fails with a
// *NotReadyError; use errors.As to tell it apart from other failures.
func Wait(ctx context.Context, pods podclient.PodClient, namespace, name string, opts ...Option) error {
	o := options{
		timeout:  DefaultTimeout,
		interval: DefaultInterval,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var last *importprobe.PodStatus
	poll := func() error {
		status, err := pods.Status(ctx, namespace, name)
		if err != nil {
			// Not-found as well as transient status errors: keep
			// polling until the window closes.
			o.log.Debug().Err(err).
				Str("pod", namespace+"/"+name).
				Msg("pod status not available yet")
			return err
		}
		last = status
		if !status.Ready {
			o.log.Debug().
				Str("pod", namespace+"/"+name).
				Str("phase", status.Phase).
				Msg("pod not ready yet")
			return fmt.Errorf("%s", status)
		}
		return nil
	}
	err := backoff.Retry(poll,
		backoff.WithContext(backoff.NewConstantBackOff(o.interval), ctx))
	if err == nil {
		o.log.Debug().Str("pod", namespace+"/"+name).Msg("pod is ready")
		return nil
	}
	return &NotReadyError{
		Namespace:  namespace,
		Pod:        name,
		Timeout:    o.timeout,
		LastStatus: last,
	}
}
