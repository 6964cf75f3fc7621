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

package verifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/peckish/importprobe"
	"github.com/peckish/importprobe/podclient"
)

// DefaultInterpreter is the interpreter invoked inside the target container
// for import probes.
const DefaultInterpreter = "python3"

// runningPhase is the only pod phase in which probing makes sense.
const runningPhase = "Running"

// PreconditionError reports that a verification call was rejected before
// any remote command got issued: the target pod is absent or not running,
// or the addressed container doesn't exist. No partial results accompany a
// PreconditionError.
type PreconditionError struct {
	Reason string
}

// Error returns the reason this verification was rejected.
func (e *PreconditionError) Error() string { return e.Reason }

// Verifier determines, for every package of a verification request, whether
// that package is importable inside the requested pod container.
type Verifier interface {
	// Verify probes every package of the (validated) request, one at a
	// time, and returns exactly one Result per requested package. An
	// individual failed probe never aborts its siblings; Verify only
	// errors on structural problems, and then always before the first
	// probe. Nothing is cached: calling Verify twice performs two
	// independent rounds of remote probes.
	Verify(ctx context.Context, req importprobe.Request) (importprobe.Results, error)
}

// verifier probes packages through whatever PodClient it has been given.
type verifier struct {
	pods        podclient.PodClient
	interpreter string
	log         zerolog.Logger
}

// Make sure that the Verifier interface is fully implemented.
var _ Verifier = (*verifier)(nil)

// NewOption represents options to New when creating new verifiers.
type NewOption func(*verifier)

// WithInterpreter sets the interpreter invoked for import probes, replacing
// DefaultInterpreter.
func WithInterpreter(interpreter string) NewOption {
	return func(v *verifier) {
		v.interpreter = interpreter
	}
}

// WithLogger sets the logger for per-probe progress; without it, nothing
// gets logged.
func WithLogger(log zerolog.Logger) NewOption {
	return func(v *verifier) {
		v.log = log
	}
}

// New returns a new Verifier probing package imports through the specified
// pod client.
func New(pods podclient.PodClient, opts ...NewOption) Verifier {
	v := &verifier{
		pods:        pods,
		interpreter: DefaultInterpreter,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify implements the Verifier interface.
func (v *verifier) Verify(ctx context.Context, req importprobe.Request) (importprobe.Results, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	status, err := v.pods.Status(ctx, req.Namespace, req.Pod)
	if err != nil {
		if errors.Is(err, podclient.ErrNotFound) {
			return nil, &PreconditionError{Reason: fmt.Sprintf(
				"pod '%s/%s' does not exist", req.Namespace, req.Pod)}
		}
		return nil, errors.Wrapf(err, "cannot check pod '%s/%s' before probing",
			req.Namespace, req.Pod)
	}
	if status.Phase != runningPhase {
		return nil, &PreconditionError{Reason: fmt.Sprintf(
			"pod '%s/%s' is not running (current phase: %s)",
			req.Namespace, req.Pod, status.Phase)}
	}
	if status.Container(req.Container) == nil {
		return nil, &PreconditionError{Reason: fmt.Sprintf(
			"container '%s' not found in pod '%s/%s'; available containers: %s",
			req.Container, req.Namespace, req.Pod,
			strings.Join(status.ContainerNames(), ", "))}
	}

	tail := req.LogTail
	if tail == 0 {
		tail = importprobe.DefaultLogTail
	}
	v.log.Info().
		Int("packages", len(req.Packages)).
		Str("container", req.Container).
		Str("pod", req.Namespace+"/"+req.Pod).
		Msg("verifying package imports")

	results := importprobe.Results{}
	for _, pkg := range req.Packages {
		results[pkg] = v.probe(ctx, req, pkg, tail)
	}
	return results, nil
}

// probe runs a single import probe and classifies its outcome, gathering a
// container log tail when diagnostics are requested and the probe failed.
func (v *verifier) probe(ctx context.Context, req importprobe.Request, pkg string, tail int64) importprobe.Result {
	command := []string{v.interpreter, "-c", "import " + pkg}
	audit := fmt.Sprintf("%s -c 'import %s'", v.interpreter, pkg)
	start := time.Now()
	stdout, stderr, err := v.pods.Exec(ctx,
		req.Namespace, req.Pod, req.Container, command, req.Timeout)
	duration := time.Since(start)
	if duration > req.Timeout {
		// The stream got killed at the timeout; anything beyond it is
		// just local accounting jitter.
		duration = req.Timeout
	}
	if err == nil {
		v.log.Info().
			Str("package", pkg).
			Dur("duration", duration).
			Msg("import successful")
		return importprobe.Result{
			Package:  pkg,
			Imported: true,
			Command:  audit,
			Duration: duration,
			Stdout:   stdout,
			Stderr:   stderr,
		}
	}
	errmsg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		errmsg = fmt.Sprintf("import probe timed out after %s", req.Timeout)
	}
	logs := ""
	if req.Diagnostics {
		var lerr error
		logs, lerr = v.pods.Logs(ctx, req.Namespace, req.Pod, req.Container, tail)
		if lerr != nil {
			// Diagnostics are best effort and must never fail a probe.
			v.log.Warn().Err(lerr).Str("package", pkg).
				Msg("could not gather container logs")
			logs = "logs unavailable"
		}
	}
	v.log.Warn().
		Str("package", pkg).
		Dur("duration", duration).
		Str("error", errmsg).
		Msg("import failed")
	return importprobe.Result{
		Package:  pkg,
		Imported: false,
		Err:      errmsg,
		Command:  audit,
		Duration: duration,
		Stdout:   stdout,
		Stderr:   stderr,
		Logs:     logs,
	}
}
