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

package podclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peckish/importprobe"
)

// ErrNotFound signals that the addressed pod does not (or no longer) exist.
// Implementations wrap it, so test it using errors.Is.
var ErrNotFound = errors.New("pod not found")

// PodClient defines the generic methods needed in order to probe packages
// inside the containers of running pods, regardless of how the cluster is
// actually reached. All remote state is read-mostly: Status and Logs never
// modify the target, and Exec is only ever used for side-effect-free import
// probes.
type PodClient interface {
	// Status queries the current status of the specified pod, returning a
	// read-only snapshot. Returns an error wrapping ErrNotFound when the
	// pod doesn't exist.
	Status(ctx context.Context, namespace, name string) (*importprobe.PodStatus, error)
	// Exec runs a command inside the specified container of a pod,
	// bounded by the specified timeout, and returns the captured standard
	// output and standard error. A command terminating with a non-zero
	// exit status is reported as a *ExecError.
	Exec(ctx context.Context, namespace, pod, container string, command []string,
		timeout time.Duration) (stdout string, stderr string, err error)
	// Logs fetches (at most) the specified number of most recent log
	// lines of the specified container. Best effort only.
	Logs(ctx context.Context, namespace, pod, container string, tailLines int64) (string, error)
	// Close releases any client resources, if necessary.
	Close()
}

// ExecError reports a remotely executed command that ran to completion but
// terminated with a non-zero exit status. The captured standard error
// content tags along, as for import probes it carries the interpreter's
// complaint.
type ExecError struct {
	Command  string // the command line that was executed.
	ExitCode int    // the command's non-zero exit status.
	Stderr   string // captured standard error output.
}

// Error renders the exit status together with the command's standard error
// output, when present.
func (e *ExecError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("command %q exited with status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q exited with status %d: %s",
		e.Command, e.ExitCode, e.Stderr)
}
