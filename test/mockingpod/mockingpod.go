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

package mockingpod

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/peckish/importprobe"
	"github.com/peckish/importprobe/podclient"
)

// MockedPod is the full truth about a single mocked pod: its status as seen
// by pollers, which packages its (single-image) containers have installed,
// and canned container logs.
type MockedPod struct {
	Namespace  string                        // pod namespace.
	Name       string                        // pod name.
	Phase      string                        // pod phase; "Running" for probe-able pods.
	Ready      bool                          // readiness condition.
	ReadyAfter int                           // become ready after this many status polls; 0 disables.
	Containers []importprobe.ContainerState  // container states.
	Packages   []string                      // importable package names.
	Logs       string                        // canned container log content.
	ProbeDelay time.Duration                 // simulated duration of a single probe.
}

// MockingPod is a mock PodClient implementing pod status polls, import
// probe execution, and log retrieval against an in-memory set of mocked
// pods. All other behavior (injected errors, probe delays) is controlled by
// the test through the mocked pods and the Set... knobs.
type MockingPod struct {
	mux      sync.RWMutex
	pods     map[string]*MockedPod // mocked pods by "namespace/name".
	polls    map[string]int        // status poll counts by "namespace/name".
	commands []string              // audit trail of all exec command lines.
	execErr  error                 // injected exec failure, when non-nil.
	logsErr  error                 // injected log retrieval failure, when non-nil.
}

// Make sure that the PodClient interface is fully implemented.
var _ podclient.PodClient = (*MockingPod)(nil)

// NewMockingPod returns a new instance of a mock pod client without any
// pods yet.
func NewMockingPod() *MockingPod {
	return &MockingPod{
		pods:  map[string]*MockedPod{},
		polls: map[string]int{},
	}
}

func key(namespace, name string) string { return namespace + "/" + name }

// AddPod adds (or replaces) a mocked pod.
func (mp *MockingPod) AddPod(p MockedPod) {
	mp.mux.Lock()
	defer mp.mux.Unlock()
	pod := p
	mp.pods[key(p.Namespace, p.Name)] = &pod
	mp.polls[key(p.Namespace, p.Name)] = 0
}

// RemovePod removes a mocked pod, so that subsequent status polls run into
// not-found.
func (mp *MockingPod) RemovePod(namespace, name string) {
	mp.mux.Lock()
	defer mp.mux.Unlock()
	delete(mp.pods, key(namespace, name))
}

// SetExecError injects an error returned by all subsequent Exec calls, or
// resets injection when passed nil.
func (mp *MockingPod) SetExecError(err error) {
	mp.mux.Lock()
	defer mp.mux.Unlock()
	mp.execErr = err
}

// SetLogsError injects an error returned by all subsequent Logs calls, or
// resets injection when passed nil.
func (mp *MockingPod) SetLogsError(err error) {
	mp.mux.Lock()
	defer mp.mux.Unlock()
	mp.logsErr = err
}

// Commands returns the audit trail of all exec command lines issued so far.
func (mp *MockingPod) Commands() []string {
	mp.mux.RLock()
	defer mp.mux.RUnlock()
	return append([]string{}, mp.commands...)
}

// isCtxCancelled returns an error if the specified Context is done, either
// having been cancelled or reached its deadline. Otherwise, returns nil.
func isCtxCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Status implements the PodClient interface, reporting the mocked pod's
// status. A pod with ReadyAfter set becomes ready once it has been polled
// that many times, which keeps readiness tests free of sleeps.
func (mp *MockingPod) Status(ctx context.Context, namespace, name string) (*importprobe.PodStatus, error) {
	if err := isCtxCancelled(ctx); err != nil {
		return nil, err
	}
	mp.mux.Lock()
	defer mp.mux.Unlock()
	pod, ok := mp.pods[key(namespace, name)]
	if !ok {
		return nil, errors.Wrapf(podclient.ErrNotFound, "pod '%s/%s'", namespace, name)
	}
	mp.polls[key(namespace, name)]++
	ready := pod.Ready
	if pod.ReadyAfter > 0 && mp.polls[key(namespace, name)] >= pod.ReadyAfter {
		ready = true
	}
	return &importprobe.PodStatus{
		Namespace:  pod.Namespace,
		Name:       pod.Name,
		Phase:      pod.Phase,
		Ready:      ready,
		Containers: append([]importprobe.ContainerState{}, pod.Containers...),
	}, nil
}

// Exec implements the PodClient interface: import probes against a mocked
// pod succeed exactly for the packages listed in its Packages, while all
// other packages fail with an interpreter-style module-not-found complaint.
// A probe delay at or above the timeout reports a deadline error instead,
// emulating the exec stream getting killed.
func (mp *MockingPod) Exec(
	ctx context.Context,
	namespace, pod, container string,
	command []string,
	timeout time.Duration,
) (string, string, error) {
	if err := isCtxCancelled(ctx); err != nil {
		return "", "", err
	}
	mp.mux.Lock()
	cmdline := strings.Join(command, " ")
	mp.commands = append(mp.commands, cmdline)
	p, ok := mp.pods[key(namespace, pod)]
	execErr := mp.execErr
	mp.mux.Unlock()
	if !ok {
		return "", "", errors.Wrapf(podclient.ErrNotFound, "pod '%s/%s'", namespace, pod)
	}
	if execErr != nil {
		return "", "", execErr
	}
	if p.ProbeDelay >= timeout && timeout > 0 {
		time.Sleep(timeout)
		return "", "", context.DeadlineExceeded
	}
	if p.ProbeDelay > 0 {
		time.Sleep(p.ProbeDelay)
	}
	pkg := probedPackage(command)
	for _, installed := range p.Packages {
		if installed == pkg {
			return "", "", nil
		}
	}
	stderr := fmt.Sprintf(
		"Traceback (most recent call last):\n"+
			"  File \"<string>\", line 1, in <module>\n"+
			"ModuleNotFoundError: No module named '%s'", pkg)
	return "", stderr, &podclient.ExecError{
		Command:  cmdline,
		ExitCode: 1,
		Stderr:   stderr,
	}
}

// probedPackage extracts the probed package name from an import probe
// command line of the form {interpreter, "-c", "import <pkg>"}.
func probedPackage(command []string) string {
	if len(command) == 0 {
		return ""
	}
	return strings.TrimPrefix(command[len(command)-1], "import ")
}

// Logs implements the PodClient interface, returning the mocked pod's
// canned log content.
func (mp *MockingPod) Logs(ctx context.Context, namespace, pod, container string, tailLines int64) (string, error) {
	if err := isCtxCancelled(ctx); err != nil {
		return "", err
	}
	mp.mux.RLock()
	defer mp.mux.RUnlock()
	if mp.logsErr != nil {
		return "", mp.logsErr
	}
	p, ok := mp.pods[key(namespace, pod)]
	if !ok {
		return "", errors.Wrapf(podclient.ErrNotFound, "pod '%s/%s'", namespace, pod)
	}
	return p.Logs, nil
}

// Close closes the mock client; it has no resources to release.
func (mp *MockingPod) Close() {}
