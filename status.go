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

package importprobe

import (
	"fmt"
	"strings"
)

// PodStatus is a deliberately limited read-only view on a pod's current
// status, dealing with only those few bits of state needed for readiness
// waiting and for pre-probe sanity checking: the pod phase, the readiness
// condition, and per-container wait/terminate state. It is a snapshot taken
// at query time and never tracks the live pod afterwards.
type PodStatus struct {
	Namespace  string           // namespace of the observed pod.
	Name       string           // name of the observed pod.
	Phase      string           // pod lifecycle phase ("Pending", "Running", ...).
	Ready      bool             // pod readiness condition.
	Reason     string           // reason attached to the readiness condition, if any.
	Containers []ContainerState // per-container state, in pod spec order.
}

// ContainerState captures the visible state of a single container within a
// pod: whether it is ready, and the waiting or terminated details when it
// isn't running.
type ContainerState struct {
	Name             string // container name.
	Ready            bool   // container readiness.
	WaitingReason    string // waiting state reason ("ImagePullBackOff", ...), or "".
	WaitingMessage   string // waiting state message, or "".
	Terminated       bool   // container has terminated.
	ExitCode         int32  // exit code when terminated.
	TerminatedReason string // terminated state reason, or "".
}

// ContainerNames returns the names of all containers of this pod, in pod
// spec order.
func (s *PodStatus) ContainerNames() []string {
	names := make([]string, len(s.Containers))
	for idx, cntr := range s.Containers {
		names[idx] = cntr.Name
	}
	return names
}

// Container returns the state of the container with the specified name, or
// nil if this pod has no such container.
func (s *PodStatus) Container(name string) *ContainerState {
	for idx := range s.Containers {
		if s.Containers[idx].Name == name {
			return &s.Containers[idx]
		}
	}
	return nil
}

// String renders a one-line textual representation of this pod status.
func (s *PodStatus) String() string {
	return fmt.Sprintf("pod '%s/%s' in phase %s (ready: %t)",
		s.Namespace, s.Name, s.Phase, s.Ready)
}

// Hints for the waiting-state reasons operators run into most often when a
// custom image doesn't come up.
var waitingHints = map[string]string{
	"ImagePullBackOff": "failed to pull the image; verify registry access and the image reference",
	"ErrImagePull":     "cannot pull the image; verify it exists and the cluster has pull access",
	"CrashLoopBackOff": "the container keeps crashing; check its logs for startup errors",
}

// Details renders a multi-line diagnostic block for this pod status,
// covering the pod phase and every container's wait/terminate state.
// Well-known waiting reasons such as image pull failures and crash loops
// get an additional troubleshooting hint attached.
func (s *PodStatus) Details() string {
	details := []string{fmt.Sprintf("phase: %s", s.Phase)}
	if s.Reason != "" {
		details = append(details, fmt.Sprintf("readiness reason: %s", s.Reason))
	}
	if len(s.Containers) > 0 {
		details = append(details, "container statuses:")
	}
	for _, cntr := range s.Containers {
		details = append(details, fmt.Sprintf("  - %s: ready=%t", cntr.Name, cntr.Ready))
		if cntr.WaitingReason != "" {
			details = append(details, fmt.Sprintf("    waiting: %s", cntr.WaitingReason))
			if hint, ok := waitingHints[cntr.WaitingReason]; ok {
				details = append(details, fmt.Sprintf("    hint: %s", hint))
			}
			if cntr.WaitingMessage != "" {
				details = append(details, fmt.Sprintf("    message: %s", cntr.WaitingMessage))
			}
		}
		if cntr.Terminated {
			details = append(details,
				fmt.Sprintf("    terminated: exit code %d, reason %s",
					cntr.ExitCode, cntr.TerminatedReason))
		}
	}
	return strings.Join(details, "\n")
}
