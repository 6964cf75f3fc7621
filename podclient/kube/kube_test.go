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
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
	utilexec "k8s.io/client-go/util/exec"

	"github.com/peckish/importprobe/podclient"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	. "github.com/thediveo/success"
)

// wirePod is a pod object as the cluster API would serve it, with one
// container still stuck waiting and the other one done for.
var wirePod = &corev1.Pod{
	ObjectMeta: metav1.ObjectMeta{
		Namespace: "workbenches",
		Name:      "datascience-0",
	},
	Spec: corev1.PodSpec{
		Containers: []corev1.Container{
			{Name: "datascience"},
			{Name: "oauth-proxy"},
		},
	},
	Status: corev1.PodStatus{
		Phase: corev1.PodPending,
		Conditions: []corev1.PodCondition{
			{
				Type:   corev1.PodReady,
				Status: corev1.ConditionFalse,
				Reason: "ContainersNotReady",
			},
		},
		ContainerStatuses: []corev1.ContainerStatus{
			{
				Name: "datascience",
				State: corev1.ContainerState{
					Waiting: &corev1.ContainerStateWaiting{
						Reason:  "ImagePullBackOff",
						Message: "Back-off pulling image",
					},
				},
			},
			{
				Name: "oauth-proxy",
				State: corev1.ContainerState{
					Terminated: &corev1.ContainerStateTerminated{
						ExitCode: 137,
						Reason:   "OOMKilled",
					},
				},
			},
		},
	},
}

// fakeExecutor replaces the SPDY exec stream in unit tests, writing canned
// output into the stream options and returning a canned error.
type fakeExecutor struct {
	stdout string
	stderr string
	err    error
}

var _ remotecommand.Executor = (*fakeExecutor)(nil)

func (f *fakeExecutor) Stream(options remotecommand.StreamOptions) error {
	return f.StreamWithContext(context.Background(), options)
}

func (f *fakeExecutor) StreamWithContext(ctx context.Context, options remotecommand.StreamOptions) error {
	if options.Stdout != nil {
		_, _ = io.WriteString(options.Stdout, f.stdout)
	}
	if options.Stderr != nil {
		_, _ = io.WriteString(options.Stderr, f.stderr)
	}
	return f.err
}

var _ = Describe("cluster API pod client", func() {

	Context("pod status", func() {

		var cl *Client

		BeforeEach(func() {
			cl = Successful(New(&rest.Config{},
				WithClientset(fake.NewSimpleClientset(wirePod.DeepCopy()))))
			DeferCleanup(cl.Close)
		})

		It("maps the wire-level pod onto a status snapshot", func() {
			status := Successful(cl.Status(context.Background(), "workbenches", "datascience-0"))
			Expect(status.Namespace).To(Equal("workbenches"))
			Expect(status.Name).To(Equal("datascience-0"))
			Expect(status.Phase).To(Equal("Pending"))
			Expect(status.Ready).To(BeFalse())
			Expect(status.Reason).To(Equal("ContainersNotReady"))

			Expect(status.ContainerNames()).To(Equal([]string{"datascience", "oauth-proxy"}))
			Expect(status.Container("datascience").WaitingReason).To(Equal("ImagePullBackOff"))
			oauth := status.Container("oauth-proxy")
			Expect(oauth.Terminated).To(BeTrue())
			Expect(oauth.ExitCode).To(Equal(int32(137)))
			Expect(oauth.TerminatedReason).To(Equal("OOMKilled"))
		})

		It("reports readiness once the condition is true", func() {
			ready := wirePod.DeepCopy()
			ready.Name = "ready-0"
			ready.Status.Phase = corev1.PodRunning
			ready.Status.Conditions[0].Status = corev1.ConditionTrue
			cl = Successful(New(&rest.Config{},
				WithClientset(fake.NewSimpleClientset(ready))))

			status := Successful(cl.Status(context.Background(), "workbenches", "ready-0"))
			Expect(status.Phase).To(Equal("Running"))
			Expect(status.Ready).To(BeTrue())
		})

		It("translates not-found into the client-neutral sentinel", func() {
			_, err := cl.Status(context.Background(), "workbenches", "neverborn-0")
			Expect(errors.Is(err, podclient.ErrNotFound)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("neverborn-0"))
		})

		It("lists containers even before their status appears", func() {
			fresh := wirePod.DeepCopy()
			fresh.Name = "fresh-0"
			fresh.Status.ContainerStatuses = nil
			cl = Successful(New(&rest.Config{},
				WithClientset(fake.NewSimpleClientset(fresh))))

			status := Successful(cl.Status(context.Background(), "workbenches", "fresh-0"))
			Expect(status.ContainerNames()).To(Equal([]string{"datascience", "oauth-proxy"}))
		})
	})

	Context("log retrieval", func() {

		It("fetches a container log tail", func() {
			cl := Successful(New(&rest.Config{},
				WithClientset(fake.NewSimpleClientset(wirePod.DeepCopy()))))
			defer cl.Close()
			logs := Successful(cl.Logs(context.Background(),
				"workbenches", "datascience-0", "datascience", 100))
			// the fake clientset serves canned log content; what matters
			// here is that the stream gets read and closed without error.
			Expect(logs).To(Equal("fake logs"))
		})
	})

	Context("command execution", func() {

		// newExecClient builds a client against an unreachable (but
		// well-formed) API endpoint, with the exec stream replaced by the
		// specified fake; nothing ever gets dialed.
		newExecClient := func(exec *fakeExecutor, spy *url.URL) *Client {
			return Successful(New(&rest.Config{Host: "https://cluster.invalid"},
				WithExecutorFactory(func(config *rest.Config, method string, u *url.URL) (remotecommand.Executor, error) {
					*spy = *u
					return exec, nil
				})))
		}

		It("captures standard output of a succeeding command", func() {
			var execURL url.URL
			cl := newExecClient(&fakeExecutor{stdout: "3.11.5"}, &execURL)
			defer cl.Close()

			stdout, stderr, err := cl.Exec(context.Background(),
				"workbenches", "datascience-0", "datascience",
				[]string{"python3", "-c", "import sys; print(sys.version)"},
				time.Second)
			Expect(err).NotTo(HaveOccurred())
			Expect(stdout).To(Equal("3.11.5"))
			Expect(stderr).To(BeEmpty())

			Expect(execURL.Path).To(ContainSubstring(
				"/namespaces/workbenches/pods/datascience-0/exec"))
			Expect(execURL.RawQuery).To(ContainSubstring("container=datascience"))
		})

		It("maps a non-zero exit status onto an ExecError", func() {
			var execURL url.URL
			cl := newExecClient(&fakeExecutor{
				stderr: "ModuleNotFoundError: No module named 'nonesuch'\n",
				err: utilexec.CodeExitError{
					Err:  fmt.Errorf("command terminated with exit code 1"),
					Code: 1,
				},
			}, &execURL)
			defer cl.Close()

			_, stderr, err := cl.Exec(context.Background(),
				"workbenches", "datascience-0", "datascience",
				[]string{"python3", "-c", "import nonesuch"},
				time.Second)
			Expect(stderr).To(ContainSubstring("No module named 'nonesuch'"))

			var execErr *podclient.ExecError
			Expect(errors.As(err, &execErr)).To(BeTrue())
			Expect(execErr.ExitCode).To(Equal(1))
			Expect(execErr.Command).To(Equal("python3 -c import nonesuch"))
			Expect(execErr.Stderr).To(Equal("ModuleNotFoundError: No module named 'nonesuch'"))
			Expect(execErr.Error()).To(ContainSubstring("exited with status 1"))
		})

		It("passes stream failures through with context attached", func() {
			var execURL url.URL
			cl := newExecClient(&fakeExecutor{
				err: fmt.Errorf("connection lost mid-stream"),
			}, &execURL)
			defer cl.Close()

			_, _, err := cl.Exec(context.Background(),
				"workbenches", "datascience-0", "datascience",
				[]string{"python3", "-c", "import os"},
				time.Second)
			Expect(err).To(MatchError(ContainSubstring("cannot exec into container 'datascience'")))
			Expect(err).To(MatchError(ContainSubstring("connection lost mid-stream")))
		})
	})
})
