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
	"errors"
	"time"

	"github.com/peckish/importprobe"
	"github.com/peckish/importprobe/test/mockingpod"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("readiness waiter", func() {

	var mp *mockingpod.MockingPod

	BeforeEach(func() {
		mp = mockingpod.NewMockingPod()
	})

	It("returns promptly for an already-ready pod", func() {
		mp.AddPod(mockingpod.MockedPod{
			Namespace: "workbenches",
			Name:      "datascience-0",
			Phase:     "Running",
			Ready:     true,
		})
		Expect(Wait(context.Background(), mp, "workbenches", "datascience-0",
			WithTimeout(time.Second), WithInterval(time.Millisecond))).To(Succeed())
	})

	It("keeps polling until the pod reports readiness", func() {
		mp.AddPod(mockingpod.MockedPod{
			Namespace:  "workbenches",
			Name:       "datascience-0",
			Phase:      "Running",
			ReadyAfter: 3,
		})
		Expect(Wait(context.Background(), mp, "workbenches", "datascience-0",
			WithTimeout(time.Second), WithInterval(time.Millisecond))).To(Succeed())
	})

	It("fails with a NotReadyError carrying the last observed status", func() {
		mp.AddPod(mockingpod.MockedPod{
			Namespace: "workbenches",
			Name:      "datascience-0",
			Phase:     "Pending",
			Containers: []importprobe.ContainerState{
				{Name: "datascience", WaitingReason: "ImagePullBackOff"},
			},
		})
		err := Wait(context.Background(), mp, "workbenches", "datascience-0",
			WithTimeout(50*time.Millisecond), WithInterval(5*time.Millisecond))
		Expect(err).To(HaveOccurred())

		var notReady *NotReadyError
		Expect(errors.As(err, &notReady)).To(BeTrue())
		Expect(notReady.Error()).To(ContainSubstring("did not become ready within"))
		Expect(notReady.LastStatus).NotTo(BeNil())
		Expect(notReady.LastStatus.Phase).To(Equal("Pending"))
		Expect(notReady.LastStatus.Details()).To(ContainSubstring("ImagePullBackOff"))
	})

	It("reports a pod that never got created", func() {
		err := Wait(context.Background(), mp, "workbenches", "neverborn-0",
			WithTimeout(30*time.Millisecond), WithInterval(5*time.Millisecond))
		Expect(err).To(HaveOccurred())

		var notReady *NotReadyError
		Expect(errors.As(err, &notReady)).To(BeTrue())
		Expect(notReady.LastStatus).To(BeNil())
		Expect(notReady.Error()).To(ContainSubstring("was not created within"))
	})

	It("tolerates the pod appearing only after the wait began", func() {
		go func() {
			time.Sleep(20 * time.Millisecond)
			mp.AddPod(mockingpod.MockedPod{
				Namespace: "workbenches",
				Name:      "latecomer-0",
				Phase:     "Running",
				Ready:     true,
			})
		}()
		Expect(Wait(context.Background(), mp, "workbenches", "latecomer-0",
			WithTimeout(2*time.Second), WithInterval(5*time.Millisecond))).To(Succeed())
	})
})
