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
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// wellFormed returns a request that passes validation, for tests to then
// break one aspect at a time.
func wellFormed() Request {
	return Request{
		Namespace: "workbenches",
		Pod:       "datascience-0",
		Container: "datascience",
		Packages:  []string{"numpy", "pandas"},
		Timeout:   30 * time.Second,
	}
}

var _ = Describe("verification requests", func() {

	It("accepts a well-formed request", func() {
		Expect(wellFormed().Validate()).To(Succeed())
	})

	It("rejects missing target identity", func() {
		for _, breakit := range []func(*Request){
			func(r *Request) { r.Namespace = "" },
			func(r *Request) { r.Pod = "" },
			func(r *Request) { r.Container = "" },
		} {
			r := wellFormed()
			breakit(&r)
			Expect(r.Validate()).To(MatchError(ContainSubstring("missing the target")))
		}
	})

	It("rejects an empty package set", func() {
		r := wellFormed()
		r.Packages = nil
		Expect(r.Validate()).To(MatchError(ContainSubstring("at least one package")))
		r.Packages = []string{}
		Expect(r.Validate()).To(MatchError(ContainSubstring("at least one package")))
	})

	It("rejects duplicate package names", func() {
		r := wellFormed()
		r.Packages = []string{"numpy", "numpy"}
		Expect(r.Validate()).To(MatchError(ContainSubstring("duplicate package name")))
	})

	It("rejects package names that aren't plain identifiers", func() {
		for _, evil := range []string{
			"os; rm -rf /",
			"os && echo pwned",
			"os`date`",
			"nu-mpy",
			"1numpy",
			"",
			"os.path",
		} {
			r := wellFormed()
			r.Packages = []string{evil}
			Expect(r.Validate()).NotTo(Succeed(), "package name %q", evil)
		}
	})

	It("accepts underscored and mixed-case identifiers", func() {
		Expect(ValidPackageName("sdg_hub")).To(BeTrue())
		Expect(ValidPackageName("_private")).To(BeTrue())
		Expect(ValidPackageName("PIL")).To(BeTrue())
		Expect(ValidPackageName("sklearn2")).To(BeTrue())
	})

	It("rejects non-positive probe timeouts", func() {
		r := wellFormed()
		r.Timeout = 0
		Expect(r.Validate()).To(MatchError(ContainSubstring("timeout must be positive")))
		r.Timeout = -time.Second
		Expect(r.Validate()).To(MatchError(ContainSubstring("timeout must be positive")))
	})

	It("rejects a negative log tail bound", func() {
		r := wellFormed()
		r.LogTail = -1
		Expect(r.Validate()).To(MatchError(ContainSubstring("log tail bound")))
	})
})
