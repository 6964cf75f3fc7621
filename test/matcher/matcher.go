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

package matcher

import (
	"fmt"

	o "github.com/onsi/gomega"
	"github.com/onsi/gomega/types"

	"github.com/peckish/importprobe"
)

// HaveProbed succeeds when the actual Results cover exactly the specified
// package names, no more and no less.
func HaveProbed(packages ...string) types.GomegaMatcher {
	return o.WithTransform(func(actual importprobe.Results) []string {
		return actual.Packages()
	}, o.ConsistOf(packages))
}

// resultOf plucks the result of a specific package out of the actual
// Results, erroring when no such result exists.
func resultOf(pkg string) func(actual importprobe.Results) (importprobe.Result, error) {
	return func(actual importprobe.Results) (importprobe.Result, error) {
		r, ok := actual[pkg]
		if !ok {
			return importprobe.Result{}, fmt.Errorf("no probe result for package %q", pkg)
		}
		return r, nil
	}
}

// HaveImported succeeds when the actual Results report the specified
// package as successfully imported, without any error message attached.
func HaveImported(pkg string) types.GomegaMatcher {
	return o.WithTransform(resultOf(pkg), o.SatisfyAll(
		o.HaveField("Imported", true),
		o.HaveField("Err", o.BeEmpty()),
	))
}

// HaveFailedImport succeeds when the actual Results report the specified
// package as failed, with a non-empty error message attached; additionally
// all passed matchers must succeed on the package's Result.
func HaveFailedImport(pkg string, matchers ...types.GomegaMatcher) types.GomegaMatcher {
	all := append([]types.GomegaMatcher{
		o.HaveField("Imported", false),
		o.HaveField("Err", o.Not(o.BeEmpty())),
	}, matchers...)
	return o.WithTransform(resultOf(pkg), o.SatisfyAll(all...))
}

// HaveMissingModule succeeds when the actual Results report the specified
// package as failed because the image doesn't ship that module at all.
func HaveMissingModule(pkg string) types.GomegaMatcher {
	return o.WithTransform(resultOf(pkg), o.SatisfyAll(
		o.HaveField("Imported", false),
		o.HaveField("MissingModule()", true),
	))
}

// BeSelfConsistent succeeds when every result of the actual Results either
// imported without an error message, or failed with one.
func BeSelfConsistent() types.GomegaMatcher {
	return o.WithTransform(func(actual importprobe.Results) bool {
		for _, r := range actual {
			if r.Imported != (r.Err == "") {
				return false
			}
		}
		return true
	}, o.BeTrue())
}
