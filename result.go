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
	"sort"
	"strings"
	"time"
)

// Result is the outcome of a single package import probe inside a pod's
// container. Results are immutable: they get created once per probe and are
// never updated afterwards, so they can be freely passed around without any
// locking.
//
// A Result is self-consistent: Imported implies an empty Err, and a failed
// probe always carries a non-empty Err.
type Result struct {
	Package  string        // name of the probed package.
	Imported bool          // true if the import probe exited with status zero.
	Err      string        // failure detail; always "" for successful probes.
	Command  string        // the probe command issued, for auditing.
	Duration time.Duration // wall-clock probe duration, clamped to the probe timeout.
	Stdout   string        // captured standard output of the probe.
	Stderr   string        // captured standard error of the probe.
	Logs     string        // optional container log tail gathered on failure, or "".
}

// Substrings in probe error output that signal the package simply isn't
// installed in the probed image, as opposed to, say, a crashing interpreter.
var missingModuleMarkers = []string{
	"ModuleNotFoundError",
	"ImportError",
	"No module named",
}

// MissingModule reports whether this (failed) probe looks like the package
// isn't installed in the image at all, based on the interpreter's error
// output. A successful probe is never a missing module.
func (r Result) MissingModule() bool {
	if r.Imported {
		return false
	}
	for _, marker := range missingModuleMarkers {
		if strings.Contains(r.Err, marker) || strings.Contains(r.Stderr, marker) {
			return true
		}
	}
	return false
}

// String renders a terse textual representation of this probe result, such
// as its package name, verdict, and probe duration.
func (r Result) String() string {
	if r.Imported {
		return fmt.Sprintf("package '%s' imported in %s", r.Package, r.Duration)
	}
	return fmt.Sprintf("package '%s' failed to import after %s: %s",
		r.Package, r.Duration, r.Err)
}

// Results maps probed package names to their individual probe outcomes. The
// key set of a Results returned by a verifier is always exactly the set of
// requested package names.
type Results map[string]Result

// Packages returns the sorted names of all probed packages.
func (rr Results) Packages() []string {
	names := make([]string, 0, len(rr))
	for name := range rr {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Failed returns the results of all failed probes, sorted by package name.
func (rr Results) Failed() []Result {
	failed := []Result{}
	for _, name := range rr.Packages() {
		if r := rr[name]; !r.Imported {
			failed = append(failed, r)
		}
	}
	return failed
}

// AllImported returns true if every probed package imported successfully.
func (rr Results) AllImported() bool {
	for _, r := range rr {
		if !r.Imported {
			return false
		}
	}
	return true
}

// logExcerptLimit bounds how much of a container log tail makes it into a
// failure report.
const logExcerptLimit = 500

// FailureReport renders a human-readable multi-line report covering every
// failed probe: one block per package with its error, the command issued,
// the probe duration, and an excerpt of the container log tail when one was
// gathered. It returns "" when all probes succeeded.
func (rr Results) FailureReport() string {
	failed := rr.Failed()
	if len(failed) == 0 {
		return ""
	}
	report := []string{
		"the following packages are not importable:",
		"",
	}
	for _, r := range failed {
		report = append(report,
			fmt.Sprintf("  ✗ %s:", r.Package),
			fmt.Sprintf("    error: %s", r.Err),
			fmt.Sprintf("    command: %s", r.Command),
			fmt.Sprintf("    duration: %s", r.Duration))
		if r.Logs != "" {
			report = append(report, "    container logs (excerpt):")
			excerpt := r.Logs
			if len(excerpt) > logExcerptLimit {
				excerpt = excerpt[:logExcerptLimit]
			}
			for _, line := range strings.Split(excerpt, "\n") {
				report = append(report, "      "+line)
			}
		}
		report = append(report, "")
	}
	return strings.Join(report, "\n")
}
