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
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultProbeTimeout bounds a single import probe command unless a request
// says otherwise.
const DefaultProbeTimeout = time.Minute

// DefaultLogTail is the number of most recent container log lines gathered
// as diagnostics when a probe fails.
const DefaultLogTail = int64(100)

// Request identifies a pod's container together with the set of packages
// whose importability should be verified there. A Request must be validated
// before use; verifiers reject invalid requests before issuing any remote
// command.
type Request struct {
	Namespace   string        `validate:"required"`                          // namespace of the target pod.
	Pod         string        `validate:"required"`                          // name of the target pod.
	Container   string        `validate:"required"`                          // container within the pod to probe.
	Packages    []string      `validate:"required,min=1,unique,dive,importable"` // unique package names to probe.
	Timeout     time.Duration `validate:"gt=0"`                              // per-probe command timeout.
	Diagnostics bool          // gather a container log tail for failed probes.
	LogTail     int64         `validate:"gte=0"` // log tail line bound; 0 means DefaultLogTail.
}

// reImportable matches package names that are plain identifiers. Anything
// else gets rejected so that a package name can never smuggle shell
// metacharacters into the probe command.
var reImportable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidPackageName reports whether name is acceptable as the target of an
// import probe.
func ValidPackageName(name string) bool {
	return reImportable.MatchString(name)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// The error return only signals misuse of RegisterValidation itself,
	// never runtime validation failures.
	_ = v.RegisterValidation("importable", func(fl validator.FieldLevel) bool {
		return ValidPackageName(fl.Field().String())
	})
	return v
}

// Validate checks this request for structural soundness: target identity
// present, a non-empty set of unique identifier-safe package names, and a
// strictly positive probe timeout. The first violation found is reported.
func (r Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err
	}
	return requestError(verrs[0], r)
}

// requestError turns a single field validation failure into a descriptive
// error in terms of the request, not of validator tag names.
func requestError(fe validator.FieldError, r Request) error {
	switch fe.StructField() {
	case "Namespace", "Pod", "Container":
		return fmt.Errorf("request is missing the target %s",
			map[string]string{"Namespace": "namespace", "Pod": "pod name", "Container": "container name"}[fe.StructField()])
	case "Timeout":
		return fmt.Errorf("probe timeout must be positive, got %s", r.Timeout)
	case "LogTail":
		return fmt.Errorf("log tail bound must not be negative, got %d", r.LogTail)
	}
	switch fe.Tag() {
	case "required", "min":
		return fmt.Errorf("request needs at least one package to probe")
	case "unique":
		return fmt.Errorf("duplicate package name in request: %v", r.Packages)
	case "importable":
		return fmt.Errorf("invalid package name %q: not an importable identifier", fe.Value())
	}
	return fmt.Errorf("invalid request field %s", fe.StructField())
}
