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

package cases

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/peckish/importprobe"
	"github.com/peckish/importprobe/readiness"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// such as "90s" or "10m".
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", text)
	}
	*d = Duration(parsed)
	return nil
}

// Case describes one image verification case: which pod container to probe
// and which packages have to be importable there. Every case carries its
// own explicit package list; nothing is ever inferred from a case's name.
type Case struct {
	Name          string   `yaml:"name" validate:"required"`      // unique case identifier.
	Namespace     string   `yaml:"namespace" validate:"required"` // namespace of the target pod.
	Pod           string   `yaml:"pod" validate:"required"`       // name of the target pod.
	Container     string   `yaml:"container"`                     // container to probe; defaults to the case name.
	Image         string   `yaml:"image"`                         // image reference, informational only.
	Packages      []string `yaml:"packages" validate:"required,min=1,unique,dive,importable"`
	ReadyTimeout  Duration `yaml:"readyTimeout"`  // max wait for pod readiness; default 10m.
	ProbeTimeout  Duration `yaml:"probeTimeout"`  // per-probe command timeout; default 1m.
	NoDiagnostics bool     `yaml:"noDiagnostics"` // opt out of log gathering on failure.
	Skip          string   `yaml:"skip"`          // non-empty: skip this case, stating why.
}

// Request returns the verification request for this case, with the case
// defaults applied.
func (c Case) Request() importprobe.Request {
	return importprobe.Request{
		Namespace:   c.Namespace,
		Pod:         c.Pod,
		Container:   c.Container,
		Packages:    c.Packages,
		Timeout:     time.Duration(c.ProbeTimeout),
		Diagnostics: !c.NoDiagnostics,
	}
}

// Skipped reports whether this case is marked to be skipped.
func (c Case) Skipped() bool { return c.Skip != "" }

// file is the YAML document shape: a single top-level case list.
type file struct {
	Cases []Case `yaml:"cases"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("importable", func(fl validator.FieldLevel) bool {
		return importprobe.ValidPackageName(fl.Field().String())
	})
	return v
}

// Load reads a YAML case list, validates every case once, applies the case
// defaults, and returns the cases in document order. Loading fails on the
// first invalid case, on duplicate case names, and on unparseable YAML;
// there is no half-loaded case list.
func Load(r io.Reader) ([]Case, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "cannot parse case list")
	}
	if len(f.Cases) == 0 {
		return nil, errors.New("case list is empty")
	}
	seen := map[string]bool{}
	for idx := range f.Cases {
		c := &f.Cases[idx]
		if err := validate.Struct(*c); err != nil {
			return nil, caseError(c.Name, idx, err)
		}
		if seen[c.Name] {
			return nil, errors.Errorf("duplicate case name %q", c.Name)
		}
		seen[c.Name] = true
		if c.Container == "" {
			c.Container = c.Name
		}
		if c.ReadyTimeout == 0 {
			c.ReadyTimeout = Duration(readiness.DefaultTimeout)
		}
		if c.ProbeTimeout == 0 {
			c.ProbeTimeout = Duration(importprobe.DefaultProbeTimeout)
		}
	}
	return f.Cases, nil
}

// LoadFile is Load on the contents of the named file.
func LoadFile(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open case list")
	}
	defer f.Close()
	return Load(f)
}

// caseError turns a validator complaint about a single case into a
// descriptive error naming the case and the offending field.
func caseError(name string, idx int, err error) error {
	label := fmt.Sprintf("case %q", name)
	if name == "" {
		label = fmt.Sprintf("case #%d", idx+1)
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.Wrapf(err, "invalid %s", label)
	}
	fe := verrs[0]
	switch {
	case fe.StructField() == "Packages" && (fe.Tag() == "required" || fe.Tag() == "min"):
		return errors.Errorf("invalid %s: needs at least one package", label)
	case fe.Tag() == "unique":
		return errors.Errorf("invalid %s: duplicate package name", label)
	case fe.Tag() == "importable":
		return errors.Errorf("invalid %s: invalid package name %q", label, fe.Value())
	case fe.Tag() == "required":
		return errors.Errorf("invalid %s: missing %s", label, fe.StructField())
	}
	return errors.Errorf("invalid %s: bad field %s", label, fe.StructField())
}
