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

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"k8s.io/client-go/tools/clientcmd"

	"github.com/peckish/importprobe"
	"github.com/peckish/importprobe/podclient/kube"
	"github.com/peckish/importprobe/readiness"
	"github.com/peckish/importprobe/verifier"
)

func main() {
	// connect to the cluster the local kubeconfig points at.
	kubeconfig := filepath.Join(os.Getenv("HOME"), ".kube", "config")
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		panic(err)
	}
	pods, err := kube.New(config)
	if err != nil {
		panic(err)
	}
	defer pods.Close()

	ctx := context.Background()

	// first wait for the workbench pod to become ready; pulling a large
	// custom image can take a while.
	if err := readiness.Wait(ctx, pods, "test-datascience", "datascience-0",
		readiness.WithTimeout(10*time.Minute)); err != nil {
		panic(err)
	}

	// then probe the packages this image is supposed to ship.
	results, err := verifier.New(pods).Verify(ctx, importprobe.Request{
		Namespace:   "test-datascience",
		Pod:         "datascience-0",
		Container:   "datascience",
		Packages:    []string{"numpy", "pandas", "matplotlib", "sklearn"},
		Timeout:     importprobe.DefaultProbeTimeout,
		Diagnostics: true,
	})
	if err != nil {
		panic(err)
	}
	for _, pkg := range results.Packages() {
		fmt.Println(results[pkg])
	}
	if !results.AllImported() {
		fmt.Println(results.FailureReport())
		os.Exit(1)
	}
}
