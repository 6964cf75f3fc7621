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

// importprobe verifies that the container images of already-spawned pods
// contain the packages their image verification cases require. It never
// creates or deletes any cluster resources itself; spawning workloads and
// tearing them down belongs to whatever drives this tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/peckish/importprobe/cases"
	"github.com/peckish/importprobe/podclient/kube"
	"github.com/peckish/importprobe/readiness"
	"github.com/peckish/importprobe/verifier"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	casesPath   string
	kubeconfig  string
	only        string
	interpreter string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	flags := rootFlags{}
	cmd := &cobra.Command{
		Use:   "importprobe",
		Short: "Verify that pod container images contain their required packages",
		Long: `importprobe runs the image verification cases from a YAML case list
against already-running pods: per case it waits for the pod to become
ready and then probes every required package for importability inside
the named container.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}
	cmd.Flags().StringVarP(&flags.casesPath, "cases", "c", "", "path to the YAML case list")
	_ = cmd.MarkFlagRequired("cases")
	cmd.Flags().StringVar(&flags.kubeconfig, "kubeconfig", "",
		"path to a kubeconfig; empty falls back to in-cluster configuration")
	cmd.Flags().StringVar(&flags.only, "only", "", "run only the case with this name")
	cmd.Flags().StringVar(&flags.interpreter, "interpreter", verifier.DefaultInterpreter,
		"interpreter invoked inside containers for import probes")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "log level (trace...error)")
	return cmd
}

func run(ctx context.Context, flags rootFlags) error {
	level, err := zerolog.ParseLevel(flags.logLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", flags.logLevel)
	}
	log := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()

	caselist, err := cases.LoadFile(flags.casesPath)
	if err != nil {
		return err
	}
	config, err := clientcmd.BuildConfigFromFlags("", flags.kubeconfig)
	if err != nil {
		return errors.Wrap(err, "cannot configure cluster access")
	}
	pods, err := kube.New(config)
	if err != nil {
		return err
	}
	defer pods.Close()
	verify := verifier.New(pods,
		verifier.WithInterpreter(flags.interpreter),
		verifier.WithLogger(log))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	ran, failed := 0, 0
	for _, c := range caselist {
		if flags.only != "" && c.Name != flags.only {
			continue
		}
		if c.Skipped() {
			log.Info().Str("case", c.Name).Str("reason", c.Skip).Msg("skipping case")
			continue
		}
		ran++
		if !runCase(ctx, log, pods, verify, c) {
			failed++
		}
	}
	if flags.only != "" && ran == 0 {
		return errors.Errorf("no case named %q in %s", flags.only, flags.casesPath)
	}
	if failed > 0 {
		return errors.Errorf("%d of %d cases failed", failed, ran)
	}
	log.Info().Int("cases", ran).Msg("all cases passed")
	return nil
}

// runCase waits for the case's pod and probes its packages, rendering
// readiness diagnostics and the per-package failure report as they occur.
func runCase(
	ctx context.Context,
	log zerolog.Logger,
	pods *kube.Client,
	verify verifier.Verifier,
	c cases.Case,
) bool {
	caselog := log.With().Str("case", c.Name).Logger()
	caselog.Info().
		Str("pod", c.Namespace+"/"+c.Pod).
		Str("image", c.Image).
		Msg("waiting for pod readiness")
	err := readiness.Wait(ctx, pods, c.Namespace, c.Pod,
		readiness.WithTimeout(time.Duration(c.ReadyTimeout)),
		readiness.WithLogger(caselog))
	if err != nil {
		var notReady *readiness.NotReadyError
		if errors.As(err, &notReady) && notReady.LastStatus != nil {
			fmt.Fprintf(os.Stderr, "%s\n%s\n", notReady, notReady.LastStatus.Details())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		caselog.Error().Msg("case failed: pod not ready")
		return false
	}
	results, err := verify.Verify(ctx, c.Request())
	if err != nil {
		caselog.Error().Err(err).Msg("case failed: verification aborted")
		return false
	}
	if !results.AllImported() {
		fmt.Fprintln(os.Stderr, results.FailureReport())
		caselog.Error().
			Int("failed", len(results.Failed())).
			Int("probed", len(results)).
			Msg("case failed: packages not importable")
		return false
	}
	caselog.Info().Int("probed", len(results)).Msg("case passed")
	return true
}
