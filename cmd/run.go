/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/ltsched/InputParameters"
	"github.com/notargets/ltsched/executor"
	"github.com/notargets/ltsched/kernels"
	"github.com/notargets/ltsched/taskgraph"
)

// RunCmd represents the run command
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute global time steps of the task list with the reference kernels",
	Long: `
Replays the task list of one global time step Steps times on a linear model
problem and checks the result against the exact solution. Every kernel
verifies the state it reads, a dependency missing from the list shows up as
a kernel error.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ip, err := loadInput(viper.GetString("inputConditionsFile"))
		if err != nil {
			return
		}
		if cmd.Flags().Changed("executor") {
			ip.Executor, _ = cmd.Flags().GetString("executor")
		}
		if cmd.Flags().Changed("workers") {
			ip.Workers, _ = cmd.Flags().GetInt("workers")
		}
		if cmd.Flags().Changed("steps") {
			ip.Steps, _ = cmd.Flags().GetInt("steps")
		}
		if err = ip.Validate(); err != nil {
			return
		}
		if logrus.IsLevelEnabled(logrus.InfoLevel) {
			ip.Print()
		}
		prof, _ := cmd.Flags().GetString("profile")
		if stop, perr := startProfile(prof); perr != nil {
			return perr
		} else if stop != nil {
			defer stop()
		}
		var (
			reg         = prometheus.NewRegistry()
			addr, _     = cmd.Flags().GetString("metricsAddr")
			dump, _     = cmd.Flags().GetBool("metrics")
			ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt)
		)
		defer cancel()
		if len(addr) != 0 {
			srv := serveMetrics(addr, reg)
			defer func() { _ = srv.Shutdown(context.Background()) }()
		}
		if _, err = runSteps(ctx, cmd.OutOrStdout(), ip, reg); err != nil {
			return
		}
		if dump {
			err = printMetrics(cmd.OutOrStdout(), reg)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(RunCmd)
	RunCmd.Flags().StringP("executor", "e", InputParameters.ExecutorSequential, "executor: sequential or concurrent")
	RunCmd.Flags().IntP("workers", "w", 1, "number of workers of the concurrent executor")
	RunCmd.Flags().IntP("steps", "n", 1, "number of global time steps")
	RunCmd.Flags().String("profile", "", "write a profile to the current directory: cpu, mem, block or trace")
	RunCmd.Flags().String("metricsAddr", "", "serve prometheus metrics on this address while running, e.g. :9100")
	RunCmd.Flags().BoolP("metrics", "m", false, "print the executor metrics after the run")
}

func startProfile(kind string) (stop func(), err error) {
	var mode func(*profile.Profile)
	switch strings.ToLower(kind) {
	case "":
		return
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "block":
		mode = profile.BlockProfile
	case "trace":
		mode = profile.TraceProfile
	default:
		return nil, errors.Errorf("unknown profile %q", kind)
	}
	return profile.Start(mode, profile.ProfilePath("."), profile.Quiet, profile.NoShutdownHook).Stop, nil
}

func serveMetrics(addr string, reg *prometheus.Registry) (srv *http.Server) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).WithField("addr", addr).Error("metrics server stopped")
		}
	}()
	return
}

// runSteps advances the reference model by ip.Steps global steps and checks
// the result against the exact solution.
func runSteps(ctx context.Context, w io.Writer, ip *InputParameters.InputParametersLTS,
	reg prometheus.Registerer) (s *kernels.State, err error) {
	cfg, err := ip.Config()
	if err != nil {
		return
	}
	topo, err := ip.Topology()
	if err != nil {
		return
	}
	tl, err := taskgraph.Build(cfg, topo)
	if err != nil {
		return
	}
	model := kernels.NewLinearModel(topo.NumOwned())
	if s, err = kernels.NewState(cfg, topo, model, ip.TimeStep, ip.Workers); err != nil {
		return
	}
	s.Parallel = ip.ParallelDegree
	var (
		entry = log.WithFields(logrus.Fields{"title": ip.Title, "executor": ip.Executor})
		opts  = []executor.Option{executor.WithMetrics(executor.NewMetrics(reg)), executor.WithLogger(entry)}
		ex    executor.Executor
	)
	if ip.Executor == InputParameters.ExecutorConcurrent {
		ex = executor.NewConcurrent(topo, s.Kernels(), ip.Workers, opts...)
	} else {
		ex = executor.NewSequential(topo, s.Kernels(), opts...)
	}
	start := time.Now()
	for n := 0; n < ip.Steps; n++ {
		if err = ex.Run(ctx, tl); err != nil {
			return s, errors.Wrapf(err, "step %d", n)
		}
		if cfg.UsesSimpleSchedule() {
			if err = s.AdvanceExplicit(ip.TimeStep); err != nil {
				return
			}
		}
		entry.WithField("step", n).Debug("global step done")
	}
	elapsed := time.Since(start)
	if err = s.CheckSolution(float64(ip.Steps) * ip.TimeStep); err != nil {
		return
	}
	fmt.Fprintf(w, "%s: %d steps of %d tasks in %v, solution matches at t=%g\n",
		ip.Title, ip.Steps, len(tl), elapsed, float64(ip.Steps)*ip.TimeStep)
	return
}

func printMetrics(w io.Writer, reg prometheus.Gatherer) (err error) {
	families, err := reg.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			sort.Strings(labels)
			name := mf.GetName() + "{" + strings.Join(labels, ",") + "}"
			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(w, "%-80s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				fmt.Fprintf(w, "%-80s count %d sum %gs\n", name, h.GetSampleCount(), h.GetSampleSum())
			}
		}
	}
	return
}
