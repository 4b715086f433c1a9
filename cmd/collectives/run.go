package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func newRunCmd(f *flags) *cobra.Command {
	var iterations int
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Builds a collective operation on every rank, executes it and checks the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations <= 0 {
				return errors.Errorf("--iterations=%d must be positive", iterations)
			}
			s, err := f.newSession()
			if err != nil {
				return err
			}
			defer s.close()
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return s.run(ctx, iterations)
		},
	}
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 1, "Number of executions of the schedules.")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Timeout of the whole run.")
	return cmd
}

// run builds the workload on every rank, and executes it iterations times.
func (s *session) run(ctx context.Context, iterations int) error {
	schedules := make([]*sched.Schedule, len(s.comms))
	defer func() {
		for _, schedule := range schedules {
			if schedule != nil && !schedule.IsCached() {
				schedule.Release()
			}
		}
	}()
	start := time.Now()
	for rank, c := range s.comms {
		var err error
		schedules[rank], _, err = c.Build(s.work.ctype, s.work.ops[rank])
		if err != nil {
			return errors.WithMessagef(err, "rank %d", rank)
		}
	}
	buildTime := time.Since(start)
	klog.V(1).Infof("built %d schedules of %s in %s", len(schedules), s.work.ctype, buildTime)

	bar := progressbar.NewOptions(iterations,
		progressbar.OptionSetDescription(s.work.ctype.String()),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("runs"),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionClearOnFinish(),
	)
	start = time.Now()
	var failures []int
	for range iterations {
		s.work.reset()
		if err := executeAll(ctx, schedules); err != nil {
			return err
		}
		if failures = s.work.mismatches(); len(failures) > 0 {
			break
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	runTime := time.Since(start)

	results := newTable(nil, lipgloss.Right, lipgloss.Left)
	results.row(false, "operation", fmt.Sprintf("%s on %s", s.work.ctype, s.topology))
	results.row(false, "schedule (rank 0)", schedules[0].String())
	results.row(false, "build time", buildTime.String())
	results.row(false, "executions", humanize.Comma(int64(schedules[0].Executions())))
	results.row(false, "time per execution", (runTime / time.Duration(max(schedules[0].Executions(), 1))).String())
	results.row(false, "copies", humanize.Comma(int64(s.backend.Copies())))
	results.row(false, "copied", humanize.IBytes(uint64(s.backend.CopiedBytes())))
	results.row(false, "handle exchanges", humanize.Comma(int64(s.backend.HandleExchanges())))
	results.row(false, "pool barriers", humanize.Comma(int64(s.backend.PoolBarriers())))
	results.row(len(failures) > 0, "failed ranks", fmt.Sprint(failures))
	printTable("Results", results)
	if len(failures) > 0 {
		return errors.Errorf("%s: wrong results on ranks %v", s.work.ctype, failures)
	}
	return nil
}

// executeAll executes the schedules concurrently, one goroutine per rank.
func executeAll(ctx context.Context, schedules []*sched.Schedule) error {
	var wg sync.WaitGroup
	errs := make([]error, len(schedules))
	for rank, schedule := range schedules {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[rank] = schedule.Execute(ctx)
		}()
	}
	wg.Wait()
	for rank, err := range errs {
		if err != nil {
			return errors.WithMessagef(err, "executing on rank %d", rank)
		}
	}
	return nil
}
