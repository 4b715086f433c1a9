package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/collectives/pkg/core/sched"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newPlanCmd(f *flags) *cobra.Command {
	var rank int
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Prints the schedule built for a collective operation on one rank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.newSession()
			if err != nil {
				return err
			}
			defer s.close()
			if rank < 0 || rank >= len(s.comms) {
				return errors.Errorf("--rank=%d out of range for %s", rank, s.topology)
			}
			c := s.comms[rank]
			schedule, events, err := c.Build(s.work.ctype, s.work.ops[rank])
			if err != nil {
				return err
			}
			if !schedule.IsCached() {
				defer schedule.Release()
			}

			summary := newTable(nil, lipgloss.Right, lipgloss.Left)
			summary.row(false, "operation", s.work.ctype.String())
			summary.row(false, "rank", fmt.Sprintf("%d of %s", rank, s.topology))
			summary.row(false, "backend", s.backend.Description())
			summary.row(false, "hmem", fmt.Sprint(s.cfg.UseHMEM && s.backend.SupportsHMEM()))
			summary.row(false, "scale-out workers", humanize.Comma(int64(s.cfg.ScaleOutWorkers)))
			summary.row(false, "schedule", schedule.String())
			summary.row(false, "staging memory", humanize.IBytes(uint64(schedule.Memory().AllocatedBytes())))
			summary.row(false, "returned events", humanize.Comma(int64(len(events))))
			printTable("Summary", summary)

			entries := newTable([]string{"#", "Stage", "Kind", "Name", "Mode", "Details"},
				lipgloss.Right, lipgloss.Right, lipgloss.Left)
			addEntries(entries, schedule, "")
			printTable("Entries", entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&rank, "rank", 0, "Rank whose schedule is printed.")
	return cmd
}

// addEntries appends a row per entry of s, followed by the entries of its nested schedules,
// indented with prefix.
func addEntries(t *table, s *sched.Schedule, prefix string) {
	for _, e := range s.Entries() {
		isNoOp := e.Kind() == sched.KindCopy && e.Copy().IsNoOp()
		t.row(isNoOp, prefix+fmt.Sprint(e.Index()), fmt.Sprint(s.StageOf(e)), e.Kind().String(), e.Name(),
			e.ExecMode().String(), e.Describe())
		var nested *sched.Schedule
		switch e.Kind() {
		case sched.KindCollective:
			nested = e.Collective().Inner
		case sched.KindSubSchedule:
			nested = e.SubSchedule()
		}
		if nested != nil {
			addEntries(t, nested, prefix+strings.Repeat(" ", 2)+fmt.Sprint(e.Index())+".")
		}
	}
}
