// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// collectives plans and runs collective operations on a simulated world of ranks.
//
// Examples:
//
//	# Print the schedule of rank 1 of an allreduce over 2 nodes with 2 devices each.
//	collectives plan --op=allreduce --nodes=2 --devices=2 --rank=1
//
//	# Run an alltoallv 100 times, with HMEM enabled, and check the results.
//	collectives run --op=alltoallv --counts=1,3 --backend=sim:transport=ofi,hmem --config=hmem --iterations=100
package main

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/collectives/backends"
	"github.com/gomlx/collectives/backends/simgo"
	"github.com/gomlx/collectives/pkg/collectives"
	"github.com/gomlx/collectives/pkg/core/coll"
	"github.com/gomlx/collectives/pkg/core/config"
	"github.com/gomlx/collectives/pkg/core/distributed"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

// flags shared by all sub-commands.
type flags struct {
	backend   string
	config    string
	nodes     int
	devices   int
	op        string
	algorithm string
	count     int
	counts    string
	root      int
	cache     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		klog.Errorf("%+v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:          "collectives",
		Short:        "Plans and runs collective operations on a simulated world of ranks",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.backend, "backend", simgo.BackendName+":transport=ofi", "Backend configuration, "+
		"formatted as \"<backend_name>:<backend_configuration>\". Only the simulated backend can run a world of "+
		"ranks in one process, its options are transport=shm|ofi, hmem, no_p2p and fail_alloc. "+
		"If empty, $"+backends.ConfigEnvVar+" is used.")
	pf.StringVar(&f.config, "config", "", "Schedule configuration: either an option string "+
		"(e.g. \"hmem,workers=2,allreduce=ring\") or the path to a YAML file. "+
		"Defaults to the value of $"+config.EnvVar+".")
	pf.IntVar(&f.nodes, "nodes", 2, "Number of nodes.")
	pf.IntVar(&f.devices, "devices", 2, "Number of devices (ranks) per node.")
	pf.StringVar(&f.op, "op", "allreduce", "Collective operation, one of "+
		strings.Join(coll.CollectiveTypeStrings()[1:], ", ")+".")
	pf.StringVar(&f.algorithm, "algo", "", "Algorithm hint for the operation: naive, direct, ring or topo.")
	pf.IntVar(&f.count, "count", 16, "Number of elements (per rank or per peer, depending on the operation).")
	pf.StringVar(&f.counts, "counts", "", "Comma-separated per-rank counts of allgatherv, or per-peer counts "+
		"of alltoallv. Defaults to --count.")
	pf.IntVar(&f.root, "root", 0, "Root rank of rooted operations.")
	pf.BoolVar(&f.cache, "cache", false, "Build cacheable schedules.")
	addKlogFlags(pf)

	root.AddCommand(newPlanCmd(f), newRunCmd(f))
	return root
}

// addKlogFlags registers klog's flags (-v, -logtostderr, ...) with the command line flags.
func addKlogFlags(pf *pflag.FlagSet) {
	goFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(goFlags)
	pf.AddGoFlagSet(goFlags)
}

// loadConfig returns the schedule configuration given by --config.
func (f *flags) loadConfig() (config.Config, error) {
	switch {
	case f.config == "":
		return config.FromEnv()
	case strings.HasSuffix(f.config, ".yaml") || strings.HasSuffix(f.config, ".yml"):
		return config.Load(f.config)
	default:
		return config.Parse(f.config)
	}
}

func (f *flags) collectiveType() (coll.CollectiveType, error) {
	ctype, err := coll.CollectiveTypeString(strings.ReplaceAll(strings.ToLower(f.op), "_", ""))
	if err != nil || ctype == coll.CollInvalid {
		return coll.CollInvalid, errors.Errorf("unknown collective operation %q, valid values are %s", f.op,
			strings.Join(coll.CollectiveTypeStrings()[1:], ", "))
	}
	return ctype, nil
}

func (f *flags) parseCounts() ([]int, error) {
	if f.counts == "" {
		return nil, nil
	}
	parts := strings.Split(f.counts, ",")
	counts := make([]int, len(parts))
	for i, part := range parts {
		c, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || c < 0 {
			return nil, errors.Errorf("invalid count %q in --counts=%q", part, f.counts)
		}
		counts[i] = c
	}
	return counts, nil
}

// session is a simulated world, with the Communicator of each of its ranks, and the workload
// selected by the flags.
type session struct {
	backend  *simgo.Backend
	cfg      config.Config
	topology *distributed.Topology
	comms    []*collectives.Communicator
	work     *workload
}

func (f *flags) newSession() (*session, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}
	ctype, err := f.collectiveType()
	if err != nil {
		return nil, err
	}
	counts, err := f.parseCounts()
	if err != nil {
		return nil, err
	}
	backend, err := newSimBackend(f.backend)
	if err != nil {
		return nil, err
	}
	topology, err := distributed.NewTopology(f.nodes, f.devices)
	if err != nil {
		backend.Finalize()
		return nil, err
	}
	if ctype.IsRooted() && (f.root < 0 || f.root >= topology.NumRanks()) {
		backend.Finalize()
		return nil, errors.Errorf("--root=%d out of range for %s", f.root, topology)
	}

	s := &session{backend: backend, cfg: cfg, topology: topology}
	world := backend.NewWorld(topology)
	for rank := range topology.NumRanks() {
		comm := world.Comm(rank)
		c, err := collectives.New(backend, cfg, topology, comm,
			func(group []int) backends.Communicator { return comm.Sub(group) })
		if err != nil {
			s.close()
			return nil, err
		}
		s.comms = append(s.comms, c)
	}

	var attr coll.Attr
	if f.cache {
		attr = coll.Attr{ToCache: true, CacheKey: ctype.String() + "-" + uuid.NewString()}
	}
	var hints coll.Hints
	if f.algorithm != "" {
		hints = coll.Hints{ctype: f.algorithm}
	}
	s.work = newWorkload(ctype, topology, f.count, counts, f.root, attr, hints)
	return s, nil
}

// newSimBackend creates the backend given by backendConfig, which must be the simulated one.
func newSimBackend(backendConfig string) (*simgo.Backend, error) {
	var b backends.Backend
	var err error
	if backendConfig == "" {
		b, err = backends.New()
	} else {
		b, err = backends.NewWithConfig(backendConfig)
	}
	if err != nil {
		return nil, err
	}
	sim, ok := b.(*simgo.Backend)
	if !ok {
		b.Finalize()
		return nil, errors.Errorf("backend %q can't simulate a world of ranks, use the %q backend", b.Name(),
			simgo.BackendName)
	}
	return sim, nil
}

func (s *session) close() {
	for _, c := range s.comms {
		c.Close()
	}
	s.backend.Finalize()
}
