// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simgo implements a simulated, in-process, backend for collectives.
//
// Every rank of a World lives in the same process: device and host memory are Go byte slices,
// events are resettable latches, copies are plain memory copies, and the point-to-point layer
// (AllToAll, handle exchange, pool barriers) is a rendezvous among the goroutines executing
// each rank's schedule.
//
// It is slow and it does no real I/O, but it executes schedules faithfully, which makes it
// the backend of choice for tests and for the collectives CLI.
package simgo

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gomlx/collectives/backends"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// BackendName to be used in COLLECTIVES_BACKEND to specify this backend.
const BackendName = "sim"

// Registers New() as the constructor for the "sim" backend.
func init() {
	backends.Register(BackendName, func(config string) (backends.Backend, error) {
		return New(config)
	})
}

// Backend implements the backends.Backend interface.
type Backend struct {
	transport string
	hmem      bool
	p2p       bool
	failAlloc bool

	mu         sync.Mutex
	rendezvous map[string]*rendezvous
	sequences  map[string]int
	finalized  bool

	liveAllocations atomic.Int64
	copies          atomic.Int64
	copiedBytes     atomic.Int64
	handleExchanges atomic.Int64
	poolBarriers    atomic.Int64
}

// Compile-time check that simgo.Backend implements backends.Backend.
var _ backends.Backend = &Backend{}

// New constructs a new simulated Backend.
//
// The config string is a comma-separated list of options:
//
//   - "transport=shm" or "transport=ofi" (default): shm is an in-process transport, ofi a network one.
//   - "hmem": the transport can address device memory directly.
//   - "p2p" (default) or "no_p2p": whether devices in a node can access each other's memory.
//   - "fail_alloc": every allocation fails, used to test resource exhaustion.
func New(config string) (*Backend, error) {
	b := &Backend{
		transport:  "ofi",
		p2p:        true,
		rendezvous: make(map[string]*rendezvous),
		sequences:  make(map[string]int),
	}
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		switch key {
		case "transport":
			if value != "shm" && value != "ofi" {
				return nil, errors.Errorf("unknown transport %q for simulated (%s) backend, valid values are shm or ofi",
					value, BackendName)
			}
			b.transport = value
		case "hmem":
			b.hmem = true
		case "p2p":
			b.p2p = true
		case "no_p2p":
			b.p2p = false
		case "fail_alloc":
			b.failAlloc = true
		default:
			return nil, errors.Errorf("unknown configuration option %q for simulated (%s) backend", part, BackendName)
		}
	}
	return b, nil
}

// Name returns the short name of the backend.
func (b *Backend) Name() string {
	return BackendName
}

// String implements fmt.Stringer.
func (b *Backend) String() string {
	return fmt.Sprintf("%s(transport=%s, hmem=%v, p2p=%v)", BackendName, b.transport, b.hmem, b.p2p)
}

// Description is a longer description of the Backend that can be used to pretty-print.
func (b *Backend) Description() string {
	return "Simulated in-process collectives backend"
}

// TransportName implements backends.Transport.
func (b *Backend) TransportName() string { return b.transport }

// Kind implements backends.Transport.
func (b *Backend) Kind() backends.TransportKind {
	if b.transport == "shm" {
		return backends.TransportInProcess
	}
	return backends.TransportNetwork
}

// SupportsHMEM implements backends.Transport.
func (b *Backend) SupportsHMEM() bool { return b.hmem }

// PeerToPeer implements backends.Runtime.
func (b *Backend) PeerToPeer() bool { return b.p2p }

// Finalize releases all the associated resources immediately, and makes the backend invalid.
func (b *Backend) Finalize() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalized = true
	for key, r := range b.rendezvous {
		r.abort(errors.New("backend finalized"))
		delete(b.rendezvous, key)
	}
}

// LiveAllocations returns the number of memory regions allocated and not yet freed.
func (b *Backend) LiveAllocations() int { return int(b.liveAllocations.Load()) }

// Copies returns the number of copies executed so far, by all ranks.
func (b *Backend) Copies() int { return int(b.copies.Load()) }

// CopiedBytes returns the total number of bytes copied so far, by all ranks.
func (b *Backend) CopiedBytes() int64 { return b.copiedBytes.Load() }

// HandleExchanges returns the number of handle exchanges executed so far, counted per rank.
func (b *Backend) HandleExchanges() int { return int(b.handleExchanges.Load()) }

// PoolBarriers returns the number of event pool barriers executed so far, counted per rank.
func (b *Backend) PoolBarriers() int { return int(b.poolBarriers.Load()) }

// newID returns a fresh unique id for memory regions and worlds.
func newID() string {
	return uuid.NewString()
}
