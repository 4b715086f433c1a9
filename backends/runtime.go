package backends

import "context"

// Communicator is a group of ranks participating in collectives.
type Communicator interface {
	// Rank of the caller within the communicator.
	Rank() int

	// Size is the number of ranks in the communicator.
	Size() int

	// ID identifies the communicator: all ranks of the same communicator return the same ID.
	ID() string
}

// Exchanger is the point-to-point layer of a communicator, as used by the algorithm library.
type Exchanger interface {
	Communicator

	// AllToAll sends parts[i] to rank i, and returns the part each rank sent to the caller,
	// indexed by the sender's rank. It blocks until every rank of the communicator joined.
	//
	// A nil parts sends nothing (it's a barrier for the caller). Parts are copied: callers may
	// modify them once AllToAll returns.
	AllToAll(ctx context.Context, parts [][]byte) ([][]byte, error)
}

// Event is an asynchronous completion signal from device or host work.
type Event interface {
	// Signal the event, releasing waiters.
	Signal()

	// Wait blocks until the event is signaled or ctx is done.
	Wait(ctx context.Context) error

	// IsSignaled returns whether the event has been signaled.
	IsSignaled() bool

	// Reset the event to the non-signaled state, so it can be reused in the next execution.
	Reset()
}

// EventPool is a pool of events shared among the ranks of a communicator through IPC handles.
type EventPool interface {
	// Size is the number of events in the pool.
	Size() int
}

// Runtime is the device runtime interface: memory, events, copies, and IPC primitives.
type Runtime interface {
	// Alloc a memory region of the given size.
	Alloc(size int, place Place) (Memory, error)

	// Free memory allocated with Alloc.
	Free(mem Memory)

	// NewEvent creates an event, not signaled.
	NewEvent() Event

	// Copy numBytes from src to dst.
	Copy(ctx context.Context, src, dst Buffer, numBytes int, attr CopyAttr) error

	// PeerToPeer returns whether devices within a node can access each other's memory.
	PeerToPeer() bool

	// ExchangeHandles exchanges IPC handles of mems among the ranks of comm. skipRank (if >= 0)
	// is a rank that doesn't take part in the exchange.
	ExchangeHandles(ctx context.Context, comm Communicator, mems []Memory, skipRank int) error

	// NewEventPool creates an IPC event pool shared by the ranks of comm.
	NewEventPool(comm Communicator, size int) (EventPool, error)

	// PoolBarrier is a barrier among the ranks of comm using the event at index idx of pool.
	PoolBarrier(ctx context.Context, comm Communicator, pool EventPool, idx int) error
}

// TransportKind is the kind of transport used between ranks.
type TransportKind int

//go:generate go tool enumer -type TransportKind -trimprefix=Transport -transform=kebab -output=gen_transportkind_enumer.go runtime.go

const (
	// TransportInProcess transports (shared memory, MPI within the process group) can
	// run direct algorithms appended straight into the schedule.
	TransportInProcess TransportKind = iota

	// TransportNetwork transports go through a network provider.
	TransportNetwork
)

// Transport is the network transport interface.
type Transport interface {
	// TransportName returns the name of the transport, e.g. "shm" or "ofi".
	TransportName() string

	// Kind of the transport.
	Kind() TransportKind

	// SupportsHMEM returns whether device memory is directly addressable by the transport
	// (no host staging required).
	SupportsHMEM() bool
}
