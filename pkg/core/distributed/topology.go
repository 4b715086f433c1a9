// Package distributed describes where the ranks of a communicator live: which node
// (host connected to the network) and which device inside that node.
package distributed

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/collectives/pkg/support/sets"
	"github.com/pkg/errors"
)

// Names of the Topology axes.
const (
	// NodeAxis spans the nodes connected by the network transport (scale-out).
	NodeAxis = "node"

	// DeviceAxis spans the devices within one node (scale-up).
	DeviceAxis = "device"
)

// Topology is the logical layout of the ranks of a communicator: a 2D mesh of
// NumNodes x DevicesPerNode, with ranks numbered node-major (ranks of node 0 first).
//
// It's a specialization of a device mesh with the fixed axes {NodeAxis, DeviceAxis}.
type Topology struct {
	axesNames  []string
	axesSizes  []int
	nameToAxis map[string]int
	numRanks   int
}

// NewTopology creates the layout for numNodes nodes with devicesPerNode devices each.
func NewTopology(numNodes, devicesPerNode int) (*Topology, error) {
	if numNodes <= 0 || devicesPerNode <= 0 {
		return nil, errors.Errorf("topology needs at least one node and one device per node, got %d nodes "+
			"and %d devices per node", numNodes, devicesPerNode)
	}
	return &Topology{
		axesNames:  []string{NodeAxis, DeviceAxis},
		axesSizes:  []int{numNodes, devicesPerNode},
		nameToAxis: map[string]int{NodeAxis: 0, DeviceAxis: 1},
		numRanks:   numNodes * devicesPerNode,
	}, nil
}

// NumRanks returns the total number of ranks (devices) in the topology.
func (t *Topology) NumRanks() int {
	return t.numRanks
}

// NumNodes returns the number of nodes.
func (t *Topology) NumNodes() int {
	return t.axesSizes[0]
}

// DevicesPerNode returns the number of devices (ranks) in each node.
func (t *Topology) DevicesPerNode() int {
	return t.axesSizes[1]
}

// NodeOf returns the node index of rank.
func (t *Topology) NodeOf(rank int) int {
	t.checkRank(rank)
	return rank / t.DevicesPerNode()
}

// LocalRank returns the index of rank within its node.
func (t *Topology) LocalRank(rank int) int {
	t.checkRank(rank)
	return rank % t.DevicesPerNode()
}

// Rank returns the global rank of the given local device in the given node.
func (t *Topology) Rank(node, localRank int) int {
	if node < 0 || node >= t.NumNodes() || localRank < 0 || localRank >= t.DevicesPerNode() {
		panic(errors.Errorf("topology %s has no device %d in node %d", t, localRank, node))
	}
	return node*t.DevicesPerNode() + localRank
}

func (t *Topology) checkRank(rank int) {
	if rank < 0 || rank >= t.numRanks {
		panic(errors.Errorf("rank %d out of range for topology %s", rank, t))
	}
}

// IsSingleNode returns whether all the given ranks live in the same node.
// With no ranks given, it checks the whole topology.
func (t *Topology) IsSingleNode(ranks ...int) bool {
	if len(ranks) == 0 {
		return t.NumNodes() == 1
	}
	nodes := sets.Make[int]()
	for _, rank := range ranks {
		nodes.Insert(t.NodeOf(rank))
	}
	return len(nodes) == 1
}

// String implements the fmt.Stringer interface.
func (t *Topology) String() string {
	var sb strings.Builder
	sb.WriteString("Topology(")
	for i, name := range t.axesNames {
		if i > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "%s: %d", name, t.axesSizes[i])
	}
	sb.WriteString(")")
	return sb.String()
}

// GroupOf returns the replica group (see ComputeReplicaGroups) along the given axis that
// contains rank.
//
// GroupOf(rank, DeviceAxis) returns the ranks sharing rank's node; GroupOf(rank, NodeAxis)
// returns the ranks with the same local device index on every node.
func (t *Topology) GroupOf(rank int, axis string) []int {
	t.checkRank(rank)
	groups, err := t.ComputeReplicaGroups([]string{axis})
	if err != nil {
		panic(errors.WithMessagef(err, "Topology.GroupOf(%d, %q)", rank, axis))
	}
	for _, group := range groups {
		if slices.Contains(group, rank) {
			return group
		}
	}
	panic(errors.Errorf("rank %d not found in any group along %q (!?)", rank, axis))
}

// ComputeReplicaGroups returns the groups of ranks participating in a collective performed
// along the given axes.
//
// Each replica group (a []int) includes the ranks for the axes specified.
// The other axes will be split into different replica groups.
//
// Example:
//
//	t, _ := NewTopology(2, 2)
//	t.ComputeReplicaGroups([]string{"node"})           // -> [][]int{{0, 2}, {1, 3}}
//	t.ComputeReplicaGroups([]string{"device"})         // -> [][]int{{0, 1}, {2, 3}}
//	t.ComputeReplicaGroups([]string{"node", "device"}) // -> [][]int{{0, 1, 2, 3}}
func (t *Topology) ComputeReplicaGroups(axes []string) ([][]int, error) {
	axisIndices := make([]int, 0, len(axes))
	axisSet := sets.Make[int](len(axes))
	for _, axis := range axes {
		idx, found := t.nameToAxis[axis]
		if !found {
			return nil, errors.Errorf("axis %q not found in topology", axis)
		}
		if axisSet.Has(idx) {
			return nil, errors.Errorf("axis %q is duplicated: each axis can only appear once", axis)
		}
		axisIndices = append(axisIndices, idx)
		axisSet.Insert(idx)
	}
	// Keep the mesh order of the axes, so positions within a group are rank-ordered.
	slices.Sort(axisIndices)

	nonAxisIndices := make([]int, 0, len(t.axesSizes)-len(axisIndices))
	for i := range t.axesSizes {
		if !axisSet.Has(i) {
			nonAxisIndices = append(nonAxisIndices, i)
		}
	}

	groupSize := 1
	for _, idx := range axisIndices {
		groupSize *= t.axesSizes[idx]
	}
	numGroups := t.numRanks / groupSize
	groups := make([][]int, numGroups)
	for i := range groups {
		groups[i] = make([]int, groupSize)
	}

	indices := make([]int, len(t.axesSizes))
	for flatIdx := 0; flatIdx < t.numRanks; flatIdx++ {
		// Convert flat index to per-axis indices
		remaining := flatIdx
		for i := len(t.axesSizes) - 1; i >= 0; i-- {
			indices[i] = remaining % t.axesSizes[i]
			remaining /= t.axesSizes[i]
		}

		// Group index from non-axis indices.
		groupIdx := 0
		multiplier := 1
		for i := len(nonAxisIndices) - 1; i >= 0; i-- {
			axisIdx := nonAxisIndices[i]
			groupIdx += indices[axisIdx] * multiplier
			multiplier *= t.axesSizes[axisIdx]
		}

		// Position within group from axis indices.
		posInGroup := 0
		multiplier = 1
		for i := len(axisIndices) - 1; i >= 0; i-- {
			axisIdx := axisIndices[i]
			posInGroup += indices[axisIdx] * multiplier
			multiplier *= t.axesSizes[axisIdx]
		}

		groups[groupIdx][posInGroup] = flatIdx
	}
	return groups, nil
}
