package dronesim

// mobility.go assigns the fixed positions every radio node holds for
// the whole run.  There is no movement model; placement happens once,
// before attachment and traffic setup.

import (
	"fmt"
	"math"
)

// Position is a 3-D coordinate, immutable once a node is placed
type Position struct {
	X float64
	Y float64
	Z float64
}

// Distance returns the Euclidean distance between two positions
func (pos Position) Distance(other Position) float64 {
	dx := pos.X - other.X
	dy := pos.Y - other.Y
	dz := pos.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// A PlacementSpec bounds the radial distance at which user devices are
// dropped.  Base stations always sit at the origin.
type PlacementSpec struct {
	MinDistance float64
	MaxDistance float64
}

// Validate rejects a spec whose range is empty or non-positive
func (spec PlacementSpec) Validate() error {
	if !(spec.MinDistance > 0.0) || !(spec.MaxDistance > 0.0) {
		return fmt.Errorf("placement distances must be positive, got [%v, %v)",
			spec.MinDistance, spec.MaxDistance)
	}
	if spec.MinDistance >= spec.MaxDistance {
		return fmt.Errorf("placement range is degenerate, minDistance %v is not less than maxDistance %v",
			spec.MinDistance, spec.MaxDistance)
	}
	return nil
}

// setPos fixes a node's position.  A second placement means the
// assembly sequence is broken, so it panics.
func (node *Node) setPos(pos Position) {
	if node.placed {
		panic(fmt.Sprintf("node %s placed twice", node.name))
	}
	node.pos = pos
	node.placed = true
}

// InstallMobility places every base station at the origin and every
// user device along one axis at a radial distance drawn uniformly from
// [MinDistance, MaxDistance).  One fresh draw is taken per device from
// the context's random stream.  The spec is validated before any node
// is touched.
func InstallMobility(ctx *SimulationContext, ns *NodeSet, spec PlacementSpec) error {
	err := spec.Validate()
	if err != nil {
		return err
	}

	for _, enb := range ns.BaseStations {
		enb.setPos(Position{X: 0.0, Y: 0.0, Z: 0.0})
	}

	span := spec.MaxDistance - spec.MinDistance
	for _, ue := range ns.UserDevices {
		u01 := ctx.Rng.RandU01()
		dist := roundFloat(spec.MinDistance+span*u01, rdigits)
		ue.setPos(Position{X: dist, Y: 0.0, Z: 0.0})
	}

	return nil
}
