package dronesim

// ip.go holds the per-node IP stack: static routes installed during
// addressing, and the lookup used when a packet leaves or crosses a node

import (
	"fmt"
	"net"
)

// A StaticRoute directs traffic for one prefix out of one interface.
// The next hop address matters only to the trace and capture records;
// forwarding is decided by the egress interface alone.
type StaticRoute struct {
	prefix  *net.IPNet
	egress  *Intrfc
	nextHop net.IP
	dflt    bool
}

// A RouteTable is a node's static routing state.  Lookup is first
// matching prefix, then the default route, then failure.
type RouteTable struct {
	node      *Node
	routes    []*StaticRoute
	dfltRoute *StaticRoute
}

// InstallIPStack equips a node with an empty routing table
func InstallIPStack(ctx *SimulationContext, node *Node) *RouteTable {
	rt := new(RouteTable)
	rt.node = node
	rt.routes = make([]*StaticRoute, 0)
	node.rtTable = rt
	return rt
}

// StaticRouting is the per-node accessor used by the addressing stage
func (node *Node) StaticRouting() *RouteTable {
	return node.rtTable
}

// AddRoute installs a prefix route out of the named interface
func (rt *RouteTable) AddRoute(prefix *net.IPNet, egress *Intrfc, nextHop net.IP) {
	rt.routes = append(rt.routes, &StaticRoute{prefix: prefix, egress: egress, nextHop: nextHop})
}

// SetDefaultRoute installs the route used when no prefix matches
func (rt *RouteTable) SetDefaultRoute(egress *Intrfc, nextHop net.IP) {
	rt.dfltRoute = &StaticRoute{egress: egress, nextHop: nextHop, dflt: true}
}

// Routes lists the installed prefix routes
func (rt *RouteTable) Routes() []*StaticRoute {
	return rt.routes
}

// DefaultRoute returns the default route, or nil when none is set
func (rt *RouteTable) DefaultRoute() *StaticRoute {
	return rt.dfltRoute
}

// Lookup selects the route for the offered destination
func (rt *RouteTable) Lookup(dst net.IP) (*StaticRoute, error) {
	for _, route := range rt.routes {
		if route.prefix.Contains(dst) {
			return route, nil
		}
	}
	if rt.dfltRoute != nil {
		return rt.dfltRoute, nil
	}
	return nil, fmt.Errorf("no route from %s to %s", rt.node.name, dst.String())
}
