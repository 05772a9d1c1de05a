package dronesim

// topo.go holds the runtime representation of scenario nodes and their
// network interfaces, and the builder that creates the fixed-role topology

import (
	"fmt"
	"net"
)

// NodeRole tags each node with the part it plays in the scenario.
// The role is an explicit attribute, never inferred from creation order.
type NodeRole int

const (
	RoleGateway NodeRole = iota
	RoleRemoteHost
	RoleBaseStation
	RoleUserDevice
)

var nrToStr map[NodeRole]string = map[NodeRole]string{
	RoleGateway: "gateway", RoleRemoteHost: "remoteHost",
	RoleBaseStation: "baseStation", RoleUserDevice: "userDevice"}

func (nr NodeRole) String() string {
	return nrToStr[nr]
}

// networkMedia distinguishes the kind of fabric an interface uses
type networkMedia int

const (
	wiredMedia networkMedia = iota
	radioMedia
)

var nmToStr map[networkMedia]string = map[networkMedia]string{
	wiredMedia: "wired", radioMedia: "radio"}

func (nm networkMedia) String() string {
	return nmToStr[nm]
}

// A Node is one entity in the scenario.  It owns its interfaces, a
// static routing table, and the UDP servers bound to its ports.
type Node struct {
	ctx     *SimulationContext
	id      int
	name    string
	role    NodeRole
	pos     Position
	placed  bool
	intrfcs []*Intrfc
	rtTable *RouteTable
	servers map[uint16]*UdpServer
	drops   int // packets discarded for want of a route or a listener
}

// createNode is a constructor.  The node is registered with the trace
// manager's name dictionary under its role.
func createNode(ctx *SimulationContext, name string, role NodeRole) *Node {
	node := new(Node)
	node.ctx = ctx
	node.id = ctx.nxtID()
	node.name = name
	node.role = role
	node.intrfcs = make([]*Intrfc, 0)
	node.servers = make(map[uint16]*UdpServer)
	ctx.TraceMgr.AddName(node.id, name, role.String())
	return node
}

func (node *Node) ID() int        { return node.id }
func (node *Node) Name() string   { return node.name }
func (node *Node) Role() NodeRole { return node.role }
func (node *Node) Pos() Position  { return node.pos }

// addIntrfc includes a new interface in the node's list
func (node *Node) addIntrfc(intrfc *Intrfc) {
	node.intrfcs = append(node.intrfcs, intrfc)
}

// intrfcByMedia returns the node's first interface on the named kind
// of fabric, or nil if the node has none
func (node *Node) intrfcByMedia(media networkMedia) *Intrfc {
	for _, intrfc := range node.intrfcs {
		if intrfc.media == media {
			return intrfc
		}
	}
	return nil
}

// addrOwned reports whether the offered address is bound to one of the
// node's interfaces
func (node *Node) addrOwned(addr net.IP) bool {
	for _, intrfc := range node.intrfcs {
		if intrfc.addr != nil && intrfc.addr.Equal(addr) {
			return true
		}
	}
	return false
}

// An Intrfc is one network interface, bound to at most one address.
// A wired interface points at the link it terminates; a radio
// interface points at the radio stack serving it, and on a base
// station also at the cell built around it.
type Intrfc struct {
	ctx    *SimulationContext
	number int
	name   string
	device *Node
	media  networkMedia
	addr   net.IP
	link   *WiredLink
	stack  *RadioStack
	cell   *RadioCell
	tap    *pcapTap
}

// DefaultIntrfcName generates a unique string to use as a name for an interface.
// That name includes the name of the device hosting the interface and a counter
func DefaultIntrfcName(ctx *SimulationContext, device string) string {
	return fmt.Sprintf("intrfc@%s[.%d]", device, ctx.numIntrfcs)
}

// createIntrfc is a constructor, filling in everything except the
// fabric-specific pointers
func createIntrfc(ctx *SimulationContext, device *Node, media networkMedia) *Intrfc {
	intrfc := new(Intrfc)
	intrfc.ctx = ctx
	intrfc.number = ctx.nxtID()

	// counter used in the generation of default names
	ctx.numIntrfcs += 1
	intrfc.name = DefaultIntrfcName(ctx, device.name)

	intrfc.device = device
	intrfc.media = media
	device.addIntrfc(intrfc)
	ctx.TraceMgr.AddName(intrfc.number, intrfc.name, "interface")
	return intrfc
}

// A NodeSet is the product of topology construction: every node the
// scenario contains, with lookup maps and the backbone link
type NodeSet struct {
	Gateway      *Node
	RemoteHost   *Node
	BaseStations []*Node
	UserDevices  []*Node
	Link         *WiredLink

	byID   map[int]*Node
	byName map[string]*Node
}

// addNode puts a new entry in the byID and byName lookup maps.
// Duplication means the id counters are broken, so it panics.
func (ns *NodeSet) addNode(node *Node) {
	_, present1 := ns.byID[node.id]
	if present1 {
		msg := fmt.Sprintf("index %d over-used in NodeSet\n", node.id)
		panic(msg)
	}
	_, present2 := ns.byName[node.name]
	if present2 {
		msg := fmt.Sprintf("name %s over-used in NodeSet\n", node.name)
		panic(msg)
	}
	ns.byID[node.id] = node
	ns.byName[node.name] = node
}

// NodeByName looks a node up by its unique name
func (ns *NodeSet) NodeByName(name string) (*Node, bool) {
	node, present := ns.byName[name]
	return node, present
}

// NodeByID looks a node up by its integer identifier
func (ns *NodeSet) NodeByID(id int) (*Node, bool) {
	node, present := ns.byID[id]
	return node, present
}

// AllNodes lists every node in the set, fixed roles first
func (ns *NodeSet) AllNodes() []*Node {
	all := []*Node{ns.Gateway, ns.RemoteHost}
	all = append(all, ns.BaseStations...)
	all = append(all, ns.UserDevices...)
	return all
}

// BuildTopology creates the fixed-role nodes of the scenario and the
// wired link joining the gateway to the remote host.  The counts must
// both be at least one; failing that, nothing is created.
func BuildTopology(ctx *SimulationContext, prms ScenarioParams) (*NodeSet, error) {
	if prms.NumEnb < 1 || prms.NumUe < 1 {
		return nil, fmt.Errorf("topology needs at least one base station and one user device, got %d and %d",
			prms.NumEnb, prms.NumUe)
	}

	ns := new(NodeSet)
	ns.byID = make(map[int]*Node)
	ns.byName = make(map[string]*Node)

	ns.Gateway = createNode(ctx, "pgw", RoleGateway)
	ns.addNode(ns.Gateway)

	ns.RemoteHost = createNode(ctx, "remoteHost", RoleRemoteHost)
	ns.addNode(ns.RemoteHost)

	ns.BaseStations = make([]*Node, 0, prms.NumEnb)
	for idx := 0; idx < int(prms.NumEnb); idx++ {
		enb := createNode(ctx, fmt.Sprintf("enb.[%d]", idx), RoleBaseStation)
		ns.addNode(enb)
		ns.BaseStations = append(ns.BaseStations, enb)
	}

	ns.UserDevices = make([]*Node, 0, prms.NumUe)
	for idx := 0; idx < int(prms.NumUe); idx++ {
		ue := createNode(ctx, fmt.Sprintf("ue.[%d]", idx), RoleUserDevice)
		ns.addNode(ue)
		ns.UserDevices = append(ns.UserDevices, ue)
	}

	// every node gets an IP stack before any interface carries traffic
	for _, node := range ns.AllNodes() {
		InstallIPStack(ctx, node)
	}

	// the backbone link between the gateway and the remote host
	wlf := CreateWiredLinkFactory(ctx)
	ns.Link = wlf.Install(ctx, ns.Gateway, ns.RemoteHost)

	return ns, nil
}
