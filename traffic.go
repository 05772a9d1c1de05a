package dronesim

// traffic.go plans the traffic of a scenario.  Each user device carries a
// downlink flow from the remote host, an uplink flow back to it, and a third
// port that is bound but left unfed, reserved for traffic sources added
// later.

import (
	"fmt"
	"net"
)

// FlowDir distinguishes the two flow patterns of a scenario
type FlowDir int

const (
	FlowDownlink FlowDir = iota
	FlowUplink
)

var fdToStr map[FlowDir]string = map[FlowDir]string{
	FlowDownlink: "downlink", FlowUplink: "uplink"}

func (fd FlowDir) String() string {
	return fdToStr[fd]
}

// client source ports are drawn from the ephemeral range
const ephemeralPortBase uint16 = 49153

// A Flow pairs one traffic source with one sink and fixes the schedule
// of packets between them
type Flow struct {
	ID       int
	Name     string
	Dir      FlowDir
	Client   *Node
	Server   *Node
	SrcAddr  net.IP
	DstAddr  net.IP
	SrcPort  uint16
	DstPort  uint16
	Interval float64 // seconds between packets
	PcktLen  int     // payload bytes per packet
	MaxPckts int     // packet budget
}

// A ReservedServer is a sink bound to a port no planned flow feeds
type ReservedServer struct {
	Node *Node
	Port uint16
}

// A FlowPlan holds the planned flows and reserved sinks of a scenario,
// and the common time their endpoints come up
type FlowPlan struct {
	flows    []*Flow
	reserved []*ReservedServer
	startAt  float64
}

// Flows returns the planned flows in creation order
func (fp *FlowPlan) Flows() []*Flow {
	return fp.flows
}

// Reserved returns the sinks no planned flow feeds
func (fp *FlowPlan) Reserved() []*ReservedServer {
	return fp.reserved
}

// StartAt returns the time the traffic endpoints come up
func (fp *FlowPlan) StartAt() float64 {
	return fp.startAt
}

// BuildTrafficPlan lays out the flows of a scenario over an addressed node
// set.  Downlink sinks share one well-known port across devices; uplink and
// reserved ports are allocated per device, counting up from their bases.
func BuildTrafficPlan(ctx *SimulationContext, ns *NodeSet, adp *AddressPlan,
	prms *ScenarioParams) (*FlowPlan, error) {

	dlPort := uint16(ctx.Cfg.IntValue("traffic.dlPort", 1234))
	ulPort := uint16(ctx.Cfg.IntValue("traffic.ulPortBase", 2000))
	otherPort := uint16(ctx.Cfg.IntValue("traffic.otherPortBase", 3000))
	pcktLen := ctx.Cfg.IntValue("app.pcktLen", 1024)
	maxPckts := ctx.Cfg.IntValue("app.maxPckts", 1000000)
	interval := prms.IntervalSeconds()

	fp := new(FlowPlan)
	fp.flows = []*Flow{}
	fp.reserved = []*ReservedServer{}
	fp.startAt = ctx.Cfg.FloatValue("app.startOffset", 0.1)

	// ports already claimed on each node, to catch allocation collisions
	bound := make(map[int]map[uint16]bool)
	claim := func(node *Node, port uint16) error {
		_, present := bound[node.id]
		if !present {
			bound[node.id] = make(map[uint16]bool)
		}
		if bound[node.id][port] {
			return fmt.Errorf("port %d allocated twice on %s", port, node.name)
		}
		bound[node.id][port] = true
		return nil
	}

	addFlow := func(dir FlowDir, client, server *Node, srcAddr, dstAddr net.IP, dstPort uint16) error {
		err := claim(server, dstPort)
		if err != nil {
			return err
		}
		flow := &Flow{
			ID:       ctx.nxtID(),
			Name:     fmt.Sprintf("%s@%s", dir, server.name),
			Dir:      dir,
			Client:   client,
			Server:   server,
			SrcAddr:  srcAddr,
			DstAddr:  dstAddr,
			SrcPort:  ephemeralPortBase + uint16(len(fp.flows)),
			DstPort:  dstPort,
			Interval: interval,
			PcktLen:  pcktLen,
			MaxPckts: maxPckts,
		}
		ctx.TraceMgr.AddName(flow.ID, flow.Name, "flow")
		fp.flows = append(fp.flows, flow)
		return nil
	}

	hostAddr := adp.HostAddr()
	for _, ue := range ns.UserDevices {
		ulPort += 1
		otherPort += 1

		ueAddr, err := adp.UeAddr(ue)
		if err != nil {
			return nil, err
		}

		err = addFlow(FlowDownlink, ns.RemoteHost, ue, hostAddr, ueAddr, dlPort)
		if err != nil {
			return nil, err
		}
		err = addFlow(FlowUplink, ue, ns.RemoteHost, ueAddr, hostAddr, ulPort)
		if err != nil {
			return nil, err
		}

		// the third port is bound on the device but nothing feeds it
		err = claim(ue, otherPort)
		if err != nil {
			return nil, err
		}
		fp.reserved = append(fp.reserved, &ReservedServer{Node: ue, Port: otherPort})
	}
	return fp, nil
}
