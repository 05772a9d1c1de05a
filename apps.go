package dronesim

// apps.go holds the traffic endpoints that run on scenario nodes once the
// simulation starts.  A UdpServer counts what arrives on a bound port, a
// UdpClient emits fixed-size packets on a fixed interval until its packet
// budget is spent.

import (
	"fmt"
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"net"
)

// A UdpServer consumes packets addressed to one port on one node
type UdpServer struct {
	ctx      *SimulationContext
	node     *Node
	port     uint16
	started  bool
	received int
	bytes    int
	delaySum float64 // accumulated source-to-sink latency
	lastRx   float64 // time of the most recent arrival
}

// CreateUdpServer is a constructor.  Binding a port twice on the same
// node is an error.
func CreateUdpServer(ctx *SimulationContext, node *Node, port uint16) (*UdpServer, error) {
	_, present := node.servers[port]
	if present {
		return nil, fmt.Errorf("port %d already bound on %s", port, node.name)
	}
	us := new(UdpServer)
	us.ctx = ctx
	us.node = node
	us.port = port
	node.servers[port] = us
	return us, nil
}

// startUdpServer is the event handler that opens a server for business
func startUdpServer(evtMgr *evtm.EventManager, context any, data any) any {
	us := context.(*UdpServer)
	us.started = true
	return nil
}

// receive accounts for one packet reaching the server.  Arrivals before
// the server has started are dropped.
func (us *UdpServer) receive(evtMgr *evtm.EventManager, pckt *Packet) {
	if !us.started {
		us.node.drops += 1
		return
	}
	us.received += 1
	us.bytes += pckt.pcktLen
	us.delaySum += evtMgr.CurrentSeconds() - pckt.created
	us.lastRx = evtMgr.CurrentSeconds()
}

// Received returns the number of packets the server has consumed
func (us *UdpServer) Received() int {
	return us.received
}

// Bytes returns the payload bytes the server has consumed
func (us *UdpServer) Bytes() int {
	return us.bytes
}

// MeanDelay returns the mean source-to-sink latency of consumed packets
func (us *UdpServer) MeanDelay() float64 {
	if us.received == 0 {
		return 0.0
	}
	return us.delaySum / float64(us.received)
}

// LastRx returns the arrival time of the most recent packet
func (us *UdpServer) LastRx() float64 {
	return us.lastRx
}

// A UdpClient emits the packets of one flow
type UdpClient struct {
	ctx      *SimulationContext
	node     *Node
	flowID   int
	srcAddr  net.IP
	dstAddr  net.IP
	srcPort  uint16
	dstPort  uint16
	interval float64
	pcktLen  int
	maxPckts int
	sent     int
}

// CreateUdpClient is a constructor, drawing the transmission schedule
// from a planned flow
func CreateUdpClient(ctx *SimulationContext, flow *Flow) *UdpClient {
	uc := new(UdpClient)
	uc.ctx = ctx
	uc.node = flow.Client
	uc.flowID = flow.ID
	uc.srcAddr = flow.SrcAddr
	uc.dstAddr = flow.DstAddr
	uc.srcPort = flow.SrcPort
	uc.dstPort = flow.DstPort
	uc.interval = flow.Interval
	uc.pcktLen = flow.PcktLen
	uc.maxPckts = flow.MaxPckts
	return uc
}

// Sent returns the number of packets the client has emitted
func (uc *UdpClient) Sent() int {
	return uc.sent
}

// startUdpClient is the event handler that begins a client's schedule.
// The first packet leaves at start time.
func startUdpClient(evtMgr *evtm.EventManager, context any, data any) any {
	return udpClientSend(evtMgr, context, data)
}

// udpClientSend is the event handler for one packet emission.  It
// reschedules itself one interval ahead until the packet budget is spent.
func udpClientSend(evtMgr *evtm.EventManager, context any, data any) any {
	uc := context.(*UdpClient)
	if uc.sent >= uc.maxPckts {
		return nil
	}

	pckt := createPacket(uc.ctx, uc.flowID, uc.srcAddr, uc.dstAddr, uc.srcPort, uc.dstPort, uc.pcktLen)
	uc.sent += 1
	AddPacketTrace(uc.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, uc.node.id, "send", "")
	sendPacket(evtMgr, uc.node, pckt)

	if uc.sent < uc.maxPckts {
		evtMgr.Schedule(uc, nil, udpClientSend, vrtime.SecondsToTime(uc.interval))
	}
	return nil
}
