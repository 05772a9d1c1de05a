package dronesim

// link.go carries packets across the wired segment and through nodes.
// A packet leaving a node is routed onto an interface; wired egress
// costs serialization plus propagation delay, after which the packet
// enters the peer interface and is delivered or forwarded there.

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"net"
)

// A Packet is one UDP datagram crossing the scenario
type Packet struct {
	execID  int // unique per packet
	flowID  int // the flow the packet belongs to
	srcAddr net.IP
	dstAddr net.IP
	srcPort uint16
	dstPort uint16
	pcktLen int     // payload bytes
	created float64 // send time, in seconds
}

// createPacket is a constructor
func createPacket(ctx *SimulationContext, flowID int, srcAddr, dstAddr net.IP,
	srcPort, dstPort uint16, pcktLen int) *Packet {

	pckt := new(Packet)
	pckt.execID = ctx.nxtID()
	pckt.flowID = flowID
	pckt.srcAddr = srcAddr
	pckt.dstAddr = dstAddr
	pckt.srcPort = srcPort
	pckt.dstPort = dstPort
	pckt.pcktLen = pcktLen
	pckt.created = ctx.EvtMgr.CurrentSeconds()
	return pckt
}

// A WiredLinkFactory stamps out point-to-point links with a common
// rate, frame limit, and propagation delay, read once from the
// configuration store
type WiredLinkFactory struct {
	bandwidth float64 // bits per second
	delay     float64 // seconds
	mtu       int     // bytes
}

// CreateWiredLinkFactory is a constructor
func CreateWiredLinkFactory(ctx *SimulationContext) *WiredLinkFactory {
	wlf := new(WiredLinkFactory)
	wlf.bandwidth = ctx.Cfg.FloatValue("wired.bandwidth", 100e9)
	wlf.delay = ctx.Cfg.FloatValue("wired.delay", 0.010)
	wlf.mtu = ctx.Cfg.IntValue("wired.mtu", 1500)
	return wlf
}

// A WiredLink is a duplex cable between exactly two interfaces
type WiredLink struct {
	ctx       *SimulationContext
	number    int
	endpts    [2]*Intrfc
	bandwidth float64
	delay     float64
	mtu       int
}

// Install creates a wired interface on each of the two nodes and ties
// them together with a new link
func (wlf *WiredLinkFactory) Install(ctx *SimulationContext, devA, devB *Node) *WiredLink {
	link := new(WiredLink)
	link.ctx = ctx
	link.number = ctx.nxtID()
	link.bandwidth = wlf.bandwidth
	link.delay = wlf.delay
	link.mtu = wlf.mtu

	intrfcA := createIntrfc(ctx, devA, wiredMedia)
	intrfcB := createIntrfc(ctx, devB, wiredMedia)
	intrfcA.link = link
	intrfcB.link = link
	link.endpts[0] = intrfcA
	link.endpts[1] = intrfcB
	return link
}

// peer returns the interface on the far end of the link
func (link *WiredLink) peer(intrfc *Intrfc) *Intrfc {
	if link.endpts[0] == intrfc {
		return link.endpts[1]
	}
	return link.endpts[0]
}

// sendPacket moves a packet out of a node.  A destination the node
// itself owns is delivered straight to the bound server; anything else
// is routed onto an egress interface.  Packets with no route are
// counted against the node and dropped.
func sendPacket(evtMgr *evtm.EventManager, node *Node, pckt *Packet) {
	if node.addrOwned(pckt.dstAddr) {
		deliverPacket(evtMgr, node, pckt)
		return
	}

	route, err := node.rtTable.Lookup(pckt.dstAddr)
	if err != nil {
		node.drops += 1
		AddPacketTrace(node.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, node.id, "drop", "")
		return
	}

	switch route.egress.media {
	case wiredMedia:
		wiredTx(evtMgr, route.egress, pckt)
	case radioMedia:
		radioTx(evtMgr, route.egress, pckt)
	}
}

// deliverPacket hands a packet that has reached its destination node to
// the server bound on the destination port, dropping it when no
// listener is present
func deliverPacket(evtMgr *evtm.EventManager, node *Node, pckt *Packet) {
	srv, present := node.servers[pckt.dstPort]
	if !present {
		node.drops += 1
		AddPacketTrace(node.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, node.id, "drop", "")
		return
	}
	AddPacketTrace(node.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, node.id, "deliver", "")
	srv.receive(evtMgr, pckt)
}

// wiredTx pushes a packet onto a wired link.  The packet appears at the
// far interface after serialization at the link rate plus the link's
// propagation delay.  Frames above the link MTU are dropped.
func wiredTx(evtMgr *evtm.EventManager, egress *Intrfc, pckt *Packet) {
	link := egress.link

	if pckt.pcktLen > link.mtu {
		egress.device.drops += 1
		AddPacketTrace(egress.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, egress.number, "drop", "wired")
		return
	}

	AddPacketTrace(egress.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, egress.number, "enterLink", "wired")
	if egress.tap != nil {
		egress.tap.record(evtMgr.CurrentSeconds(), pckt)
	}

	transit := roundFloat(float64(8*pckt.pcktLen)/link.bandwidth+link.delay, rdigits)
	evtMgr.Schedule(link.peer(egress), pckt, enterWiredIntrfc, vrtime.SecondsToTime(transit))
}

// enterWiredIntrfc is the event handler for a packet arriving at the
// receiving end of a wired link
func enterWiredIntrfc(evtMgr *evtm.EventManager, context any, data any) any {
	intrfc := context.(*Intrfc)
	pckt := data.(*Packet)

	AddPacketTrace(intrfc.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, intrfc.number, "exitLink", "wired")
	if intrfc.tap != nil {
		intrfc.tap.record(evtMgr.CurrentSeconds(), pckt)
	}

	// deliver here, or forward toward the destination
	sendPacket(evtMgr, intrfc.device, pckt)
	return nil
}
