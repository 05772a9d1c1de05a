package dronesim

// radio.go models the cellular segment.  A RadioStack owns the tunnel
// interface on the gateway, one RadioCell per base station, and the
// radio interfaces of the user devices.  Packets between a user device
// and the gateway claim air time on the serving cell's transmit
// scheduler, then cross the air with a fixed propagation latency.

import (
	"fmt"
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"net"
)

// A RadioStack gathers the radio-layer state shared by every cell
type RadioStack struct {
	ctx           *SimulationContext
	harq          bool    // retransmission combining on the air interface
	schedHarq     bool    // scheduler awareness of retransmissions
	rlcAm         bool    // acknowledged link-layer mode
	amStatusTimer float64 // seconds between AM status reports
	umStatusTimer float64 // seconds between low-latency UM status reports
	schedName     string  // which grant scheduler the cells run
	bandwidth     float64 // air-interface rate, bits per second
	latency       float64 // one-way air propagation latency, seconds
	grants        int     // simultaneous transmission grants per cell
	timeslice     float64 // scheduling quantum, seconds
	tracing       bool    // radio-layer trace records on or off

	gwIntrfc *Intrfc     // tunnel endpoint on the gateway
	cells    []*RadioCell
	ueRadios []*Intrfc
	attached map[int]*RadioCell // serving cell, by device id
}

// CreateRadioStack is a constructor.  The gateway receives the tunnel
// interface through which all downlink traffic enters the radio segment.
func CreateRadioStack(ctx *SimulationContext, gateway *Node) *RadioStack {
	rs := new(RadioStack)
	rs.ctx = ctx
	rs.harq = ctx.Cfg.BoolValue("radio.harqEnabled", true)
	rs.schedHarq = ctx.Cfg.BoolValue("radio.sched.harqEnabled", true)
	rs.rlcAm = ctx.Cfg.BoolValue("radio.rlcAmEnabled", false)
	rs.amStatusTimer = ctx.Cfg.FloatValue("rlc.am.statusTimer", 100e-6)
	rs.umStatusTimer = ctx.Cfg.FloatValue("rlc.umLowLat.statusTimer", 100e-6)
	rs.schedName = ctx.Cfg.StringValue("radio.scheduler", "flexTti")
	rs.bandwidth = ctx.Cfg.FloatValue("radio.bandwidth", 1e9)
	rs.latency = ctx.Cfg.FloatValue("radio.latency", 1e-3)
	rs.grants = ctx.Cfg.IntValue("radio.grants", 8)
	rs.timeslice = ctx.Cfg.FloatValue("radio.timeslice", 100e-6)

	rs.gwIntrfc = createIntrfc(ctx, gateway, radioMedia)
	rs.gwIntrfc.stack = rs
	rs.cells = []*RadioCell{}
	rs.ueRadios = []*Intrfc{}
	rs.attached = make(map[int]*RadioCell)
	return rs
}

// EnableTraces turns on per-packet trace records for the air legs
func (rs *RadioStack) EnableTraces() {
	rs.tracing = true
}

// A RadioCell is the air interface a base station offers.  Each cell
// has its own transmit scheduler, so load on one base station does not
// delay transmissions on another.
type RadioCell struct {
	number int
	name   string
	stack  *RadioStack
	enb    *Node
	intrfc *Intrfc
	sched  *txScheduler
	users  []*Node
}

// InstallBaseStation creates the air interface of a base station and
// the scheduler behind it
func (rs *RadioStack) InstallBaseStation(enb *Node) *RadioCell {
	cell := new(RadioCell)
	cell.number = rs.ctx.nxtID()
	cell.name = fmt.Sprintf("cell@%s", enb.name)
	cell.stack = rs
	cell.enb = enb
	cell.intrfc = createIntrfc(rs.ctx, enb, radioMedia)
	cell.intrfc.cell = cell
	cell.sched = createTxScheduler(rs.grants)
	cell.users = []*Node{}
	rs.ctx.TraceMgr.AddName(cell.number, cell.name, "cell")
	rs.cells = append(rs.cells, cell)
	return cell
}

// InstallUserDevice creates the radio interface of a user device
func (rs *RadioStack) InstallUserDevice(ue *Node) *Intrfc {
	intrfc := createIntrfc(rs.ctx, ue, radioMedia)
	intrfc.stack = rs
	rs.ueRadios = append(rs.ueRadios, intrfc)
	return intrfc
}

// attach records the serving cell of a user device
func (rs *RadioStack) attach(ue *Node, cell *RadioCell) {
	rs.attached[ue.id] = cell
	cell.users = append(cell.users, ue)
}

// AttachNearest binds a user device to the cell of the nearest base
// station, first encountered winning a tie, and returns that cell.
// Both the device and the base stations must already be placed.
func (rs *RadioStack) AttachNearest(ue *Node) (*RadioCell, error) {
	if len(rs.cells) == 0 {
		return nil, fmt.Errorf("no cells available for attachment")
	}
	if ue.intrfcByMedia(radioMedia) == nil {
		return nil, fmt.Errorf("device %s has no radio interface, install it first", ue.name)
	}
	if !ue.placed {
		return nil, fmt.Errorf("device %s has no position, run placement first", ue.name)
	}

	var best *RadioCell
	bestDist := 0.0
	for _, cell := range rs.cells {
		if !cell.enb.placed {
			return nil, fmt.Errorf("base station %s has no position, run placement first", cell.enb.name)
		}
		dist := ue.Pos().Distance(cell.enb.Pos())
		if best == nil || dist < bestDist {
			best = cell
			bestDist = dist
		}
	}

	rs.attach(ue, best)
	return best, nil
}

// servingCell returns the cell a device is attached to, nil when unattached
func (rs *RadioStack) servingCell(node *Node) *RadioCell {
	return rs.attached[node.id]
}

// ueByAddr finds the user device radio interface that owns an address
func (rs *RadioStack) ueByAddr(addr net.IP) *Intrfc {
	for _, intrfc := range rs.ueRadios {
		if intrfc.addr != nil && intrfc.addr.Equal(addr) {
			return intrfc
		}
	}
	return nil
}

// a radioHop carries one packet's air crossing from grant to arrival
type radioHop struct {
	cell *RadioCell
	dst  *Intrfc
}

// radioTx pushes a packet onto the air interface.  Uplink packets claim
// air time on the sender's serving cell and arrive at the gateway
// tunnel; downlink packets claim air time on the destination device's
// serving cell and arrive at that device.  Packets for which no serving
// cell exists are dropped.
func radioTx(evtMgr *evtm.EventManager, egress *Intrfc, pckt *Packet) {
	rs := egress.stack
	device := egress.device

	var cell *RadioCell
	var dst *Intrfc
	var op string

	if egress == rs.gwIntrfc {
		// downlink, toward whichever device owns the destination address
		ueIntrfc := rs.ueByAddr(pckt.dstAddr)
		if ueIntrfc == nil {
			device.drops += 1
			if rs.tracing {
				AddPacketTrace(rs.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, egress.number, "drop", "radio")
			}
			return
		}
		cell = rs.servingCell(ueIntrfc.device)
		dst = ueIntrfc
		op = "downlink"
	} else {
		// uplink, toward the gateway tunnel
		cell = rs.servingCell(device)
		dst = rs.gwIntrfc
		op = "uplink"
	}

	if cell == nil {
		device.drops += 1
		if rs.tracing {
			AddPacketTrace(rs.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, egress.number, "drop", "radio")
		}
		return
	}

	if rs.tracing {
		AddPacketTrace(rs.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, egress.number, "enterAir", "radio")
	}
	if egress.tap != nil {
		egress.tap.record(evtMgr.CurrentSeconds(), pckt)
	}

	req := roundFloat(float64(8*pckt.pcktLen)/rs.bandwidth, rdigits)
	hop := &radioHop{cell: cell, dst: dst}
	cell.sched.schedule(evtMgr, op, req, rs.timeslice, hop, pckt, radioTxComplete)
}

// radioTxComplete is the event handler called when a packet's air time
// grant has been fully served.  The packet then propagates to the far
// side of the air interface.
func radioTxComplete(evtMgr *evtm.EventManager, context any, data any) any {
	hop := context.(*radioHop)
	pckt := data.(*Packet)

	rs := hop.cell.stack
	evtMgr.Schedule(hop.dst, pckt, radioArrive, vrtime.SecondsToTime(rs.latency))
	return nil
}

// radioArrive is the event handler for a packet reaching the receiving
// side of the air interface
func radioArrive(evtMgr *evtm.EventManager, context any, data any) any {
	intrfc := context.(*Intrfc)
	pckt := data.(*Packet)

	rs := intrfc.stack
	if rs != nil && rs.tracing {
		AddPacketTrace(rs.ctx.TraceMgr, evtMgr.CurrentTime(), pckt, intrfc.number, "exitAir", "radio")
	}
	if intrfc.tap != nil {
		intrfc.tap.record(evtMgr.CurrentSeconds(), pckt)
	}

	// deliver here, or forward toward the destination
	sendPacket(evtMgr, intrfc.device, pckt)
	return nil
}
