package dronesim

import (
	"net"
	"testing"

	"github.com/iti/evt/evtm"
)

func TestTxSchedulerServesInOrder(t *testing.T) {
	evtMgr := evtm.New()
	txs := createTxScheduler(1)

	order := []string{}
	done := func(evtMgr *evtm.EventManager, context any, data any) any {
		order = append(order, data.(string))
		return nil
	}

	if !txs.schedule(evtMgr, "tx", 10e-6, 100e-6, nil, "a", done) {
		t.Fatalf("first transmission did not go straight into service")
	}
	if txs.schedule(evtMgr, "tx", 20e-6, 100e-6, nil, "b", done) {
		t.Fatalf("second transmission claimed the busy grant")
	}
	if txs.schedule(evtMgr, "tx", 30e-6, 100e-6, nil, "c", done) {
		t.Fatalf("third transmission claimed the busy grant")
	}

	evtMgr.Run(1.0)

	if len(order) != 3 {
		t.Fatalf("completions = %d, want 3", len(order))
	}
	for idx, want := range []string{"a", "b", "c"} {
		if order[idx] != want {
			t.Fatalf("completion order = %v, want first come first served", order)
		}
	}
}

func TestTxSchedulerSlicesLongWork(t *testing.T) {
	evtMgr := evtm.New()
	txs := createTxScheduler(1)

	count := 0
	done := func(evtMgr *evtm.EventManager, context any, data any) any {
		count += 1
		return nil
	}

	// two and a half timeslices of work completes over three grants
	if txs.schedule(evtMgr, "tx", 250e-6, 100e-6, nil, "long", done) {
		t.Fatalf("a sliced transmission reported immediate completion")
	}
	evtMgr.Run(1.0)

	if count != 1 {
		t.Fatalf("completions = %d, want 1", count)
	}
	if len(txs.waiting) != 0 || len(txs.inservice) != 0 {
		t.Fatalf("scheduler still holds work: %d waiting, %d in service",
			len(txs.waiting), len(txs.inservice))
	}
}

func TestTxSchedulerConcurrentGrants(t *testing.T) {
	evtMgr := evtm.New()
	txs := createTxScheduler(2)

	count := 0
	done := func(evtMgr *evtm.EventManager, context any, data any) any {
		count += 1
		return nil
	}

	if !txs.schedule(evtMgr, "tx", 10e-6, 100e-6, nil, "a", done) {
		t.Fatalf("first grant was refused")
	}
	if !txs.schedule(evtMgr, "tx", 10e-6, 100e-6, nil, "b", done) {
		t.Fatalf("second grant was refused with one of two in use")
	}
	if txs.schedule(evtMgr, "tx", 10e-6, 100e-6, nil, "c", done) {
		t.Fatalf("third transmission ignored the grant limit")
	}
	evtMgr.Run(1.0)

	if count != 3 {
		t.Fatalf("completions = %d, want 3", count)
	}
}

func TestRadioStackReadsConfiguration(t *testing.T) {
	scn := buildTestScenario(t, func(prms *ScenarioParams) {
		prms.HarqEnabled = false
		prms.RlcAmEnabled = true
	}, false)
	rs := scn.Radio

	if rs.harq || rs.schedHarq {
		t.Fatalf("harq modes = (%v, %v), want both off", rs.harq, rs.schedHarq)
	}
	if !rs.rlcAm {
		t.Fatalf("rlcAm = false, want true")
	}
	if rs.schedName != "flexTti" {
		t.Fatalf("scheduler = %q, want %q", rs.schedName, "flexTti")
	}
	if rs.bandwidth != 1e9 || rs.latency != 1e-3 {
		t.Fatalf("air interface = (%v bps, %v s), want (1e9, 1e-3)", rs.bandwidth, rs.latency)
	}
	if rs.grants != 8 || rs.timeslice != 100e-6 {
		t.Fatalf("grant scheduling = (%d, %v), want (8, 100e-6)", rs.grants, rs.timeslice)
	}
	if rs.amStatusTimer != 100e-6 || rs.umStatusTimer != 100e-6 {
		t.Fatalf("status timers = (%v, %v), want 100e-6", rs.amStatusTimer, rs.umStatusTimer)
	}

	if rs.gwIntrfc == nil || rs.gwIntrfc.device != scn.Nodes.Gateway || rs.gwIntrfc.media != radioMedia {
		t.Fatalf("gateway tunnel interface is missing or misplaced")
	}
	if len(rs.cells) != 1 || len(rs.ueRadios) != 1 {
		t.Fatalf("radio segment = (%d cells, %d radios), want (1, 1)",
			len(rs.cells), len(rs.ueRadios))
	}
	if rs.cells[0].sched == nil || rs.cells[0].sched.grants != 8 {
		t.Fatalf("cell scheduler missing or misconfigured")
	}
}

func TestUeByAddr(t *testing.T) {
	scn := buildTestScenario(t, func(prms *ScenarioParams) { prms.NumUe = 2 }, false)
	rs := scn.Radio

	intrfc := rs.ueByAddr(net.ParseIP("7.0.0.3"))
	if intrfc == nil || intrfc.device != scn.Nodes.UserDevices[1] {
		t.Fatalf("ueByAddr(7.0.0.3) missed the second device")
	}
	if rs.ueByAddr(net.ParseIP("7.0.0.99")) != nil {
		t.Fatalf("ueByAddr() matched an unassigned address")
	}
}

func TestRadioTxDropsWithoutServingCell(t *testing.T) {
	ctx := CreateSimulationContext("dronesimTest", 1, false)
	gw := createNode(ctx, "gw", RoleGateway)
	rs := CreateRadioStack(ctx, gw)
	ue := createNode(ctx, "dev", RoleUserDevice)
	intrfc := rs.InstallUserDevice(ue)
	intrfc.addr = net.ParseIP("7.0.0.2")

	pckt := createPacket(ctx, 0, net.ParseIP("7.0.0.2"), net.ParseIP("1.0.0.2"), 49153, 2001, 1024)
	radioTx(ctx.EvtMgr, intrfc, pckt)
	if ue.drops != 1 {
		t.Fatalf("device drops = %d, want 1 for an unattached uplink", ue.drops)
	}

	// downlink to an address no device owns is dropped at the gateway
	pckt = createPacket(ctx, 0, net.ParseIP("1.0.0.2"), net.ParseIP("7.0.0.99"), 49153, 1234, 1024)
	radioTx(ctx.EvtMgr, rs.gwIntrfc, pckt)
	if gw.drops != 1 {
		t.Fatalf("gateway drops = %d, want 1 for an unknown destination", gw.drops)
	}
}
