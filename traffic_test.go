package dronesim

import (
	"fmt"
	"testing"
)

func TestFlowDirStrings(t *testing.T) {
	cases := map[FlowDir]string{
		FlowDownlink: "downlink",
		FlowUplink:   "uplink",
	}
	for dir, want := range cases {
		if dir.String() != want {
			t.Fatalf("FlowDir(%d).String() = %q, want %q", dir, dir.String(), want)
		}
	}
}

func TestTrafficPlanSingleDevice(t *testing.T) {
	scn := buildTestScenario(t, nil, false)
	fp := scn.Traffic

	if got := fp.StartAt(); got != 0.1 {
		t.Fatalf("StartAt() = %v, want 0.1", got)
	}
	flows := fp.Flows()
	if len(flows) != 2 {
		t.Fatalf("flows = %d, want a downlink and an uplink", len(flows))
	}

	dl := flows[0]
	if dl.Dir != FlowDownlink || dl.Name != "downlink@ue.[0]" {
		t.Fatalf("first flow = (%v, %q), want the downlink", dl.Dir, dl.Name)
	}
	if dl.Client != scn.Nodes.RemoteHost || dl.Server != scn.Nodes.UserDevices[0] {
		t.Fatalf("downlink endpoints = (%s, %s)", dl.Client.Name(), dl.Server.Name())
	}
	if dl.DstPort != 1234 {
		t.Fatalf("downlink port = %d, want 1234", dl.DstPort)
	}
	if dl.SrcAddr.String() != "1.0.0.2" || dl.DstAddr.String() != "7.0.0.2" {
		t.Fatalf("downlink addresses = (%s, %s)", dl.SrcAddr, dl.DstAddr)
	}

	ul := flows[1]
	if ul.Dir != FlowUplink || ul.Name != "uplink@remoteHost" {
		t.Fatalf("second flow = (%v, %q), want the uplink", ul.Dir, ul.Name)
	}
	if ul.Client != scn.Nodes.UserDevices[0] || ul.Server != scn.Nodes.RemoteHost {
		t.Fatalf("uplink endpoints = (%s, %s)", ul.Client.Name(), ul.Server.Name())
	}
	if ul.DstPort != 2001 {
		t.Fatalf("uplink port = %d, want 2001", ul.DstPort)
	}

	for _, flow := range flows {
		if flow.Interval != 1e-4 {
			t.Fatalf("flow %s interval = %v, want 1e-4", flow.Name, flow.Interval)
		}
		if flow.PcktLen != 1024 || flow.MaxPckts != 1000000 {
			t.Fatalf("flow %s sizing = (%d, %d), want (1024, 1000000)",
				flow.Name, flow.PcktLen, flow.MaxPckts)
		}
	}

	reserved := fp.Reserved()
	if len(reserved) != 1 {
		t.Fatalf("reserved servers = %d, want 1", len(reserved))
	}
	if reserved[0].Node != scn.Nodes.UserDevices[0] || reserved[0].Port != 3001 {
		t.Fatalf("reserved = (%s, %d), want (ue.[0], 3001)",
			reserved[0].Node.Name(), reserved[0].Port)
	}
}

func TestTrafficPlanPortAllocation(t *testing.T) {
	scn := buildTestScenario(t, func(prms *ScenarioParams) { prms.NumUe = 3 }, false)
	fp := scn.Traffic

	// a downlink and an uplink per device, nothing else
	if got := len(fp.Flows()); got != 6 {
		t.Fatalf("flows = %d, want 6", got)
	}

	ulPorts := []uint16{}
	for _, flow := range fp.Flows() {
		switch flow.Dir {
		case FlowDownlink:
			if flow.DstPort != 1234 {
				t.Fatalf("downlink %s port = %d, want the shared 1234", flow.Name, flow.DstPort)
			}
		case FlowUplink:
			ulPorts = append(ulPorts, flow.DstPort)
		}
	}
	wantUl := []uint16{2001, 2002, 2003}
	if len(ulPorts) != len(wantUl) {
		t.Fatalf("uplink ports = %v, want %v", ulPorts, wantUl)
	}
	for idx, port := range ulPorts {
		if port != wantUl[idx] {
			t.Fatalf("uplink ports = %v, want %v", ulPorts, wantUl)
		}
	}

	// one reserved port per device, counting up beside the uplinks
	reserved := fp.Reserved()
	if len(reserved) != 3 {
		t.Fatalf("reserved servers = %d, want one per device", len(reserved))
	}
	wantOther := []uint16{3001, 3002, 3003}
	for idx, rsrv := range reserved {
		if rsrv.Node != scn.Nodes.UserDevices[idx] || rsrv.Port != wantOther[idx] {
			t.Fatalf("reserved[%d] = (%s, %d), want (%s, %d)", idx,
				rsrv.Node.Name(), rsrv.Port,
				scn.Nodes.UserDevices[idx].Name(), wantOther[idx])
		}
	}
}

func TestTrafficPlanPortsUniquePerServer(t *testing.T) {
	scn := buildTestScenario(t, func(prms *ScenarioParams) { prms.NumUe = 8 }, false)

	type binding struct {
		node int
		port uint16
	}
	seen := make(map[binding]string)
	note := func(node *Node, port uint16, name string) {
		b := binding{node: node.ID(), port: port}
		if owner, present := seen[b]; present {
			t.Fatalf("port %d on %s claimed by both %s and %s", port, node.Name(), owner, name)
		}
		seen[b] = name
	}
	for _, flow := range scn.Traffic.Flows() {
		note(flow.Server, flow.DstPort, flow.Name)
	}
	for _, rsrv := range scn.Traffic.Reserved() {
		note(rsrv.Node, rsrv.Port, fmt.Sprintf("reserved %d", rsrv.Port))
	}
}

func TestTrafficPlanClientPortsDistinct(t *testing.T) {
	scn := buildTestScenario(t, func(prms *ScenarioParams) { prms.NumUe = 4 }, false)

	seen := make(map[uint16]bool)
	for idx, flow := range scn.Traffic.Flows() {
		want := ephemeralPortBase + uint16(idx)
		if flow.SrcPort != want {
			t.Fatalf("flow %s source port = %d, want %d", flow.Name, flow.SrcPort, want)
		}
		if seen[flow.SrcPort] {
			t.Fatalf("source port %d reused", flow.SrcPort)
		}
		seen[flow.SrcPort] = true
	}
}
