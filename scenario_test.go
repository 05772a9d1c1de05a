package dronesim

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// buildTestScenario assembles a scenario from the default parameters,
// optionally mutated, and fails the test on any assembly error
func buildTestScenario(t *testing.T, mutate func(*ScenarioParams), traceOn bool) *Scenario {
	t.Helper()
	prms := DefaultScenarioParams()
	if mutate != nil {
		mutate(&prms)
	}
	ctx := CreateSimulationContext("dronesimTest", prms.Seed, traceOn)
	scn, err := BuildScenario(ctx, prms)
	if err != nil {
		t.Fatalf("BuildScenario() = %v", err)
	}
	return scn
}

func TestBuildScenarioProducts(t *testing.T) {
	scn := buildTestScenario(t, func(prms *ScenarioParams) {
		prms.NumEnb = 2
		prms.NumUe = 3
	}, false)

	if scn.Nodes == nil || scn.Radio == nil || scn.Attachments == nil ||
		scn.Addresses == nil || scn.Traffic == nil {
		t.Fatalf("BuildScenario() left a stage product nil: %+v", scn)
	}
	if got := len(scn.Attachments.Links()); got != 3 {
		t.Fatalf("attachment links = %d, want one per user device, 3", got)
	}
	if got := len(scn.Radio.cells); got != 2 {
		t.Fatalf("cells = %d, want 2", got)
	}
	if scn.Ctx.Cfg.Len() == 0 {
		t.Fatalf("configuration store is empty after assembly")
	}
}

func TestBuildScenarioRejectsBadParams(t *testing.T) {
	ctx := CreateSimulationContext("dronesimTest", 1, false)
	prms := DefaultScenarioParams()
	prms.NumEnb = 0
	scn, err := BuildScenario(ctx, prms)
	if err == nil {
		t.Fatalf("BuildScenario() accepted numEnb 0")
	}
	if scn != nil {
		t.Fatalf("BuildScenario() returned a scenario alongside error %v", err)
	}

	ctx = CreateSimulationContext("dronesimTest", 1, false)
	prms = DefaultScenarioParams()
	prms.MinDistance = 150.0
	prms.MaxDistance = 150.0
	_, err = BuildScenario(ctx, prms)
	if err == nil {
		t.Fatalf("BuildScenario() accepted a degenerate placement range")
	}
}

func TestScenarioTransform(t *testing.T) {
	scn := buildTestScenario(t, nil, false)
	sd := scn.Transform()

	if sd.Name != "dronesimTest" {
		t.Fatalf("desc name = %q, want %q", sd.Name, "dronesimTest")
	}
	if len(sd.Nodes) != 4 {
		t.Fatalf("desc nodes = %d, want 4", len(sd.Nodes))
	}
	if len(sd.Links) != 1 {
		t.Fatalf("desc links = %d, want 1", len(sd.Links))
	}
	link := sd.Links[0]
	if link.EndptA != "pgw" || link.EndptB != "remoteHost" {
		t.Fatalf("link endpoints = (%q, %q), want (pgw, remoteHost)", link.EndptA, link.EndptB)
	}
	if link.Bandwidth != 100e9 || link.Delay != 0.010 || link.MTU != 1500 {
		t.Fatalf("link = %+v, want 100e9 bps, 0.010 s, mtu 1500", link)
	}

	if len(sd.Cells) != 1 {
		t.Fatalf("desc cells = %d, want 1", len(sd.Cells))
	}
	cell := sd.Cells[0]
	if cell.Enb != "enb.[0]" || len(cell.Users) != 1 || cell.Users[0] != "ue.[0]" {
		t.Fatalf("cell desc = %+v, want enb.[0] serving ue.[0]", cell)
	}

	if len(sd.Flows) != 2 {
		t.Fatalf("desc flows = %d, want 2", len(sd.Flows))
	}
	routes := make(map[string]string)
	for _, fd := range sd.Flows {
		routes[fd.Dir] = fd.Route
	}
	if routes["downlink"] != "remoteHost,pgw,enb.[0],ue.[0]" {
		t.Fatalf("downlink route = %q, want %q", routes["downlink"],
			"remoteHost,pgw,enb.[0],ue.[0]")
	}
	if routes["uplink"] != "ue.[0],enb.[0],pgw,remoteHost" {
		t.Fatalf("uplink route = %q, want %q", routes["uplink"],
			"ue.[0],enb.[0],pgw,remoteHost")
	}

	if len(sd.Reserved) != 1 {
		t.Fatalf("desc reserved = %d, want 1", len(sd.Reserved))
	}
	if sd.Reserved[0].Node != "ue.[0]" || sd.Reserved[0].Port != 3001 {
		t.Fatalf("reserved desc = %+v, want ue.[0] port 3001", sd.Reserved[0])
	}
}

func TestScenarioDescRoundTrip(t *testing.T) {
	scn := buildTestScenario(t, func(prms *ScenarioParams) { prms.NumUe = 2 }, false)
	sd := scn.Transform()
	dir := t.TempDir()

	yamlFile := filepath.Join(dir, "scenario.yaml")
	if err := sd.WriteToFile(yamlFile); err != nil {
		t.Fatalf("WriteToFile(yaml) = %v", err)
	}
	back, err := ReadScenarioDesc(yamlFile, true, []byte{})
	if err != nil {
		t.Fatalf("ReadScenarioDesc(yaml) = %v", err)
	}
	if !reflect.DeepEqual(sd, *back) {
		t.Fatalf("yaml round trip changed the description\nwrote %+v\nread  %+v", sd, *back)
	}

	jsonFile := filepath.Join(dir, "scenario.json")
	if err := sd.WriteToFile(jsonFile); err != nil {
		t.Fatalf("WriteToFile(json) = %v", err)
	}
	back, err = ReadScenarioDesc(jsonFile, false, []byte{})
	if err != nil {
		t.Fatalf("ReadScenarioDesc(json) = %v", err)
	}
	if !reflect.DeepEqual(sd, *back) {
		t.Fatalf("json round trip changed the description\nwrote %+v\nread  %+v", sd, *back)
	}

	// reading from an offered byte slice skips the file entirely
	dict, rerr := os.ReadFile(yamlFile)
	if rerr != nil {
		t.Fatalf("ReadFile(%s) = %v", yamlFile, rerr)
	}
	back, err = ReadScenarioDesc("no-such-file.yaml", true, dict)
	if err != nil {
		t.Fatalf("ReadScenarioDesc(dict) = %v", err)
	}
	if !reflect.DeepEqual(sd, *back) {
		t.Fatalf("dict round trip changed the description")
	}
}

func TestReadScenarioDescMissingFile(t *testing.T) {
	_, err := ReadScenarioDesc(filepath.Join(t.TempDir(), "absent.yaml"), true, []byte{})
	if err == nil {
		t.Fatalf("ReadScenarioDesc() read a file that does not exist")
	}
}
