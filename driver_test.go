package dronesim

import (
	"encoding/xml"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"gopkg.in/yaml.v3"
)

func TestDriverRunDefaultScenario(t *testing.T) {
	scn := buildTestScenario(t, nil, false)
	drv, err := CreateSimulationDriver(scn, DriverConfig{})
	if err != nil {
		t.Fatalf("CreateSimulationDriver() = %v", err)
	}
	rpt, err := drv.Run()
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if rpt.StopAt != 2.0 {
		t.Fatalf("StopAt = %v, want 2.0", rpt.StopAt)
	}
	if rpt.LastEvent <= 0.1 || rpt.LastEvent > 2.1 {
		t.Fatalf("LastEvent = %v, want within the run window", rpt.LastEvent)
	}
	if len(rpt.Stats) != 2 {
		t.Fatalf("stats = %d flows, want 2", len(rpt.Stats))
	}
	if rpt.Drops != 0 {
		t.Fatalf("drops = %d, want 0", rpt.Drops)
	}

	window := 2.0 - scn.Traffic.StartAt()
	for _, st := range rpt.Stats {
		// clients send every 100 microseconds from 0.1 on
		if st.Sent < 18995 || st.Sent > 19005 {
			t.Fatalf("flow %s sent %d packets, want about 19000", st.Name, st.Sent)
		}
		// packets in flight at the stop time are sent but never received
		if st.Received >= st.Sent || st.Received < st.Sent-200 {
			t.Fatalf("flow %s received %d of %d sent", st.Name, st.Received, st.Sent)
		}
		if st.Bytes != st.Received*1024 {
			t.Fatalf("flow %s bytes = %d, want %d", st.Name, st.Bytes, st.Received*1024)
		}
		// one wired crossing plus one air crossing each way
		if st.MeanDelay < 0.0105 || st.MeanDelay > 0.0115 {
			t.Fatalf("flow %s mean delay = %v, want about 0.011", st.Name, st.MeanDelay)
		}
		want := float64(8*st.Bytes) / window
		if math.Abs(st.Throughput-want) > 1e-6*want {
			t.Fatalf("flow %s throughput = %v, want %v", st.Name, st.Throughput, want)
		}
	}
	if rpt.Sent != rpt.Stats[0].Sent+rpt.Stats[1].Sent {
		t.Fatalf("report total sent %d disagrees with its stats", rpt.Sent)
	}

	// the reserved sink is bound but nothing feeds it
	if len(drv.reserved) != 1 || drv.reserved[0].Received() != 0 {
		t.Fatalf("reserved server received traffic")
	}
}

func TestDriverWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	scn := buildTestScenario(t, func(prms *ScenarioParams) {
		prms.SimTime = 0.5
		prms.InterPacketInterval = 10000.0
	}, true)

	cfg := DriverConfig{
		PcapPrefix:   filepath.Join(dir, "mmwave-epc-simple"),
		AnimFile:     filepath.Join(dir, "mmwave.xml"),
		TraceFile:    filepath.Join(dir, "mmwave-trace.yaml"),
		ScenarioFile: filepath.Join(dir, "scenario.yaml"),
	}
	drv, err := CreateSimulationDriver(scn, cfg)
	if err != nil {
		t.Fatalf("CreateSimulationDriver() = %v", err)
	}
	rpt, err := drv.Run()
	if err != nil {
		t.Fatalf("Run() = %v", err)
	}
	for _, st := range rpt.Stats {
		if st.Sent < 39 || st.Sent > 42 {
			t.Fatalf("flow %s sent %d packets, want about 41", st.Name, st.Sent)
		}
		if st.Received >= st.Sent || st.Received < st.Sent-3 {
			t.Fatalf("flow %s received %d of %d sent", st.Name, st.Received, st.Sent)
		}
	}

	// one capture per wired interface
	captures, err := filepath.Glob(filepath.Join(dir, "mmwave-epc-simple-*.pcap"))
	if err != nil {
		t.Fatalf("Glob() = %v", err)
	}
	if len(captures) != 2 {
		t.Fatalf("captures = %v, want one per wired interface", captures)
	}
	for _, name := range captures {
		checkCapture(t, name)
	}

	checkAnimDoc(t, cfg.AnimFile, scn)
	checkTraceDoc(t, cfg.TraceFile)

	sd, err := ReadScenarioDesc(cfg.ScenarioFile, true, []byte{})
	if err != nil {
		t.Fatalf("ReadScenarioDesc() = %v", err)
	}
	want := scn.Transform()
	if !reflect.DeepEqual(*sd, want) {
		t.Fatalf("scenario description on disk disagrees with the assembly")
	}
}

// checkCapture parses one pcap file and checks the framing of its packets
func checkCapture(t *testing.T, name string) {
	t.Helper()
	f, err := os.Open(name)
	if err != nil {
		t.Fatalf("Open(%s) = %v", name, err)
	}
	defer f.Close()

	rd, err := pcapgo.NewReader(f)
	if err != nil {
		t.Fatalf("NewReader(%s) = %v", name, err)
	}
	if rd.LinkType() != layers.LinkTypeEthernet {
		t.Fatalf("capture %s link type = %v, want ethernet", name, rd.LinkType())
	}

	count := 0
	for {
		data, _, err := rd.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadPacketData(%s) = %v", name, err)
		}
		pkt := gopacket.NewPacket(data, layers.LinkTypeEthernet, gopacket.Default)
		ipLayer := pkt.Layer(layers.LayerTypeIPv4)
		udpLayer := pkt.Layer(layers.LayerTypeUDP)
		if ipLayer == nil || udpLayer == nil {
			t.Fatalf("capture %s holds a frame that is not IPv4/UDP", name)
		}
		udp := udpLayer.(*layers.UDP)
		if udp.DstPort != 1234 && udp.DstPort != 2001 {
			t.Fatalf("capture %s frame aimed at port %d, want 1234 or 2001", name, udp.DstPort)
		}
		count += 1
	}
	if count < 70 || count > 90 {
		t.Fatalf("capture %s holds %d frames, want about 80", name, count)
	}
}

// checkAnimDoc parses the layout document and checks labels and placement
func checkAnimDoc(t *testing.T, name string, scn *Scenario) {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile(%s) = %v", name, err)
	}
	doc := animDoc{}
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal(%s) = %v", name, err)
	}
	if doc.Ver != "netanim-3.108" {
		t.Fatalf("anim version = %q, want netanim-3.108", doc.Ver)
	}
	if len(doc.Nodes) != len(scn.Nodes.AllNodes()) {
		t.Fatalf("anim nodes = %d, want %d", len(doc.Nodes), len(scn.Nodes.AllNodes()))
	}

	labels := make(map[string]int)
	for _, node := range doc.Nodes {
		labels[node.Descr] += 1
		if node.Descr == "UE" && (node.LocX < 10.0 || node.LocX >= 150.0) {
			t.Fatalf("anim places a device at %v, want within [10, 150)", node.LocX)
		}
	}
	for _, want := range []string{"PGW", "RemoteHost", "eNB", "UE"} {
		if labels[want] != 1 {
			t.Fatalf("anim labels = %v, want one %q", labels, want)
		}
	}
}

// checkTraceDoc parses the trace output and checks it carries packet records
func checkTraceDoc(t *testing.T, name string) {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile(%s) = %v", name, err)
	}
	tm := TraceManager{}
	if err := yaml.Unmarshal(data, &tm); err != nil {
		t.Fatalf("Unmarshal(%s) = %v", name, err)
	}
	if !tm.InUse {
		t.Fatalf("trace output is marked unused")
	}
	if tm.ExpName != "dronesimTest" {
		t.Fatalf("trace experiment = %q, want dronesimTest", tm.ExpName)
	}
	if len(tm.NameByID) == 0 {
		t.Fatalf("trace output carries no name dictionary")
	}
	if len(tm.Traces) == 0 {
		t.Fatalf("trace output carries no packet traces")
	}
	for _, insts := range tm.Traces {
		for _, inst := range insts {
			if inst.TraceType != "packet" {
				t.Fatalf("trace record type = %q, want packet", inst.TraceType)
			}
		}
		break
	}
}

func TestDriverRejectsBadArtifactPath(t *testing.T) {
	scn := buildTestScenario(t, nil, false)
	cfg := DriverConfig{
		TraceFile: filepath.Join(t.TempDir(), "no-such-subdir", "trace.yaml"),
	}
	if _, err := CreateSimulationDriver(scn, cfg); err == nil {
		t.Fatalf("CreateSimulationDriver() accepted an output path with no directory")
	}
}

func TestDriverRunsAreDeterministic(t *testing.T) {
	first := buildTestScenario(t, func(prms *ScenarioParams) { prms.NumUe = 3 }, false)
	second := buildTestScenario(t, func(prms *ScenarioParams) { prms.NumUe = 3 }, false)

	if !reflect.DeepEqual(first.Transform(), second.Transform()) {
		t.Fatalf("two assemblies from the same seed describe different scenarios")
	}
}
