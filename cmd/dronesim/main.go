package main

// dronesim assembles one cellular scenario from command line parameters,
// runs it to the configured stop time, and prints a per-flow delivery
// report.  Artifact switches select packet captures, a trace file, an
// animator layout, and a dump of the assembled scenario description.

import (
	"flag"
	"fmt"
	"log"

	dronesim "github.com/embeddingBits/Disaster-control-drone-simulation"
)

func main() {
	prms := dronesim.DefaultScenarioParams()
	prms.AddFlags(flag.CommandLine)

	pcapPrefix := flag.String("pcap", "mmwave-epc-simple",
		"prefix for per-interface packet captures, empty disables")
	animFile := flag.String("anim", "mmwave.xml",
		"animator layout file, empty disables")
	traceFile := flag.String("trace", "mmwave-trace.yaml",
		"trace output file, .yaml or .json, empty disables")
	scenarioFile := flag.String("scenario", "",
		"scenario description dump file, .yaml or .json, empty disables")
	flag.Parse()

	ctx := dronesim.CreateSimulationContext("droneSim", prms.Seed, *traceFile != "")

	scn, err := dronesim.BuildScenario(ctx, prms)
	if err != nil {
		log.Fatalf("scenario assembly failed: %v", err)
	}

	cfg := dronesim.DriverConfig{
		PcapPrefix:   *pcapPrefix,
		AnimFile:     *animFile,
		TraceFile:    *traceFile,
		ScenarioFile: *scenarioFile,
	}
	drv, err := dronesim.CreateSimulationDriver(scn, cfg)
	if err != nil {
		log.Fatalf("driver setup failed: %v", err)
	}

	rpt, err := drv.Run()
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}

	fmt.Printf("%s stopped at %.3f of %.3f\n", rpt.ExpName, rpt.LastEvent, rpt.StopAt)
	for _, st := range rpt.Stats {
		fmt.Printf("flow %-24s sent %8d rcvd %8d bytes %10d meanDelay %.6f throughput %.4e bps\n",
			st.Name, st.Sent, st.Received, st.Bytes, st.MeanDelay, st.Throughput)
	}
	fmt.Printf("total sent %d received %d dropped %d\n", rpt.Sent, rpt.Received, rpt.Drops)
}
