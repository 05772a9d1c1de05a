package dronesim

// driver.go executes an assembled scenario.  The driver installs the
// planned traffic endpoints, schedules their starts, runs the event
// engine to the stop time, and turns what the endpoints counted into a
// run report.  Artifact production hangs off the driver configuration;
// an empty name disables its artifact.

import (
	"github.com/iti/evt/vrtime"
)

// A DriverConfig names the artifacts a run should produce
type DriverConfig struct {
	PcapPrefix   string // per-wired-interface captures, prefix-number.pcap
	AnimFile     string // layout document for the animator
	TraceFile    string // trace manager output, yaml or json by extension
	ScenarioFile string // scenario description dump, yaml or json by extension
}

// A FlowStat reports one flow's delivery over the run
type FlowStat struct {
	FlowID     int
	Name       string
	Dir        string
	Sent       int
	Received   int
	Bytes      int
	MeanDelay  float64
	Throughput float64 // delivered bits per second over the active window
}

// A RunReport summarizes a completed run
type RunReport struct {
	ExpName   string
	StopAt    float64 // requested stop time
	LastEvent float64 // virtual time of the engine when it stopped
	Sent      int
	Received  int
	Drops     int
	Stats     []FlowStat
}

// A SimulationDriver owns the execution of one assembled scenario
type SimulationDriver struct {
	ctx      *SimulationContext
	scn      *Scenario
	cfg      DriverConfig
	servers  map[int]*UdpServer // by flow id
	clients  map[int]*UdpClient // by flow id
	reserved []*UdpServer
	anim     *AnimRecorder
}

// CreateSimulationDriver readies a scenario for execution: artifact
// paths are checked, taps and recorders attached, traffic endpoints
// installed, and their starts scheduled.  Nothing runs until Run.
func CreateSimulationDriver(scn *Scenario, cfg DriverConfig) (*SimulationDriver, error) {
	drv := new(SimulationDriver)
	drv.ctx = scn.Ctx
	drv.scn = scn
	drv.cfg = cfg
	drv.servers = make(map[int]*UdpServer)
	drv.clients = make(map[int]*UdpClient)
	drv.reserved = []*UdpServer{}

	outputs := []string{cfg.PcapPrefix, cfg.AnimFile, cfg.TraceFile, cfg.ScenarioFile}
	_, err := CheckOutputFiles(outputs)
	if err != nil {
		return nil, err
	}

	if cfg.TraceFile != "" && drv.ctx.TraceMgr.Active() {
		scn.Radio.EnableTraces()
	}
	if cfg.PcapPrefix != "" {
		err := EnablePcapAll(cfg.PcapPrefix, scn.Nodes)
		if err != nil {
			return nil, err
		}
	}
	if cfg.AnimFile != "" {
		drv.anim = CreateAnimRecorder()
		drv.anim.LabelNodes(scn.Nodes)
	}

	// sinks come up first in the schedule, sources right behind them
	startAt := scn.Traffic.StartAt()
	for _, flow := range scn.Traffic.Flows() {
		srv, err := CreateUdpServer(drv.ctx, flow.Server, flow.DstPort)
		if err != nil {
			return nil, err
		}
		drv.servers[flow.ID] = srv
		drv.ctx.EvtMgr.Schedule(srv, nil, startUdpServer, vrtime.SecondsToTime(startAt))
	}
	for _, rsrv := range scn.Traffic.Reserved() {
		srv, err := CreateUdpServer(drv.ctx, rsrv.Node, rsrv.Port)
		if err != nil {
			return nil, err
		}
		drv.reserved = append(drv.reserved, srv)
		drv.ctx.EvtMgr.Schedule(srv, nil, startUdpServer, vrtime.SecondsToTime(startAt))
	}
	for _, flow := range scn.Traffic.Flows() {
		uc := CreateUdpClient(drv.ctx, flow)
		drv.clients[flow.ID] = uc
		drv.ctx.EvtMgr.Schedule(uc, nil, startUdpClient, vrtime.SecondsToTime(startAt))
	}
	return drv, nil
}

// Run advances the event engine to the scenario's stop time, writes the
// configured artifacts, releases the taps, and reports what moved
func (drv *SimulationDriver) Run() (*RunReport, error) {
	stop := drv.scn.Prms.SimTime
	drv.ctx.EvtMgr.Run(stop)

	rpt := new(RunReport)
	rpt.ExpName = drv.ctx.TraceMgr.ExpName
	rpt.StopAt = stop
	rpt.LastEvent = drv.ctx.EvtMgr.CurrentSeconds()

	window := stop - drv.scn.Traffic.StartAt()
	for _, flow := range drv.scn.Traffic.Flows() {
		srv := drv.servers[flow.ID]
		uc := drv.clients[flow.ID]
		st := FlowStat{
			FlowID:    flow.ID,
			Name:      flow.Name,
			Dir:       flow.Dir.String(),
			Sent:      uc.Sent(),
			Received:  srv.Received(),
			Bytes:     srv.Bytes(),
			MeanDelay: srv.MeanDelay(),
		}
		if window > 0.0 {
			st.Throughput = float64(8*srv.Bytes()) / window
		}
		rpt.Sent += st.Sent
		rpt.Received += st.Received
		rpt.Stats = append(rpt.Stats, st)
	}
	for _, node := range drv.scn.Nodes.AllNodes() {
		rpt.Drops += node.drops
	}

	if drv.cfg.ScenarioFile != "" {
		sd := drv.scn.Transform()
		err := sd.WriteToFile(drv.cfg.ScenarioFile)
		if err != nil {
			return nil, err
		}
	}
	if drv.anim != nil {
		drv.anim.WriteToFile(drv.cfg.AnimFile)
	}
	if drv.cfg.TraceFile != "" {
		drv.ctx.TraceMgr.WriteToFile(drv.cfg.TraceFile)
	}
	drv.release()

	return rpt, nil
}

// release detaches everything holding file handles
func (drv *SimulationDriver) release() {
	closePcapTaps(drv.scn.Nodes)
}
