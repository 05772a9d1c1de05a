package dronesim

// params.go holds the run parameters offered on the command line and
// the defaults they carry into the configuration store

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
)

// placement distances are fixed in this version, not exposed as flags
const (
	dfltMinDistance = 10.0
	dfltMaxDistance = 150.0
)

// ScenarioParams holds every knob a run accepts.  All fields carry
// defaults, so a zero-argument invocation describes a complete scenario.
type ScenarioParams struct {
	NumEnb uint // number of base stations
	NumUe  uint // number of user devices

	SimTime             float64 // run stop time, in seconds
	InterPacketInterval float64 // client send spacing, in microseconds

	HarqEnabled  bool
	RlcAmEnabled bool

	// radial placement range for user devices, in meters
	MinDistance float64
	MaxDistance float64

	// master seed for the placement random stream
	Seed uint64
}

// DefaultScenarioParams returns the parameter set a run uses when
// nothing is overridden
func DefaultScenarioParams() ScenarioParams {
	return ScenarioParams{
		NumEnb:              1,
		NumUe:               1,
		SimTime:             2.0,
		InterPacketInterval: 100.0,
		HarqEnabled:         true,
		RlcAmEnabled:        false,
		MinDistance:         dfltMinDistance,
		MaxDistance:         dfltMaxDistance,
		Seed:                1,
	}
}

// AddFlags binds the exposed parameters to the offered flag set.
// The placement distances stay fixed constants.
func (prms *ScenarioParams) AddFlags(fs *flag.FlagSet) {
	fs.UintVar(&prms.NumEnb, "numEnb", prms.NumEnb, "number of base stations")
	fs.UintVar(&prms.NumUe, "numUe", prms.NumUe, "number of user devices")
	fs.Float64Var(&prms.SimTime, "simTime", prms.SimTime, "total duration of the simulation, in seconds")
	fs.Float64Var(&prms.InterPacketInterval, "interPacketInterval", prms.InterPacketInterval, "inter-packet interval, in microseconds")
	fs.BoolVar(&prms.HarqEnabled, "harq", prms.HarqEnabled, "enable hybrid ARQ in the radio stack")
	fs.BoolVar(&prms.RlcAmEnabled, "rlcAm", prms.RlcAmEnabled, "use RLC acknowledged mode")
	fs.Uint64Var(&prms.Seed, "seed", prms.Seed, "master seed for the placement random stream")
}

// Validate checks the parameter set before anything is built.  All
// violations are gathered and reported together.
func (prms ScenarioParams) Validate() error {
	var errs []error

	if prms.NumEnb < 1 {
		errs = append(errs, errors.New("numEnb must be at least 1"))
	}
	if prms.NumUe < 1 {
		errs = append(errs, errors.New("numUe must be at least 1"))
	}
	if !(prms.SimTime > 0.0) {
		errs = append(errs, errors.New("simTime must be positive"))
	}
	if !(prms.InterPacketInterval > 0.0) {
		errs = append(errs, errors.New("interPacketInterval must be positive"))
	}
	if !(prms.MinDistance > 0.0) || !(prms.MaxDistance > 0.0) {
		errs = append(errs, errors.New("placement distances must be positive"))
	}
	if prms.MinDistance >= prms.MaxDistance {
		errs = append(errs, fmt.Errorf("placement range is degenerate, minDistance %v is not less than maxDistance %v",
			prms.MinDistance, prms.MaxDistance))
	}

	return ReportErrs(errs)
}

// IntervalSeconds converts the microsecond inter-packet interval into
// the seconds the event clock runs on
func (prms ScenarioParams) IntervalSeconds() float64 {
	return prms.InterPacketInterval * 1e-6
}

// ConfigureDefaults loads the configuration store with the default
// parameters every collaborator constructor reads.  Entries overwrite,
// so applying the same parameter set repeatedly is harmless.
func (prms ScenarioParams) ConfigureDefaults(cfg *CfgStore) {
	cfg.SetDefault("radio.harqEnabled", strconv.FormatBool(prms.HarqEnabled))
	cfg.SetDefault("radio.sched.harqEnabled", strconv.FormatBool(prms.HarqEnabled))
	cfg.SetDefault("radio.rlcAmEnabled", strconv.FormatBool(prms.RlcAmEnabled))
	cfg.SetDefault("rlc.am.statusTimer", "100e-6")
	cfg.SetDefault("rlc.umLowLat.statusTimer", "100e-6")
	cfg.SetDefault("radio.scheduler", "flexTti")
	cfg.SetDefault("radio.bandwidth", "1e9")
	cfg.SetDefault("radio.latency", "1e-3")
	cfg.SetDefault("radio.grants", "8")
	cfg.SetDefault("radio.timeslice", "100e-6")

	cfg.SetDefault("wired.bandwidth", "100e9")
	cfg.SetDefault("wired.delay", "0.010")
	cfg.SetDefault("wired.mtu", "1500")

	cfg.SetDefault("addr.wiredBase", "1.0.0.0")
	cfg.SetDefault("addr.wiredMask", "255.0.0.0")
	cfg.SetDefault("addr.radioBase", "7.0.0.0")
	cfg.SetDefault("addr.radioMask", "255.0.0.0")

	cfg.SetDefault("app.startOffset", "0.1")
	cfg.SetDefault("app.pcktLen", "1024")
	cfg.SetDefault("app.maxPckts", "1000000")

	cfg.SetDefault("traffic.dlPort", "1234")
	cfg.SetDefault("traffic.ulPortBase", "2000")
	cfg.SetDefault("traffic.otherPortBase", "3000")
}
