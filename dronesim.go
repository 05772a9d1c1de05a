package dronesim

// dronesim.go has code that builds the system data structures shared
// by every stage of scenario assembly

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/rngstream"
	"golang.org/x/exp/slices"
	"math"
	"strconv"
)

// A SimulationContext gathers the run-wide collaborators: the event
// manager that owns the virtual clock, the random number stream used
// for device placement, the trace manager, and the store of default
// configuration parameters.  One context describes one run; every
// assembly call receives it explicitly so that repeated builds do not
// accumulate hidden state.
type SimulationContext struct {
	EvtMgr   *evtm.EventManager
	Rng      *rngstream.RngStream
	TraceMgr *TraceManager
	Cfg      *CfgStore

	// counters for unique object and interface identifiers, scoped
	// to the context rather than the package
	numIds     int
	numIntrfcs int
}

// CreateSimulationContext is a constructor.  The seed fixes the master
// state of the random stream generator so that placement draws are
// reproducible, and the traceOn flag governs whether the trace manager
// gathers records during the run.
func CreateSimulationContext(expName string, seed uint64, traceOn bool) *SimulationContext {
	rngstream.SetRngStreamMasterSeed(seed)

	ctx := new(SimulationContext)
	ctx.EvtMgr = evtm.New()
	ctx.Rng = rngstream.New(expName)
	ctx.TraceMgr = CreateTraceManager(expName, traceOn)
	ctx.Cfg = CreateCfgStore()
	return ctx
}

// nxtID creates an id for objects created within this context that is unique among those objects
func (ctx *SimulationContext) nxtID() int {
	ctx.numIds += 1
	return ctx.numIds
}

// NullHandler exists to provide as a link for data fields that call for
// an event handler, but no event handler is actually needed
func NullHandler(evtMgr *evtm.EventManager, context any, msg any) any {
	return nil
}

// A valueStruct type holds three different types a value might have,
// typically only one of these is used, and which one is known by context
type valueStruct struct {
	intValue    int
	floatValue  float64
	stringValue string
	boolValue   bool
}

// stringToValueStruct takes a string (used in the run-time configuration phase)
// and determines whether it is an integer, floating point, boolean, or a string
func stringToValueStruct(v string) valueStruct {
	vs := valueStruct{intValue: 0, floatValue: 0.0, stringValue: "", boolValue: false}

	// try conversion to int
	ivalue, ierr := strconv.Atoi(v)
	if ierr == nil {
		vs.intValue = ivalue
		vs.floatValue = float64(ivalue)
		return vs
	}

	// failing that, try conversion to float
	fvalue, ferr := strconv.ParseFloat(v, 64)
	if ferr == nil {
		vs.floatValue = fvalue
		return vs
	}

	// see if true, True, false, False
	if v == "true" || v == "True" {
		vs.boolValue = true
		return vs
	}
	if v == "false" || v == "False" {
		return vs
	}

	vs.stringValue = v
	return vs
}

// A CfgStore holds default configuration parameters for the run,
// keyed by dotted parameter names.  Values are offered as strings and
// parsed once on entry; setting a key that is already present
// overwrites it, so applying the same defaults repeatedly leaves the
// store unchanged.
type CfgStore struct {
	values map[string]valueStruct
}

// CreateCfgStore is a constructor
func CreateCfgStore() *CfgStore {
	cs := new(CfgStore)
	cs.values = make(map[string]valueStruct)
	return cs
}

// SetDefault parses the offered value and stores it under the named parameter
func (cs *CfgStore) SetDefault(param, value string) {
	cs.values[param] = stringToValueStruct(value)
}

// Len reports the number of parameters held in the store
func (cs *CfgStore) Len() int {
	return len(cs.values)
}

// FloatValue returns the named parameter as a float, falling back to
// the offered default when the parameter was never set
func (cs *CfgStore) FloatValue(param string, dflt float64) float64 {
	vs, present := cs.values[param]
	if !present {
		return dflt
	}
	return vs.floatValue
}

// IntValue returns the named parameter as an integer
func (cs *CfgStore) IntValue(param string, dflt int) int {
	vs, present := cs.values[param]
	if !present {
		return dflt
	}
	return vs.intValue
}

// BoolValue returns the named parameter as a boolean
func (cs *CfgStore) BoolValue(param string, dflt bool) bool {
	vs, present := cs.values[param]
	if !present {
		return dflt
	}
	return vs.boolValue
}

// StringValue returns the named parameter as a string
func (cs *CfgStore) StringValue(param string, dflt string) string {
	vs, present := cs.values[param]
	if !present {
		return dflt
	}
	return vs.stringValue
}

// rdigits is the number of digits of precision kept when rounding
// floating point values that accumulate through repeated arithmetic
const rdigits uint = 15

// roundFloat limits the precision of a floating point value to keep
// accumulated round-off from perturbing event time comparisons
func roundFloat(val float64, precision uint) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// connectIds remembers the asserted communication linkage between
// devices with given id numbers through modification of the input map tg
func connectIds(tg map[int][]int, id1, id2 int) {
	// don't save connections to self if offered
	if id1 == id2 {
		return
	}

	// add id2 to id1's list of peers, if not already present
	if !slices.Contains(tg[id1], id2) {
		tg[id1] = append(tg[id1], id2)
	}

	// add id1 to id2's list of peers, if not already present
	if !slices.Contains(tg[id2], id1) {
		tg[id2] = append(tg[id2], id1)
	}
}
