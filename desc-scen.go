package dronesim

// desc-scen.go holds the structs, methods, and functions used to express
// an assembled scenario in serializable form, to write that form to file,
// and to read it back.  The runtime objects transform into description
// structs; the descriptions carry everything a reader needs to audit a
// run without holding the runtime objects themselves.

import (
	"encoding/json"
	"errors"
	"fmt"
	"gopkg.in/yaml.v3"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// A NodeDesc struct describes one scenario device, its role, where it
// was placed, and the addresses it owns
type NodeDesc struct {
	Name string   `json:"name" yaml:"name"`
	Role string   `json:"role" yaml:"role"`
	ID   int      `json:"id" yaml:"id"`
	LocX float64  `json:"locx" yaml:"locx"`
	LocY float64  `json:"locy" yaml:"locy"`
	LocZ float64  `json:"locz" yaml:"locz"`
	Addrs []string `json:"addrs" yaml:"addrs"`
}

// A LinkDesc struct describes one wired link and its transmission
// characteristics
type LinkDesc struct {
	EndptA    string  `json:"endpta" yaml:"endpta"`
	EndptB    string  `json:"endptb" yaml:"endptb"`
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`
	Delay     float64 `json:"delay" yaml:"delay"`
	MTU       int     `json:"mtu" yaml:"mtu"`
}

// A CellDesc struct describes one base station cell and the devices
// attached to it
type CellDesc struct {
	Name  string   `json:"name" yaml:"name"`
	Enb   string   `json:"enb" yaml:"enb"`
	Users []string `json:"users" yaml:"users"`
}

// A FlowDesc struct describes one planned flow, endpoint to endpoint,
// with the route its packets take through the topology
type FlowDesc struct {
	Name     string  `json:"name" yaml:"name"`
	Dir      string  `json:"dir" yaml:"dir"`
	Client   string  `json:"client" yaml:"client"`
	Server   string  `json:"server" yaml:"server"`
	SrcAddr  string  `json:"srcaddr" yaml:"srcaddr"`
	DstAddr  string  `json:"dstaddr" yaml:"dstaddr"`
	SrcPort  int     `json:"srcport" yaml:"srcport"`
	DstPort  int     `json:"dstport" yaml:"dstport"`
	Interval float64 `json:"interval" yaml:"interval"`
	PcktLen  int     `json:"pcktlen" yaml:"pcktlen"`
	MaxPckts int     `json:"maxpckts" yaml:"maxpckts"`
	Route    string  `json:"route" yaml:"route"`
}

// A ReservedDesc struct describes a bound port no planned flow feeds
type ReservedDesc struct {
	Node string `json:"node" yaml:"node"`
	Port int    `json:"port" yaml:"port"`
}

// A ScenarioDesc struct gives the complete description of an assembled
// scenario
type ScenarioDesc struct {
	Name     string         `json:"name" yaml:"name"`
	Nodes    []NodeDesc     `json:"nodes" yaml:"nodes"`
	Links    []LinkDesc     `json:"links" yaml:"links"`
	Cells    []CellDesc     `json:"cells" yaml:"cells"`
	Flows    []FlowDesc     `json:"flows" yaml:"flows"`
	Reserved []ReservedDesc `json:"reserved" yaml:"reserved"`
}

// Transform converts a runtime node into its description
func (node *Node) Transform() NodeDesc {
	addrs := []string{}
	for _, intrfc := range node.intrfcs {
		if intrfc.addr != nil {
			addrs = append(addrs, intrfc.addr.String())
		}
	}
	return NodeDesc{
		Name:  node.name,
		Role:  node.role.String(),
		ID:    node.id,
		LocX:  node.pos.X,
		LocY:  node.pos.Y,
		LocZ:  node.pos.Z,
		Addrs: addrs,
	}
}

// Transform converts a runtime wired link into its description
func (link *WiredLink) Transform() LinkDesc {
	return LinkDesc{
		EndptA:    link.endpts[0].device.name,
		EndptB:    link.endpts[1].device.name,
		Bandwidth: link.bandwidth,
		Delay:     link.delay,
		MTU:       link.mtu,
	}
}

// Transform converts a runtime cell into its description
func (cell *RadioCell) Transform() CellDesc {
	users := []string{}
	for _, ue := range cell.users {
		users = append(users, ue.name)
	}
	return CellDesc{Name: cell.name, Enb: cell.enb.name, Users: users}
}

// Transform converts an assembled scenario into its description,
// discovering the route each planned flow takes
func (scn *Scenario) Transform() ScenarioDesc {
	sd := ScenarioDesc{Name: scn.Ctx.TraceMgr.ExpName}

	idToName := make(map[int]string)
	for _, node := range scn.Nodes.AllNodes() {
		idToName[node.id] = node.name
		sd.Nodes = append(sd.Nodes, node.Transform())
	}

	if scn.Nodes.Link != nil {
		sd.Links = append(sd.Links, scn.Nodes.Link.Transform())
	}

	for _, cell := range scn.Radio.cells {
		sd.Cells = append(sd.Cells, cell.Transform())
	}

	topoGraph := buildTopoGraph(scn.Nodes, scn.Radio)
	pf := createPathFinder()
	for _, flow := range scn.Traffic.Flows() {
		route := pf.routeFrom(flow.Client.id, topoGraph, flow.Server.id)
		sd.Flows = append(sd.Flows, FlowDesc{
			Name:     flow.Name,
			Dir:      flow.Dir.String(),
			Client:   flow.Client.name,
			Server:   flow.Server.name,
			SrcAddr:  flow.SrcAddr.String(),
			DstAddr:  flow.DstAddr.String(),
			SrcPort:  int(flow.SrcPort),
			DstPort:  int(flow.DstPort),
			Interval: flow.Interval,
			PcktLen:  flow.PcktLen,
			MaxPckts: flow.MaxPckts,
			Route:    ShowRoute(route, idToName),
		})
	}

	for _, rsrv := range scn.Traffic.Reserved() {
		sd.Reserved = append(sd.Reserved, ReservedDesc{Node: rsrv.Node.name, Port: int(rsrv.Port)})
	}
	return sd
}

// WriteToFile serializes the ScenarioDesc and writes to the file whose name
// is given as an input argument.  Extension of the file name selects whether
// serialization is to json or to yaml format.
func (sd *ScenarioDesc) WriteToFile(filename string) error {
	// path extension of the output file determines whether we serialize to json or to yaml
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*sd)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*sd, "", "\t")
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()

	return werr
}

// ReadScenarioDesc deserializes a slice of bytes into a ScenarioDesc.  If
// the input arg of bytes is empty, the file whose name is given as an
// argument is read.  Error returned if any part of the process generates
// the error.
func ReadScenarioDesc(filename string, useYAML bool, dict []byte) (*ScenarioDesc, error) {
	var err error

	// read from the file only if the byte slice is empty
	// validate input file name
	if len(dict) == 0 {
		fileInfo, err := os.Stat(filename)
		if os.IsNotExist(err) || fileInfo.IsDir() {
			msg := fmt.Sprintf("scenario description %s does not exist or cannot be read", filename)
			fmt.Println(msg)

			return nil, errors.New(msg)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}

	// dict has slice of bytes to process
	example := ScenarioDesc{}

	// input flag identifies whether we deserialize encoded json or encoded yaml
	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}

	if err != nil {
		return nil, err
	}

	return &example, nil
}

// ReportErrs transforms a list of errors and transforms the non-nil ones
// into a single error with comma-separated report of all the constituent
// errors, and returns it
func ReportErrs(errs []error) error {
	err_msg := make([]string, 0)
	for _, err := range errs {
		if err != nil {
			err_msg = append(err_msg, err.Error())
		}
	}
	if len(err_msg) == 0 {
		return nil
	}

	return errors.New(strings.Join(err_msg, ","))
}

// CheckReadableFiles probes the file system to ensure that every
// one of the argument filenames exists and is readable
func CheckReadableFiles(names []string) (bool, error) {
	return CheckFiles(names, true)
}

// CheckOutputFiles probes the file system to ensure that every
// argument filename can be written
func CheckOutputFiles(names []string) (bool, error) {
	return CheckFiles(names, false)
}

// CheckFiles probes the file system for permitted access to all the
// argument filenames, optionally checking also for the existence
// of those files for the purposes of reading them
func CheckFiles(names []string, checkExistence bool) (bool, error) {
	// make sure that the directory of each named file exists
	errs := make([]error, 0)

	for _, name := range names {

		// skip non-existent files
		if len(name) == 0 || name == "/tmp" {
			continue
		}

		// split off the directory portion of the path
		directory, _ := filepath.Split(name)
		if len(directory) == 0 {
			continue
		}
		if _, err := os.Stat(directory); err != nil {
			errs = append(errs, err)
		}
	}

	// if required, check for the reachability and existence of each file
	if checkExistence {
		for _, name := range names {
			if _, err := os.Stat(name); err != nil {
				errs = append(errs, err)
			}
		}

		if len(errs) == 0 {
			return true, nil
		}

		rtnerr := ReportErrs(errs)
		return false, rtnerr
	}

	if len(errs) == 0 {
		return true, nil
	}
	return false, ReportErrs(errs)
}
