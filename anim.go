package dronesim

// anim.go dumps the scenario layout in an animator-friendly XML form,
// one node element per device with its label and position

import (
	"encoding/xml"
	"os"
)

// role labels as the animator displays them
var roleLabels map[NodeRole]string = map[NodeRole]string{
	RoleGateway:     "PGW",
	RoleRemoteHost:  "RemoteHost",
	RoleBaseStation: "eNB",
	RoleUserDevice:  "UE",
}

// an animNode is one labeled, positioned device in the layout document
type animNode struct {
	XMLName xml.Name `xml:"node"`
	ID      int      `xml:"id,attr"`
	Descr   string   `xml:"descr,attr"`
	LocX    float64  `xml:"locX,attr"`
	LocY    float64  `xml:"locY,attr"`
}

// an animDoc is the complete layout document
type animDoc struct {
	XMLName xml.Name   `xml:"anim"`
	Ver     string     `xml:"ver,attr"`
	Nodes   []animNode `xml:"node"`
}

// An AnimRecorder accumulates the layout of a scenario for writing
type AnimRecorder struct {
	nodes []animNode
}

// CreateAnimRecorder is a constructor
func CreateAnimRecorder() *AnimRecorder {
	ar := new(AnimRecorder)
	ar.nodes = []animNode{}
	return ar
}

// LabelNodes records every device in the node set with its role label
// and its placed position.  Devices that were never placed sit at the
// origin.
func (ar *AnimRecorder) LabelNodes(ns *NodeSet) {
	for _, node := range ns.AllNodes() {
		entry := animNode{
			ID:    node.id,
			Descr: roleLabels[node.role],
			LocX:  node.pos.X,
			LocY:  node.pos.Y,
		}
		ar.nodes = append(ar.nodes, entry)
	}
}

// WriteToFile stores the layout document.  Like the trace writer it
// panics on marshaling or file system failure rather than limp on
// without the artifact.
func (ar *AnimRecorder) WriteToFile(filename string) bool {
	doc := animDoc{Ver: "netanim-3.108", Nodes: ar.nodes}
	bytes, merr := xml.MarshalIndent(doc, "", "  ")
	if merr != nil {
		panic(merr)
	}
	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	defer f.Close()
	_, werr := f.Write(bytes)
	if werr != nil {
		panic(werr)
	}
	return true
}
