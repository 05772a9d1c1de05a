package dronesim

// attach.go binds user devices to base stations.  The policy is
// proximity.  Every device attaches to the cell of the nearest base
// station, measured from the positions assigned during placement.

import (
	"fmt"
)

// An AttachmentLink records one device's binding to a serving cell
type AttachmentLink struct {
	Ue       *Node
	Enb      *Node
	Cell     *RadioCell
	Distance float64
}

// An AttachmentPlan holds the complete set of device-to-cell bindings
// for a scenario, one per user device
type AttachmentPlan struct {
	links []*AttachmentLink
	byUe  map[int]*AttachmentLink
}

// BuildAttachments attaches every user device in the node set to the
// nearest cell.  A device the radio stack cannot attach fails the
// whole plan.
func BuildAttachments(ctx *SimulationContext, ns *NodeSet, rs *RadioStack) (*AttachmentPlan, error) {
	ap := new(AttachmentPlan)
	ap.links = []*AttachmentLink{}
	ap.byUe = make(map[int]*AttachmentLink)

	for _, ue := range ns.UserDevices {
		cell, err := rs.AttachNearest(ue)
		if err != nil {
			return nil, err
		}
		link := &AttachmentLink{
			Ue:       ue,
			Enb:      cell.enb,
			Cell:     cell,
			Distance: ue.Pos().Distance(cell.enb.Pos()),
		}
		ap.links = append(ap.links, link)
		ap.byUe[ue.id] = link
	}
	return ap, nil
}

// Links returns the attachment links in device order
func (ap *AttachmentPlan) Links() []*AttachmentLink {
	return ap.links
}

// ServingEnb reports which base station serves a device
func (ap *AttachmentPlan) ServingEnb(ue *Node) (*Node, error) {
	link, present := ap.byUe[ue.id]
	if !present {
		return nil, fmt.Errorf("device %s is not attached", ue.name)
	}
	return link.Enb, nil
}

// UsersOf lists the devices a base station's cell is serving
func (ap *AttachmentPlan) UsersOf(enb *Node) []*Node {
	users := []*Node{}
	for _, link := range ap.links {
		if link.Enb == enb {
			users = append(users, link.Ue)
		}
	}
	return users
}
