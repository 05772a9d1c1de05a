package dronesim

// routes.go provides functions to discover and check paths through an
// assembled scenario topology

import (
	"errors"
	"fmt"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"math"
	"strconv"
	"strings"
)

// The general approach we use is to convert the scenario's representation of
// the topology into the data structures used by a graph package that has
// built-in path discovery algorithms.  Weighting each edge by 1, a shortest
// path minimizes the number of hops, which is sort of what local routing
// like OSPF does.
//   The scenario representation holds devices (gateway, remote host, base
// station, user device), with a link from devA to devB being represented if
// there is a direct wired or radio connection between them.
//
//   The Dijkstra algorithm we call computes a tree of shortest paths from a
// named node, so then if we want the shortest path from src to dst, we
// either compute such a tree rooted in src, or look up from a cached version
// of an already computed tree the sequence of nodes between src and dst,
// inclusive.  Failing that we look for a known path from dst to src, which
// will by symmetry be the reversed path of what we want.

// a pathFinder owns the graph representation of one scenario topology and
// the shortest path trees computed over it
type pathFinder struct {
	// gNodes[i] refers to the scenario device with id i
	gNodes map[int]simple.Node

	// cachedSP saves the result of computing shortest-path trees.
	// The key is the device id of the tree root.
	cachedSP map[int]path.Shortest

	// connGraph is the graph/path representation of the scenario topology
	connGraph graph.Graph
}

// createPathFinder is a constructor
func createPathFinder() *pathFinder {
	pf := new(pathFinder)
	pf.gNodes = make(map[int]simple.Node)
	pf.cachedSP = make(map[int]path.Shortest)
	return pf
}

// buildConnGraph builds a graph.Graph data structure from a representation
// of a device id and a list of device ids it connects to
func (pf *pathFinder) buildConnGraph(edges map[int][]int) graph.Graph {
	connGraph := simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	for nodeID := range edges {
		_, present := pf.gNodes[nodeID]
		if present {
			continue
		}
		pf.gNodes[nodeID] = simple.Node(nodeID)
	}

	// transform the expression of edges in the input list to edges in the
	// graph module representation
	for nodeID, edgeList := range edges {
		// for every neighbor in that list
		for _, nbrID := range edgeList {
			// represent the edge (with weight 1) in the form that the graph module represents it
			weightedEdge := simple.WeightedEdge{F: pf.gNodes[nodeID], T: pf.gNodes[nbrID], W: 1.0}
			connGraph.SetWeightedEdge(weightedEdge)
		}
	}
	pf.connGraph = connGraph

	return connGraph
}

// getSPTree returns the shortest path tree rooted in input argument 'from'.
// If the tree is found in the cache it is returned, if not it is computed,
// saved, and returned.
func (pf *pathFinder) getSPTree(from int) path.Shortest {
	// look for existence of tree already
	spTree, present := pf.cachedSP[from]
	if present {
		// yes, we're done
		return spTree
	}

	// let graph/path.DijkstraFrom compute the tree. The first argument
	// is the root of the tree, the second is the graph
	spTree = path.DijkstraFrom(pf.gNodes[from], pf.connGraph)

	// save (using the scenario identity for the node) and return
	pf.cachedSP[from] = spTree

	return spTree
}

// convertNodeSeq extracts the scenario device ids from a sequence of graph
// nodes (e.g. like a path) and returns that list
func convertNodeSeq(nsQ []graph.Node) []int {
	rtn := []int{}
	for _, node := range nsQ {
		nodeID, _ := strconv.Atoi(fmt.Sprintf("%d", node))
		rtn = append(rtn, nodeID)
	}

	return rtn
}

// routeFrom returns the shortest path (as a sequence of device identifiers)
// from the named source to the named destination, through the provided
// topology (a map from device id to the ids it connects to)
func (pf *pathFinder) routeFrom(srcID int, edges map[int][]int, dstID int) []int {
	// make sure we've built the path/graph representation
	if pf.connGraph == nil {
		pf.buildConnGraph(edges)
	}

	// nodeSeq holds the desired path expressed as a sequence of path/graph nodes
	var nodeSeq []graph.Node

	// route holds the desired path expressed as a sequence of device ids,
	// ultimately what routeFrom returns
	var route []int

	// if we have already an spTree rooted in srcID we can use it
	spTree, present := pf.cachedSP[srcID]

	if present {
		// get the path through the tree to the node with label dstID
		nodeSeq, _ = spTree.To(int64(dstID))

		// convert the sequence of graph/path nodes to a sequence of device ids
		route = convertNodeSeq(nodeSeq)
	} else {
		// it may be that we have already a shortest path tree that is rooted in
		// the destination.  If so, by symmetry the path is the same, just reversed.
		spTree, present = pf.cachedSP[dstID]
		if present {
			// get the path from the graph node with label dstID to the graph node with label srcID
			revNodeSeq, _ := spTree.To(int64(srcID))

			// convert that sequence of graph nodes to a sequence of device ids
			revRoute := convertNodeSeq(revNodeSeq)

			// these are reverse order, so turn them back around
			lenR := len(revRoute)
			for idx := 0; idx < lenR; idx++ {
				route = append(route, revRoute[lenR-idx-1])
			}
		} else {
			// we don't have a tree rooted in either srcID or dstID, so make a tree rooted in srcID
			spTree = pf.getSPTree(srcID)

			// get the path as a sequence of graph nodes, convert to a sequence of device id values
			nodeSeq, _ = spTree.To(int64(dstID))
			route = convertNodeSeq(nodeSeq)
		}
	}

	return route
}

// ShowRoute returns a string that lists the names of all the devices on a
// path, in the order they are visited
func ShowRoute(route []int, idToName map[int]string) string {
	pathString := make([]string, 0)
	for _, devID := range route {
		pathString = append(pathString, idToName[devID])
	}
	return strings.Join(pathString, ",")
}

// buildTopoGraph expresses the scenario topology as a map from device id to
// the ids of the devices it directly connects to.  Wired links contribute
// their two endpoints, the radio segment contributes an edge from each base
// station to the gateway and from each attached device to its serving base
// station.
func buildTopoGraph(ns *NodeSet, rs *RadioStack) map[int][]int {
	topoGraph := make(map[int][]int)
	for _, node := range ns.AllNodes() {
		topoGraph[node.id] = []int{}
	}

	if ns.Link != nil {
		connectIds(topoGraph, ns.Link.endpts[0].device.id, ns.Link.endpts[1].device.id)
	}

	for _, cell := range rs.cells {
		connectIds(topoGraph, cell.enb.id, rs.gwIntrfc.device.id)
	}

	for _, ue := range ns.UserDevices {
		cell := rs.servingCell(ue)
		if cell == nil {
			continue
		}
		connectIds(topoGraph, ue.id, cell.enb.id)
	}
	return topoGraph
}

// verifyReachability checks that a path exists between every pair of devices
// in the assembled scenario, reporting each pair for which none does
func verifyReachability(ns *NodeSet, rs *RadioStack) error {
	topoGraph := buildTopoGraph(ns, rs)
	pf := createPathFinder()

	nodes := ns.AllNodes()
	missing := false
	for idx, src := range nodes {
		for _, dst := range nodes[idx+1:] {
			route := pf.routeFrom(src.id, topoGraph, dst.id)
			if len(route) == 0 {
				fmt.Printf("missing paths from %s to %s\n", src.name, dst.name)
				missing = true
			}
		}
	}
	if missing {
		return errors.New("missing connectivity")
	}
	return nil
}
