package model

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// GridNode is a bus of the transmission network as supplied by the topology
// loader. Loads and capacities are expressed in MW.
type GridNode struct {
	ID          string  `json:"id" yaml:"id"`
	Lat         float64 `json:"lat" yaml:"lat"`
	Lon         float64 `json:"lon" yaml:"lon"`
	BaseLoadMW  float64 `json:"base_load_mw" yaml:"base_load_mw"`
	CapacityMW  float64 `json:"capacity_mw" yaml:"capacity_mw"`
	VoltageKV   float64 `json:"voltage_kv" yaml:"voltage_kv"`
	WeatherZone string  `json:"weather_zone" yaml:"weather_zone"`
}

// GridEdge connects two buses. Only the adjacency is used by the simulation;
// capacity and impedance are carried for presentation.
type GridEdge struct {
	FromID      string  `json:"from_id" yaml:"from_id"`
	ToID        string  `json:"to_id" yaml:"to_id"`
	CapacityMVA float64 `json:"capacity_mva" yaml:"capacity_mva"`
	Impedance   float64 `json:"impedance" yaml:"impedance"`
}

// ZoneWeather is the weather observed or forecast for a weather zone.
type ZoneWeather struct {
	TempF     float64 `json:"temp_f" yaml:"temp_f"`
	WindMph   float64 `json:"wind_mph" yaml:"wind_mph"`
	IsExtreme bool    `json:"is_extreme" yaml:"is_extreme"`
}

// NodeAttributes are the static attributes used to classify a failed node.
type NodeAttributes struct {
	VoltageKV   float64 `json:"voltage_kv"`
	CapacityMW  float64 `json:"capacity_mw"`
	BaseLoadMW  float64 `json:"base_load_mw"`
	WeatherZone string  `json:"weather_zone"`
}

// Snapshot is an immutable view of the grid. Node order is the order in which
// the loader supplied the nodes and is used for every deterministic scan.
type Snapshot struct {
	nodes []GridNode
	index map[string]int
	g     *simple.UndirectedGraph
	adj   [][]int
}

// NewSnapshot validates the topology and builds the adjacency graph.
// Duplicate edges collapse into one; self loops and edges referring to unknown
// nodes are rejected.
func NewSnapshot(nodes []GridNode, edges []GridEdge) (*Snapshot, error) {
	s := &Snapshot{
		nodes: make([]GridNode, len(nodes)),
		index: make(map[string]int, len(nodes)),
		g:     simple.NewUndirectedGraph(),
	}
	copy(s.nodes, nodes)
	for i, n := range s.nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %d: empty id", i)
		}
		if _, dup := s.index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node %s", n.ID)
		}
		s.index[n.ID] = i
		s.g.AddNode(simple.Node(int64(i)))
	}
	for _, e := range edges {
		from, ok := s.index[e.FromID]
		if !ok {
			return nil, fmt.Errorf("edge %s-%s: unknown node %s", e.FromID, e.ToID, e.FromID)
		}
		to, ok := s.index[e.ToID]
		if !ok {
			return nil, fmt.Errorf("edge %s-%s: unknown node %s", e.FromID, e.ToID, e.ToID)
		}
		if from == to {
			return nil, fmt.Errorf("edge %s-%s: self loop", e.FromID, e.ToID)
		}
		s.g.SetEdge(s.g.NewEdge(simple.Node(int64(from)), simple.Node(int64(to))))
	}
	s.adj = make([][]int, len(s.nodes))
	for i := range s.nodes {
		nbs := graph.NodesOf(s.g.From(int64(i)))
		list := make([]int, 0, len(nbs))
		for _, nb := range nbs {
			list = append(list, int(nb.ID()))
		}
		sort.Ints(list)
		s.adj[i] = list
	}
	return s, nil
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int { return len(s.nodes) }

// EdgeCount returns the number of distinct edges.
func (s *Snapshot) EdgeCount() int { return s.g.Edges().Len() }

// Nodes returns a copy of the nodes in snapshot order.
func (s *Snapshot) Nodes() []GridNode {
	out := make([]GridNode, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Node looks up a node by id.
func (s *Snapshot) Node(id string) (GridNode, bool) {
	i, ok := s.index[id]
	if !ok {
		return GridNode{}, false
	}
	return s.nodes[i], true
}

// Neighbors returns the ids of the nodes adjacent to id, in snapshot order.
func (s *Snapshot) Neighbors(id string) []string {
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(s.adj[i]))
	for _, j := range s.adj[i] {
		out = append(out, s.nodes[j].ID)
	}
	return out
}

// NeighborsAt returns the positions of the nodes adjacent to the node at
// position i. The returned slice is shared and must not be modified.
func (s *Snapshot) NeighborsAt(i int) []int { return s.adj[i] }

// HasEdge reports whether the two nodes are directly connected.
func (s *Snapshot) HasEdge(a, b string) bool {
	i, ok := s.index[a]
	if !ok {
		return false
	}
	j, ok := s.index[b]
	if !ok {
		return false
	}
	return s.g.HasEdgeBetween(int64(i), int64(j))
}

// Attributes returns the classification attributes of every node keyed by id.
func (s *Snapshot) Attributes() map[string]NodeAttributes {
	out := make(map[string]NodeAttributes, len(s.nodes))
	for _, n := range s.nodes {
		out[n.ID] = NodeAttributes{
			VoltageKV:   n.VoltageKV,
			CapacityMW:  n.CapacityMW,
			BaseLoadMW:  n.BaseLoadMW,
			WeatherZone: n.WeatherZone,
		}
	}
	return out
}
