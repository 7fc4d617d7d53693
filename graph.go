package main

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// NavGraph is the walkable-cell adjacency of a building.
// It is built once by BuildNavGraph and never mutated afterwards, so any
// number of searches may read it concurrently.
type NavGraph struct {
	adjacency map[Cell][]Cell
	nodes     []Cell // insertion order
	byFloor   map[int]*nodeIndex
}

// four-connected neighbourhood
var gridSteps = [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}

// BuildNavGraph derives the navigation graph from a building.
// Every non-wall cell becomes a node linked to its in-bounds non-wall grid
// neighbours. Exit markers are also linked to the exit marker at the same
// (row, col) on every other floor.
func BuildNavGraph(b *Building) *NavGraph {
	g := &NavGraph{
		adjacency: make(map[Cell][]Cell),
		byFloor:   make(map[int]*nodeIndex, len(b.Floors)),
	}

	for fi := range b.Floors {
		floor := &b.Floors[fi]
		for i := 0; i < floor.Rows(); i++ {
			for j := range floor.cells[i] {
				if !floor.Walkable(i, j) {
					continue
				}
				node := Cell{Floor: floor.Number, Row: i, Col: j}
				neighbors := make([]Cell, 0, 4)

				for _, step := range gridSteps {
					ni, nj := i+step[0], j+step[1]
					if floor.Walkable(ni, nj) {
						neighbors = append(neighbors, Cell{Floor: floor.Number, Row: ni, Col: nj})
					}
				}

				// Stairs: same position, other floors
				if floor.IsExit(i, j) {
					for oi := range b.Floors {
						other := &b.Floors[oi]
						if other.Number == floor.Number {
							continue
						}
						if other.IsExit(i, j) {
							neighbors = append(neighbors, Cell{Floor: other.Number, Row: i, Col: j})
						}
					}
				}

				g.adjacency[node] = neighbors
				g.nodes = append(g.nodes, node)
			}
		}
	}

	for _, node := range g.nodes {
		idx, ok := g.byFloor[node.Floor]
		if !ok {
			idx = &nodeIndex{}
			g.byFloor[node.Floor] = idx
		}
		idx.cells = append(idx.cells, node)
	}
	for _, idx := range g.byFloor {
		idx.build()
	}

	return g
}

// Has reports whether c is a node of the graph.
func (g *NavGraph) Has(c Cell) bool {
	_, ok := g.adjacency[c]
	return ok
}

// Neighbors returns the cells adjacent to c. The slice must not be modified.
func (g *NavGraph) Neighbors(c Cell) []Cell {
	return g.adjacency[c]
}

// Nodes returns every node in insertion order.
func (g *NavGraph) Nodes() []Cell {
	out := make([]Cell, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// NodesOnFloor returns the nodes of one floor in insertion order.
func (g *NavGraph) NodesOnFloor(floor int) []Cell {
	idx, ok := g.byFloor[floor]
	if !ok {
		return nil
	}
	out := make([]Cell, len(idx.cells))
	copy(out, idx.cells)
	return out
}

// Len is the number of nodes.
func (g *NavGraph) Len() int { return len(g.nodes) }

// EdgeCount is the number of directed edges.
func (g *NavGraph) EdgeCount() int {
	n := 0
	for _, neighbors := range g.adjacency {
		n += len(neighbors)
	}
	return n
}

// LineStrings returns the graph edges as GeoJSON line strings in metric
// x/z coordinates. Edges are symmetric, so each pair is emitted once.
// Cross-floor edges collapse to a single point and are tagged "stairs".
func (g *NavGraph) LineStrings(cellsPerMeter float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	seen := make(map[[2]Cell]bool)

	for _, node := range g.nodes {
		for _, neighbor := range g.adjacency[node] {
			key := [2]Cell{node, neighbor}
			if neighbor.Less(node) {
				key = [2]Cell{neighbor, node}
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			ax, az := node.MetricPosition(cellsPerMeter)
			bx, bz := neighbor.MetricPosition(cellsPerMeter)
			feature := geojson.NewFeature(orb.LineString{{ax, az}, {bx, bz}})
			feature.Properties["floor"] = node.Floor
			if node.Floor != neighbor.Floor {
				feature.Properties["kind"] = "stairs"
				feature.Properties["to_floor"] = neighbor.Floor
			} else {
				feature.Properties["kind"] = "corridor"
			}
			fc.Append(feature)
		}
	}

	return fc
}

// PathLineString renders a path as a GeoJSON feature collection with one
// line string per floor segment, built from the path's turn points.
func PathLineString(path []Cell, cellsPerMeter float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	var (
		line  orb.LineString
		floor int
	)
	flush := func() {
		if len(line) == 0 {
			return
		}
		feature := geojson.NewFeature(line)
		feature.Properties["floor"] = floor
		fc.Append(feature)
		line = nil
	}

	for _, c := range TurnPoints(path) {
		if len(line) > 0 && c.Floor != floor {
			flush()
		}
		floor = c.Floor
		x, z := c.MetricPosition(cellsPerMeter)
		line = append(line, orb.Point{x, z})
	}
	flush()

	return fc
}
