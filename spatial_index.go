package main

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// nodeTolerance is the half side of the box each graph node occupies in
// the R-tree. It only needs to be well below one cell.
const nodeTolerance = 1e-6

// snapCandidates is how many nearest entries are re-ranked exactly.
const snapCandidates = 4

// nodeEntry wraps a cell for R-tree storage
type nodeEntry struct {
	cell Cell
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (n *nodeEntry) Bounds() rtreego.Rect {
	return n.bbox
}

// nodeIndex is the per-floor spatial index used for snapping.
type nodeIndex struct {
	cells []Cell
	tree  *rtreego.Rtree
}

func (idx *nodeIndex) build() {
	objs := make([]rtreego.Spatial, 0, len(idx.cells))
	for _, c := range idx.cells {
		p := rtreego.Point{float64(c.Row), float64(c.Col)}
		objs = append(objs, &nodeEntry{cell: c, bbox: p.ToRect(nodeTolerance)})
	}
	idx.tree = rtreego.NewTree(2, 25, 50, objs...)
}

// nearest returns the cell closest to the fractional (row, col) point by
// squared Euclidean distance. Ties among the re-ranked candidates go to
// the smaller cell.
func (idx *nodeIndex) nearest(row, col float64) (Cell, bool) {
	if idx == nil || idx.tree == nil || idx.tree.Size() == 0 {
		return Cell{}, false
	}

	var (
		best     Cell
		bestDist float64
		found    bool
	)
	for _, item := range idx.tree.NearestNeighbors(snapCandidates, rtreego.Point{row, col}) {
		entry, ok := item.(*nodeEntry)
		if !ok || entry == nil {
			continue
		}
		d := squaredPlanarDistance(entry.cell, row, col)
		if !found || d < bestDist || (d == bestDist && entry.cell.Less(best)) {
			best, bestDist, found = entry.cell, d, true
		}
	}
	return best, found
}

// roomEntry wraps a room footprint for R-tree storage
type roomEntry struct {
	order int
	room  FloorRoom
	bbox  rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (r *roomEntry) Bounds() rtreego.Rect {
	return r.bbox
}

// RoomIndex answers "which room is this metric position in".
type RoomIndex struct {
	floors map[int]*rtreego.Rtree
}

// NewRoomIndex indexes every room footprint of the building, one tree per
// floor. Rooms with a zero width or depth have no area and are skipped.
func NewRoomIndex(b *Building) *RoomIndex {
	ri := &RoomIndex{floors: make(map[int]*rtreego.Rtree, len(b.Floors))}

	for i, fr := range b.Rooms() {
		footprint := fr.Room.Footprint()
		bbox, err := rtreego.NewRect(
			rtreego.Point{footprint.Min[0], footprint.Min[1]},
			[]float64{footprint.Max[0] - footprint.Min[0], footprint.Max[1] - footprint.Min[1]},
		)
		if err != nil {
			continue
		}
		tree, ok := ri.floors[fr.Floor]
		if !ok {
			tree = rtreego.NewTree(2, 25, 50)
			ri.floors[fr.Floor] = tree
		}
		tree.Insert(&roomEntry{order: i, room: fr, bbox: bbox})
	}

	return ri
}

// RoomAt returns the room on floor containing the metric (x, z) position.
// When footprints overlap, the first room in building order wins.
func (ri *RoomIndex) RoomAt(floor int, x, z float64) (Room, bool) {
	tree, ok := ri.floors[floor]
	if !ok {
		return Room{}, false
	}

	results := tree.SearchIntersect(rtreego.Point{x, z}.ToRect(nodeTolerance))
	var best *roomEntry
	for _, item := range results {
		entry := item.(*roomEntry)
		if !entry.room.Room.Footprint().Contains(orb.Point{x, z}) {
			continue
		}
		if best == nil || entry.order < best.order {
			best = entry
		}
	}
	if best == nil {
		return Room{}, false
	}
	return best.room.Room, true
}
