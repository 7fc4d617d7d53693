package main

import (
	"container/heap"
	"fmt"
)

// Search defaults
const (
	DefaultHazardRadius = 2
	DefaultFloorPenalty = 10
)

// searchItem is a frontier entry of the A* search
type searchItem struct {
	cell     Cell
	cost     int // g at push time
	priority int // g + h
	index    int // index in the heap
}

// priorityQueue implements heap.Interface for the A* frontier.
// Equal priorities are ordered by cell so results are reproducible.
type priorityQueue []*searchItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].cell.Less(pq[j].cell)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*searchItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

// SearchOptions tunes the hazard-aware search.
type SearchOptions struct {
	// HazardRadius: a cell within this 3D Manhattan distance of a hazard is unsafe.
	HazardRadius int
	// FloorPenalty weights floor changes in the heuristic only.
	FloorPenalty int
}

// SearchOption modifies SearchOptions.
type SearchOption func(*SearchOptions)

// WithHazardRadius overrides the hazard exclusion radius.
func WithHazardRadius(radius int) SearchOption {
	return func(o *SearchOptions) { o.HazardRadius = radius }
}

// WithFloorPenalty overrides the heuristic floor-change weight.
func WithFloorPenalty(penalty int) SearchOption {
	return func(o *SearchOptions) { o.FloorPenalty = penalty }
}

// SearchResult is the outcome of FindSafePath.
type SearchResult struct {
	Path     []Cell
	Start    Cell // after snapping
	Goal     Cell // after snapping
	Found    bool
	Expanded int

	StartSnapped bool
	GoalSnapped  bool
}

// heuristic is the Manhattan distance with floor changes weighted by penalty.
func heuristic(a, b Cell, floorPenalty int) int {
	return absInt(a.Row-b.Row) + absInt(a.Col-b.Col) + absInt(a.Floor-b.Floor)*floorPenalty
}

// IsSafe reports whether c is farther than radius (3D Manhattan) from every hazard.
func IsSafe(c Cell, hazards []Cell, radius int) bool {
	for _, h := range hazards {
		if ManhattanDistance3D(c, h) <= radius {
			return false
		}
	}
	return true
}

// Snap returns c itself when it is a graph node, otherwise the nearest node
// on the same floor after clamping the query into the building bounds.
func Snap(g *NavGraph, bounds Bounds, c Cell) (Cell, error) {
	if g.Has(c) {
		return c, nil
	}
	row, col := bounds.ClampRowCol(float64(c.Row), float64(c.Col))
	nearest, ok := g.byFloor[c.Floor].nearest(row, col)
	if !ok {
		return Cell{}, fmt.Errorf("snap %v: %w", c, ErrNoReachableNode)
	}
	return nearest, nil
}

// FindSafePath runs A* from start to goal over g, never entering a cell
// within the hazard radius of any hazard. Start and goal are snapped onto
// the graph first. When the frontier empties the result has Found == false
// and an empty path; that is not an error.
func FindSafePath(g *NavGraph, bounds Bounds, start, goal Cell, hazards []Cell, opts ...SearchOption) (SearchResult, error) {
	options := SearchOptions{
		HazardRadius: DefaultHazardRadius,
		FloorPenalty: DefaultFloorPenalty,
	}
	for _, opt := range opts {
		opt(&options)
	}

	var (
		result SearchResult
		err    error
	)
	if result.Start, err = Snap(g, bounds, start); err != nil {
		return SearchResult{}, fmt.Errorf("start: %w", err)
	}
	if result.Goal, err = Snap(g, bounds, goal); err != nil {
		return SearchResult{}, fmt.Errorf("goal: %w", err)
	}
	result.StartSnapped = result.Start != start
	result.GoalSnapped = result.Goal != goal
	result.Path = []Cell{}

	startCell, goalCell := result.Start, result.Goal
	if !IsSafe(goalCell, hazards, options.HazardRadius) {
		return result, nil
	}

	openSet := &priorityQueue{}
	heap.Init(openSet)
	heap.Push(openSet, &searchItem{cell: startCell, cost: 0, priority: 0})

	cameFrom := make(map[Cell]Cell)
	costSoFar := map[Cell]int{startCell: 0}

	for openSet.Len() > 0 {
		current := heap.Pop(openSet).(*searchItem)
		if current.cost > costSoFar[current.cell] {
			continue // superseded by a cheaper push
		}
		result.Expanded++

		if current.cell == goalCell {
			result.Path = reconstructPath(cameFrom, startCell, goalCell)
			result.Found = true
			return result, nil
		}

		for _, next := range g.Neighbors(current.cell) {
			if !IsSafe(next, hazards, options.HazardRadius) {
				continue
			}
			newCost := costSoFar[current.cell] + 1
			if old, seen := costSoFar[next]; !seen || newCost < old {
				costSoFar[next] = newCost
				cameFrom[next] = current.cell
				heap.Push(openSet, &searchItem{
					cell:     next,
					cost:     newCost,
					priority: newCost + heuristic(goalCell, next, options.FloorPenalty),
				})
			}
		}
	}

	return result, nil
}

// reconstructPath walks predecessor links back from goal to start.
func reconstructPath(cameFrom map[Cell]Cell, start, goal Cell) []Cell {
	path := []Cell{goal}
	for current := goal; current != start; {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		path = append(path, prev)
		current = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
