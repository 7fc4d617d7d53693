package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openGrid(rows, cols int) []string {
	grid := make([]string, rows)
	for i := range grid {
		line := make([]byte, cols)
		for j := range line {
			line[j] = '.'
		}
		grid[i] = string(line)
	}
	return grid
}

// assertValidPath checks contiguity, endpoints and hazard safety.
func assertValidPath(t *testing.T, g *NavGraph, path []Cell, start, goal Cell, hazards []Cell) {
	t.Helper()
	require.NotEmpty(t, path)
	assert.Equal(t, start, path[0])
	assert.Equal(t, goal, path[len(path)-1])
	for i := 1; i < len(path); i++ {
		assert.Contains(t, g.Neighbors(path[i-1]), path[i], "step %d: %v -> %v is not an edge", i, path[i-1], path[i])
	}
	for i, c := range path {
		if i == 0 {
			continue // the start is not checked against hazards
		}
		assert.True(t, IsSafe(c, hazards, DefaultHazardRadius), "path cell %v is within hazard radius", c)
	}
}

func TestFindSafePath_OpenGrid(t *testing.T) {
	b := testBuilding(t, openGrid(3, 3))
	g := BuildNavGraph(b)

	res, err := FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 2, 2}, nil)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.False(t, res.StartSnapped)
	assert.False(t, res.GoalSnapped)

	assert.Len(t, res.Path, 5, "Manhattan-optimal path has 4 edges")
	assertValidPath(t, g, res.Path, Cell{0, 0, 0}, Cell{0, 2, 2}, nil)

	// deterministic tie-breaking by cell order
	want := []Cell{{0, 0, 0}, {0, 0, 1}, {0, 0, 2}, {0, 1, 2}, {0, 2, 2}}
	if diff := cmp.Diff(want, res.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestFindSafePath_HazardCoveringGrid(t *testing.T) {
	b := testBuilding(t, openGrid(3, 3))
	g := BuildNavGraph(b)

	// every cell of a 3x3 grid is within distance 2 of the centre
	res, err := FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 2, 2}, []Cell{{0, 1, 1}})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Path)
	assert.NotNil(t, res.Path)
}

func TestFindSafePath_HazardForcesDetour(t *testing.T) {
	b := testBuilding(t, []string{
		".....",
		".###.",
		".###.",
		".###.",
		".....",
	})
	g := BuildNavGraph(b)
	start, goal := Cell{0, 2, 0}, Cell{0, 2, 4}
	hazards := []Cell{{0, 0, 2}}

	res, err := FindSafePath(g, b.Bounds, start, goal, hazards)
	require.NoError(t, err)
	require.True(t, res.Found)
	assertValidPath(t, g, res.Path, start, goal, hazards)
	assert.Len(t, res.Path, 9)

	for _, c := range res.Path {
		assert.NotEqual(t, 0, c.Row, "top corridor is inside the hazard radius")
	}
}

func TestFindSafePath_StartEqualsGoal(t *testing.T) {
	b := testBuilding(t, openGrid(5, 5))
	g := BuildNavGraph(b)

	res, err := FindSafePath(g, b.Bounds, Cell{0, 2, 2}, Cell{0, 2, 2}, []Cell{{0, 4, 4}})
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, []Cell{{0, 2, 2}}, res.Path)
	assert.Empty(t, CompileInstructions(res.Path, DefaultGridScale))
}

func TestFindSafePath_UnsafeGoal(t *testing.T) {
	b := testBuilding(t, openGrid(5, 5))
	g := BuildNavGraph(b)

	res, err := FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 4, 4}, []Cell{{0, 4, 3}})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Path)
}

func TestFindSafePath_GoalEnclosed(t *testing.T) {
	b := testBuilding(t, []string{
		"......",
		"......",
		"......",
		"...#..",
		"..#.#.",
		"...#..",
	})
	g := BuildNavGraph(b)

	// (4,3) is walled in on all four sides
	res, err := FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 4, 3}, nil)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Path)
	assert.Positive(t, res.Expanded)
}

func TestFindSafePath_CrossFloor(t *testing.T) {
	b := testBuilding(t,
		[]string{
			"...",
			"...",
			"..E",
		},
		[]string{
			"...",
			"...",
			"..E",
		},
	)
	g := BuildNavGraph(b)
	start, goal := Cell{0, 0, 0}, Cell{1, 0, 0}

	res, err := FindSafePath(g, b.Bounds, start, goal, nil)
	require.NoError(t, err)
	require.True(t, res.Found)
	assertValidPath(t, g, res.Path, start, goal, nil)
	assert.Len(t, res.Path, 10)

	transitions := 0
	for i := 1; i < len(res.Path); i++ {
		if res.Path[i].Floor != res.Path[i-1].Floor {
			transitions++
			assert.Equal(t, Cell{0, 2, 2}, res.Path[i-1])
			assert.Equal(t, Cell{1, 2, 2}, res.Path[i])
		}
	}
	assert.Equal(t, 1, transitions)
}

func TestFindSafePath_HazardOnOtherFloor(t *testing.T) {
	b := testBuilding(t,
		[]string{"....E"},
		[]string{"....E"},
	)
	g := BuildNavGraph(b)

	// 3D distance: a fire one floor up at column 2 covers columns 1-3 below it
	res, err := FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 0, 4}, []Cell{{1, 0, 2}})
	require.NoError(t, err)
	assert.False(t, res.Found)

	res, err = FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 0, 1}, []Cell{{1, 0, 4}})
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Len(t, res.Path, 2)
}

func TestFindSafePath_Options(t *testing.T) {
	b := testBuilding(t, openGrid(1, 8))
	g := BuildNavGraph(b)
	hazards := []Cell{{0, 0, 7}}

	res, err := FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 0, 4}, hazards)
	require.NoError(t, err)
	assert.True(t, res.Found)

	res, err = FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 0, 4}, hazards, WithHazardRadius(3))
	require.NoError(t, err)
	assert.False(t, res.Found, "radius 3 makes the goal unsafe")

	res, err = FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 0, 4}, nil, WithFloorPenalty(0))
	require.NoError(t, err)
	assert.Len(t, res.Path, 5)
}

func TestFindSafePath_Snapping(t *testing.T) {
	b := testBuilding(t, []string{
		"#####",
		"#...#",
		"#...#",
		"#####",
	}, []string{
		"#####",
	})
	g := BuildNavGraph(b)

	res, err := FindSafePath(g, b.Bounds, Cell{0, 0, 0}, Cell{0, 40, 40}, nil)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.True(t, res.StartSnapped)
	assert.True(t, res.GoalSnapped)
	assert.Equal(t, Cell{0, 1, 1}, res.Start)
	assert.Equal(t, Cell{0, 2, 3}, res.Goal)

	_, err = FindSafePath(g, b.Bounds, Cell{1, 0, 0}, Cell{0, 1, 1}, nil)
	assert.ErrorIs(t, err, ErrNoReachableNode, "floor 1 has no walkable cell")

	_, err = FindSafePath(g, b.Bounds, Cell{0, 1, 1}, Cell{9, 1, 1}, nil)
	assert.ErrorIs(t, err, ErrNoReachableNode, "floor 9 does not exist")
}

func TestSnap(t *testing.T) {
	b := testBuilding(t, []string{
		"..#",
		"#..",
	}, []string{
		"...",
	})
	g := BuildNavGraph(b)

	t.Run("graph nodes are unchanged", func(t *testing.T) {
		for _, node := range g.Nodes() {
			got, err := Snap(g, b.Bounds, node)
			require.NoError(t, err)
			assert.Equal(t, node, got)
		}
	})

	t.Run("walls snap to the same floor", func(t *testing.T) {
		got, err := Snap(g, b.Bounds, Cell{0, 0, 2})
		require.NoError(t, err)
		assert.Equal(t, 0, got.Floor)
		assert.Contains(t, []Cell{{0, 0, 1}, {0, 1, 2}}, got)
	})

	t.Run("far away", func(t *testing.T) {
		got, err := Snap(g, b.Bounds, Cell{1, -20, 1})
		require.NoError(t, err)
		assert.Equal(t, Cell{1, 0, 1}, got)
	})
}

func TestSnap_BoundsClampQuirk(t *testing.T) {
	b := loadFixture(t)
	g := BuildNavGraph(b)

	// Metric bounds [0,1] clamp the cell indices, so a far query lands near the origin.
	got, err := Snap(g, b.Bounds, Cell{1, 50, 50})
	require.NoError(t, err)
	assert.Equal(t, Cell{1, 1, 1}, got)
}

func TestIsSafe(t *testing.T) {
	hazards := []Cell{{0, 5, 5}}

	assert.False(t, IsSafe(Cell{0, 5, 5}, hazards, 2))
	assert.False(t, IsSafe(Cell{0, 6, 6}, hazards, 2))
	assert.False(t, IsSafe(Cell{1, 5, 6}, hazards, 2))
	assert.True(t, IsSafe(Cell{0, 7, 6}, hazards, 2))
	assert.True(t, IsSafe(Cell{3, 5, 5}, hazards, 2))
	assert.True(t, IsSafe(Cell{0, 0, 0}, nil, 2))
}

func TestFindSafePath_PropertyAllCellsSafe(t *testing.T) {
	b := loadFixture(t)
	g := BuildNavGraph(b)
	goal := Cell{2, 9, 9}

	hazardSets := [][]Cell{
		nil,
		{{1, 6, 3}},
		{{1, 0, 8}, {1, 7, 1}},
		{{2, 5, 5}},
		{{1, 9, 5}},
	}
	for _, start := range []Cell{{1, 0, 0}, {1, 4, 4}, {1, 7, 9}} {
		for _, hazards := range hazardSets {
			res, err := FindSafePath(g, b.Bounds, start, goal, hazards)
			require.NoError(t, err)
			if !res.Found {
				assert.Empty(t, res.Path)
				continue
			}
			assertValidPath(t, g, res.Path, start, goal, hazards)
		}
	}
}
