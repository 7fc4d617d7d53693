package main

import (
	"encoding/json"
	"fmt"
	"math"
)

// Cell identifies a grid location: floor number, row and column.
// It is a comparable value and serves as the navigation graph node key.
type Cell struct {
	Floor int
	Row   int
	Col   int
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.Floor, c.Row, c.Col)
}

// Less orders cells by floor, then row, then column.
func (c Cell) Less(other Cell) bool {
	if c.Floor != other.Floor {
		return c.Floor < other.Floor
	}
	if c.Row != other.Row {
		return c.Row < other.Row
	}
	return c.Col < other.Col
}

// MarshalJSON encodes a cell as a [floor, row, col] triple.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{c.Floor, c.Row, c.Col})
}

// UnmarshalJSON accepts the [floor, row, col] triple produced by MarshalJSON.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var triple [3]int
	if err := json.Unmarshal(data, &triple); err != nil {
		return fmt.Errorf("cell must be [floor,row,col]: %w", err)
	}
	c.Floor, c.Row, c.Col = triple[0], triple[1], triple[2]
	return nil
}

// Vector3 is a metric position or size as written in the building file.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CellAt converts a metric (x, z) position on a floor into a cell.
// Rows follow z and columns follow x.
func CellAt(floor int, x, z, cellsPerMeter float64) Cell {
	return Cell{
		Floor: floor,
		Row:   int(math.Round(z * cellsPerMeter)),
		Col:   int(math.Round(x * cellsPerMeter)),
	}
}

// MetricPosition is the inverse of CellAt: the (x, z) centre of a cell in metres.
func (c Cell) MetricPosition(cellsPerMeter float64) (x, z float64) {
	return float64(c.Col) / cellsPerMeter, float64(c.Row) / cellsPerMeter
}

// ManhattanDistance3D is |Δfloor| + |Δrow| + |Δcol|.
func ManhattanDistance3D(a, b Cell) int {
	return absInt(a.Floor-b.Floor) + absInt(a.Row-b.Row) + absInt(a.Col-b.Col)
}

// squaredPlanarDistance is the squared Euclidean distance between a cell
// and a fractional (row, col) query point, ignoring the floor.
func squaredPlanarDistance(c Cell, row, col float64) float64 {
	dr := float64(c.Row) - row
	dc := float64(c.Col) - col
	return dr*dr + dc*dc
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
