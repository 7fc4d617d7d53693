package main

import "fmt"

// DefaultGridScale is metres per grid cell.
const DefaultGridScale = 0.1

// Direction of a single instruction.
type Direction int

const (
	DirectionNone Direction = iota
	Forward                 // row increases
	Backward                // row decreases
	Right                   // column increases
	Left                    // column decreases
	Up                      // floor number increases
	Down                    // floor number decreases
)

var directionNames = [...]string{
	DirectionNone: "none",
	Forward:       "forward",
	Backward:      "backward",
	Right:         "right",
	Left:          "left",
	Up:            "up",
	Down:          "down",
}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// InstructionKind separates horizontal moves from floor changes.
type InstructionKind int

const (
	Move InstructionKind = iota
	FloorChange
)

// Instruction is one directive of a route.
type Instruction struct {
	Kind      InstructionKind
	Direction Direction
	Distance  float64 // metres, Move only
	Floor     int     // target floor, FloorChange only
}

func (in Instruction) String() string {
	if in.Kind == FloorChange {
		return fmt.Sprintf("Go %s to floor %d", in.Direction, in.Floor)
	}
	return fmt.Sprintf("Move %s %.1f meters", in.Direction, in.Distance)
}

// Instructions is an ordered route description.
type Instructions []Instruction

// Strings renders every instruction.
func (ins Instructions) Strings() []string {
	out := make([]string, len(ins))
	for i, in := range ins {
		out[i] = in.String()
	}
	return out
}

// stepDirection classifies one step between consecutive path cells.
// The graph has no diagonal edges, so exactly one of floor, row or column changes.
func stepDirection(prev, curr Cell) Direction {
	switch {
	case curr.Floor > prev.Floor:
		return Up
	case curr.Floor < prev.Floor:
		return Down
	case curr.Row > prev.Row:
		return Forward
	case curr.Row < prev.Row:
		return Backward
	case curr.Col > prev.Col:
		return Right
	case curr.Col < prev.Col:
		return Left
	}
	return DirectionNone
}

// CompileInstructions collapses a path into run-length encoded moves and
// floor changes. Each move covers runLength * gridScale metres.
func CompileInstructions(path []Cell, gridScale float64) Instructions {
	instructions := Instructions{}
	current := DirectionNone
	run := 0

	flush := func() {
		if current != DirectionNone {
			instructions = append(instructions, Instruction{
				Kind:      Move,
				Direction: current,
				Distance:  float64(run) * gridScale,
			})
		}
		current, run = DirectionNone, 0
	}

	for i := 1; i < len(path); i++ {
		prev, curr := path[i-1], path[i]
		dir := stepDirection(prev, curr)

		switch dir {
		case Up, Down:
			flush()
			instructions = append(instructions, Instruction{Kind: FloorChange, Direction: dir, Floor: curr.Floor})
		case DirectionNone:
			// repeated cell, nothing to say
		default:
			if dir != current {
				flush()
				current = dir
			}
			run++
		}
	}
	flush()

	return instructions
}

// TurnPoints keeps the first and last cells of the path plus every cell
// where the direction of travel or the floor changes.
func TurnPoints(path []Cell) []Cell {
	if len(path) <= 2 {
		out := make([]Cell, len(path))
		copy(out, path)
		return out
	}

	points := []Cell{path[0]}
	for i := 1; i < len(path)-1; i++ {
		in := stepDirection(path[i-1], path[i])
		out := stepDirection(path[i], path[i+1])
		if in != out || in == Up || in == Down {
			points = append(points, path[i])
		}
	}
	return append(points, path[len(path)-1])
}
