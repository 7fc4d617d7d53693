package main

import "fmt"

// ExitLocator returns the evacuation goal for a floor.
type ExitLocator func(floor int) (Cell, error)

// FixedExit always answers the same (row, col) on the asked floor.
func FixedExit(row, col int) ExitLocator {
	return func(floor int) (Cell, error) {
		return Cell{Floor: floor, Row: row, Col: col}, nil
	}
}

// MarkerExit answers the first exit marker of the floor in row-major order.
func MarkerExit(b *Building) ExitLocator {
	exits := make(map[int]Cell, len(b.Floors))
	for fi := range b.Floors {
		floor := &b.Floors[fi]
	scan:
		for i := 0; i < floor.Rows(); i++ {
			for j := range floor.cells[i] {
				if floor.IsExit(i, j) {
					exits[floor.Number] = Cell{Floor: floor.Number, Row: i, Col: j}
					break scan
				}
			}
		}
	}

	return func(floor int) (Cell, error) {
		exit, ok := exits[floor]
		if !ok {
			return Cell{}, fmt.Errorf("floor %d: %w", floor, ErrNoExit)
		}
		return exit, nil
	}
}
