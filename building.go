package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/paulmach/orb"
)

// Grid symbols with a meaning for navigation. Any other symbol is walkable.
const (
	WallSymbol = '#'
	ExitSymbol = 'E'
)

// Room is the metric footprint of a room. It only feeds the bounding box
// and the room lookup, never the graph itself.
type Room struct {
	Name     string
	Position Vector3 // centre
	Size     Vector3 // width (x), height (y), depth (z)
	IsExit   bool
}

// Footprint returns the room's x/z extent.
func (r Room) Footprint() orb.Bound {
	return orb.Bound{
		Min: orb.Point{r.Position.X - r.Size.X/2, r.Position.Z - r.Size.Z/2},
		Max: orb.Point{r.Position.X + r.Size.X/2, r.Position.Z + r.Size.Z/2},
	}
}

// Floor is one storey: a character grid plus its rooms.
type Floor struct {
	Number int
	Grid   []string
	Rooms  []Room

	cells [][]rune
}

// Rows is the number of grid rows.
func (f *Floor) Rows() int { return len(f.cells) }

// At returns the symbol at (row, col) and whether the position is on the grid.
// Rows may have different lengths.
func (f *Floor) At(row, col int) (rune, bool) {
	if row < 0 || row >= len(f.cells) {
		return 0, false
	}
	line := f.cells[row]
	if col < 0 || col >= len(line) {
		return 0, false
	}
	return line[col], true
}

// Walkable reports whether (row, col) is on the grid and not a wall.
func (f *Floor) Walkable(row, col int) bool {
	sym, ok := f.At(row, col)
	return ok && sym != WallSymbol
}

// IsExit reports whether (row, col) holds an exit/stair marker.
func (f *Floor) IsExit(row, col int) bool {
	sym, ok := f.At(row, col)
	return ok && sym == ExitSymbol
}

// Bounds is the x/z bounding box of every room in the building, in metres.
// A building without rooms has an inverted box, see IsEmpty.
type Bounds struct {
	orb.Bound
}

func emptyBounds() Bounds {
	return Bounds{orb.Bound{
		Min: orb.Point{math.Inf(1), math.Inf(1)},
		Max: orb.Point{math.Inf(-1), math.Inf(-1)},
	}}
}

func (b Bounds) MinX() float64 { return b.Min[0] }
func (b Bounds) MaxX() float64 { return b.Max[0] }
func (b Bounds) MinZ() float64 { return b.Min[1] }
func (b Bounds) MaxZ() float64 { return b.Max[1] }

// ClampRowCol clamps a query row into [MinX, MaxX] and column into
// [MinZ, MaxZ]. The box is metric while row/col are cell indices; this
// mismatch is kept as-is for compatibility with existing building files.
// An empty box leaves the query untouched.
func (b Bounds) ClampRowCol(row, col float64) (float64, float64) {
	if b.IsEmpty() {
		return row, col
	}
	return clamp(row, b.MinX(), b.MaxX()), clamp(col, b.MinZ(), b.MaxZ())
}

// Building is the parsed floor grid model. It is read-only after loading.
type Building struct {
	Floors []Floor
	Bounds Bounds

	byNumber map[int]int
}

// Floor returns the floor with the given number.
func (b *Building) Floor(number int) (*Floor, bool) {
	idx, ok := b.byNumber[number]
	if !ok {
		return nil, false
	}
	return &b.Floors[idx], true
}

// Rooms returns every room of every floor, paired with its floor number.
func (b *Building) Rooms() []FloorRoom {
	var rooms []FloorRoom
	for _, floor := range b.Floors {
		for _, room := range floor.Rooms {
			rooms = append(rooms, FloorRoom{Floor: floor.Number, Room: room})
		}
	}
	return rooms
}

// FloorRoom is a room together with the floor it sits on.
type FloorRoom struct {
	Floor int
	Room  Room
}

// JSON structures for the building file
type buildingFile struct {
	Floors []floorFile `json:"Floors"`
}

type floorFile struct {
	FloorNumber *int       `json:"Floor_Number"`
	Map         []string   `json:"2D_Map"`
	Rooms       []roomFile `json:"Rooms"`
}

type roomFile struct {
	Name     string   `json:"Name"`
	Position *Vector3 `json:"Position"`
	Size     *Vector3 `json:"Size"`
	IsExit   bool     `json:"IsExit"`
}

// LoadBuilding reads and parses a building description file.
func LoadBuilding(path string) (*Building, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Field: path, Err: err}
	}
	return ParseBuilding(data)
}

// ParseBuilding parses a building description. Any missing field fails
// the whole load; a partial building is never returned.
func ParseBuilding(data []byte) (*Building, error) {
	var raw buildingFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Field: "json", Err: err}
	}
	if len(raw.Floors) == 0 {
		return nil, loadErrorf("Floors", "no floors")
	}

	b := &Building{
		Floors:   make([]Floor, 0, len(raw.Floors)),
		Bounds:   emptyBounds(),
		byNumber: make(map[int]int, len(raw.Floors)),
	}

	for i, rf := range raw.Floors {
		floor, err := parseFloor(i, rf)
		if err != nil {
			return nil, err
		}
		if _, dup := b.byNumber[floor.Number]; dup {
			return nil, loadErrorf(fmt.Sprintf("Floors[%d].Floor_Number", i), "duplicate floor %d", floor.Number)
		}
		b.byNumber[floor.Number] = len(b.Floors)
		b.Floors = append(b.Floors, floor)

		for _, room := range floor.Rooms {
			b.Bounds.Bound = b.Bounds.Union(room.Footprint())
		}
	}

	return b, nil
}

func parseFloor(i int, rf floorFile) (Floor, error) {
	prefix := fmt.Sprintf("Floors[%d]", i)
	if rf.FloorNumber == nil {
		return Floor{}, loadErrorf(prefix+".Floor_Number", "missing")
	}
	if rf.Map == nil {
		return Floor{}, loadErrorf(prefix+".2D_Map", "missing")
	}
	if len(rf.Map) == 0 {
		return Floor{}, loadErrorf(prefix+".2D_Map", "empty grid")
	}
	if rf.Rooms == nil {
		return Floor{}, loadErrorf(prefix+".Rooms", "missing")
	}

	floor := Floor{
		Number: *rf.FloorNumber,
		Grid:   rf.Map,
		Rooms:  make([]Room, 0, len(rf.Rooms)),
		cells:  make([][]rune, len(rf.Map)),
	}
	for r, line := range rf.Map {
		floor.cells[r] = []rune(line)
	}

	for j, room := range rf.Rooms {
		field := fmt.Sprintf("%s.Rooms[%d]", prefix, j)
		if room.Position == nil {
			return Floor{}, loadErrorf(field+".Position", "missing")
		}
		if room.Size == nil {
			return Floor{}, loadErrorf(field+".Size", "missing")
		}
		if room.Size.X < 0 || room.Size.Y < 0 || room.Size.Z < 0 {
			return Floor{}, loadErrorf(field+".Size", "negative dimension")
		}
		floor.Rooms = append(floor.Rooms, Room{
			Name:     room.Name,
			Position: *room.Position,
			Size:     *room.Size,
			IsExit:   room.IsExit,
		})
	}
	return floor, nil
}
