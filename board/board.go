package board

import (
	"fmt"
	"math"
	"strings"
)

// Size is the number of cells along one side of the board.
const Size = 4

// CellCount is the number of cells on the board, which is also the number of pawns.
const CellCount = Size * Size

type Color string
type PawnSize string
type Cave string
type Shape string

const (
	White Color = "white"
	Black Color = "black"

	Small PawnSize = "small"
	Big   PawnSize = "big"

	Full  Cave = "full"
	Empty Cave = "empty"

	Circle Shape = "circle"
	Square Shape = "square"
)

// Pawn is one of the 16 tokens. Pawns never change once created; whether a
// pawn is placed is tracked by the board, not by the pawn.
type Pawn struct {
	ID    int      `json:"id"`
	Color Color    `json:"color"`
	Size  PawnSize `json:"size"`
	Cave  Cave     `json:"cave"`
	Shape Shape    `json:"shape"`
}

// Asset returns the asset name of the pawn, e.g. "big-circle-empty-black".
func (p Pawn) Asset() string {
	return fmt.Sprintf("%s-%s-%s-%s", p.Size, p.Shape, p.Cave, p.Color)
}

func (p Pawn) String() string {
	return fmt.Sprintf("pawn %d (%s)", p.ID, p.Asset())
}

// pawnAssets keeps the pawn ids stable across peers: the id of a pawn is its
// index in this list.
var pawnAssets = [CellCount]string{
	"big-circle-empty-black",
	"big-circle-full-black",
	"big-square-empty-black",
	"big-square-full-black",
	"big-circle-empty-white",
	"big-circle-full-white",
	"big-square-empty-white",
	"big-square-full-white",
	"small-square-full-black",
	"small-square-empty-black",
	"small-circle-full-black",
	"small-circle-empty-black",
	"small-square-full-white",
	"small-square-empty-white",
	"small-circle-full-white",
	"small-circle-empty-white",
}

// NewPawns creates the full set of pawns, one for every combination of the
// four attributes.
func NewPawns() [CellCount]Pawn {
	var pawns [CellCount]Pawn
	for i, asset := range pawnAssets {
		props := strings.Split(asset, "-")
		pawns[i] = Pawn{
			ID:    i,
			Size:  PawnSize(props[0]),
			Shape: Shape(props[1]),
			Cave:  Cave(props[2]),
			Color: Color(props[3]),
		}
	}
	return pawns
}

// ValidPawnID reports whether id addresses one of the pawns.
func ValidPawnID(id int) bool {
	return id >= 0 && id < CellCount
}

// ValidCellID reports whether id addresses one of the cells.
func ValidCellID(id int) bool {
	return id >= 0 && id < CellCount
}

// Row returns the row of the cell id.
func Row(cellID int) int { return cellID / Size }

// Col returns the column of the cell id.
func Col(cellID int) int { return cellID % Size }

// CellID returns the id of the cell at row, col.
func CellID(row, col int) int { return row*Size + col }

// CellConfig is the fully resolved descriptor of a cell, geometry included.
// It is what crosses the wire in a CellSelected event, so a receiver can
// place a pawn without any local layout state.
type CellConfig struct {
	ID     int     `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Layout is the position and size of the board surface.
type Layout struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultLayout matches the board asset drawn at (20, 50).
var DefaultLayout = Layout{X: 20, Y: 50, Width: 600, Height: 600}

// Cell resolves the geometry of a cell inside the layout.
func (l Layout) Cell(id int) CellConfig {
	marginW := l.Width * 0.1
	marginH := l.Height * 0.1

	cellW := math.Round((l.Width - marginW) / Size)
	cellH := math.Round((l.Height - marginH) / Size)

	return CellConfig{
		ID:     id,
		X:      l.X + float64(Col(id))*(cellW+4) + 24,
		Y:      l.Y + float64(Row(id))*(cellH+4) + 24,
		Width:  cellW,
		Height: cellH,
	}
}

// Cells resolves the geometry of every cell.
func (l Layout) Cells() [CellCount]CellConfig {
	var cells [CellCount]CellConfig
	for id := range cells {
		cells[id] = l.Cell(id)
	}
	return cells
}

// Board tracks which pawn sits on which cell.
type Board struct {
	cells [CellCount]*Pawn
}

// Place puts the pawn on the cell. It fails if the cell is taken or the pawn
// is already on the board.
func (b *Board) Place(cellID int, p *Pawn) error {
	if !ValidCellID(cellID) {
		return fmt.Errorf("cell %d out of range", cellID)
	}
	if p == nil {
		return fmt.Errorf("no pawn to place on cell %d", cellID)
	}
	if b.cells[cellID] != nil {
		return fmt.Errorf("cell %d already holds %s", cellID, b.cells[cellID])
	}
	if b.CellOf(p.ID) >= 0 {
		return fmt.Errorf("%s already placed on cell %d", p, b.CellOf(p.ID))
	}
	b.cells[cellID] = p
	return nil
}

// At returns the pawn on the cell, or nil.
func (b *Board) At(cellID int) *Pawn {
	if !ValidCellID(cellID) {
		return nil
	}
	return b.cells[cellID]
}

// Occupied reports whether the cell holds a pawn.
func (b *Board) Occupied(cellID int) bool {
	return b.At(cellID) != nil
}

// CellOf returns the cell holding the pawn, or -1.
func (b *Board) CellOf(pawnID int) int {
	for i, p := range b.cells {
		if p != nil && p.ID == pawnID {
			return i
		}
	}
	return -1
}

// Cells returns a copy of the occupancy.
func (b *Board) Cells() [CellCount]*Pawn {
	return b.cells
}

// Clear empties every cell.
func (b *Board) Clear() {
	b.cells = [CellCount]*Pawn{}
}

// Full reports whether every cell is taken.
func (b *Board) Full() bool {
	for _, p := range b.cells {
		if p == nil {
			return false
		}
	}
	return true
}

// String renders the board one row per line, "--" for empty cells.
func (b *Board) String() string {
	var sb strings.Builder
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if col > 0 {
				sb.WriteString(" ")
			}
			if p := b.cells[CellID(row, col)]; p != nil {
				sb.WriteString(fmt.Sprintf("%02d", p.ID))
			} else {
				sb.WriteString("--")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
