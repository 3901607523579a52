package game

import (
	"github.com/cameroncuttingedge/tictacfour/board"
)

type LineKind string

const (
	RowLine           LineKind = "row"
	ColumnLine        LineKind = "column"
	PrimaryDiagonal   LineKind = "primary-diagonal"
	SecondaryDiagonal LineKind = "secondary-diagonal"
)

// Line is a winning line: its cells and the pawns on them, in cell order.
type Line struct {
	Kind  LineKind
	Cells [board.Size]int
	Pawns [board.Size]board.Pawn
}

// PawnIDs returns the ids of the pawns on the line.
func (l Line) PawnIDs() []int {
	ids := make([]int, 0, board.Size)
	for _, p := range l.Pawns {
		ids = append(ids, p.ID)
	}
	return ids
}

// Evaluate checks the lines through the cell that was just filled: its row,
// its column and whichever diagonals it lies on, in that order. The first
// line that is full and whose pawns share an attribute is returned.
func Evaluate(cells [board.CellCount]*board.Pawn, placed int) (Line, bool) {
	if !board.ValidCellID(placed) {
		return Line{}, false
	}
	row, col := board.Row(placed), board.Col(placed)

	for _, line := range candidateLines(row, col) {
		if won, ok := checkLine(cells, line); ok {
			return won, true
		}
	}
	return Line{}, false
}

func candidateLines(row, col int) []Line {
	lines := make([]Line, 0, 4)

	rowLine := Line{Kind: RowLine}
	colLine := Line{Kind: ColumnLine}
	for i := 0; i < board.Size; i++ {
		rowLine.Cells[i] = board.CellID(row, i)
		colLine.Cells[i] = board.CellID(i, col)
	}
	lines = append(lines, rowLine, colLine)

	if row == col {
		diag := Line{Kind: PrimaryDiagonal}
		for i := 0; i < board.Size; i++ {
			diag.Cells[i] = board.CellID(i, i)
		}
		lines = append(lines, diag)
	}
	if row == board.Size-1-col {
		diag := Line{Kind: SecondaryDiagonal}
		for i := 0; i < board.Size; i++ {
			diag.Cells[i] = board.CellID(i, board.Size-1-i)
		}
		lines = append(lines, diag)
	}
	return lines
}

func checkLine(cells [board.CellCount]*board.Pawn, line Line) (Line, bool) {
	for i, id := range line.Cells {
		p := cells[id]
		if p == nil {
			return Line{}, false
		}
		line.Pawns[i] = *p
	}
	if !shareAttribute(line.Pawns[:]) {
		return Line{}, false
	}
	return line, true
}

// shareAttribute reports whether all pawns have the same value for at least
// one of color, cave, size or shape.
func shareAttribute(pawns []board.Pawn) bool {
	if len(pawns) == 0 {
		return false
	}
	first := pawns[0]
	sameColor, sameCave, sameSize, sameShape := true, true, true, true
	for _, p := range pawns[1:] {
		sameColor = sameColor && p.Color == first.Color
		sameCave = sameCave && p.Cave == first.Cave
		sameSize = sameSize && p.Size == first.Size
		sameShape = sameShape && p.Shape == first.Shape
	}
	return sameColor || sameCave || sameSize || sameShape
}
