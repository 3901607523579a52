package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cameroncuttingedge/tictacfour/board"
)

var allLines = [][board.Size]int{
	{0, 1, 2, 3}, {4, 5, 6, 7}, {8, 9, 10, 11}, {12, 13, 14, 15},
	{0, 4, 8, 12}, {1, 5, 9, 13}, {2, 6, 10, 14}, {3, 7, 11, 15},
	{0, 5, 10, 15}, {3, 6, 9, 12},
}

func cellsWith(placements map[int]int) [board.CellCount]*board.Pawn {
	pawns := board.NewPawns()
	var cells [board.CellCount]*board.Pawn
	for cell, pawn := range placements {
		p := pawns[pawn]
		cells[cell] = &p
	}
	return cells
}

// agree is an independent formulation of the winning rule.
func agree(pawns []board.Pawn) bool {
	counts := map[string]int{}
	for _, p := range pawns {
		counts["color:"+string(p.Color)]++
		counts["cave:"+string(p.Cave)]++
		counts["size:"+string(p.Size)]++
		counts["shape:"+string(p.Shape)]++
	}
	for _, n := range counts {
		if n == len(pawns) {
			return true
		}
	}
	return false
}

func TestEvaluateEveryLineEveryQuadruple(t *testing.T) {
	pawns := board.NewPawns()

	for _, line := range allLines {
		for a := 0; a < board.CellCount; a++ {
			for b := a + 1; b < board.CellCount; b++ {
				for c := b + 1; c < board.CellCount; c++ {
					for d := c + 1; d < board.CellCount; d++ {
						quad := []int{a, b, c, d}
						placements := map[int]int{}
						picked := make([]board.Pawn, 0, 4)
						for i, cell := range line {
							placements[cell] = quad[i]
							picked = append(picked, pawns[quad[i]])
						}

						won, ok := Evaluate(cellsWith(placements), line[3])
						if ok != agree(picked) {
							t.Fatalf("line %v pawns %v: win=%v, expected %v", line, quad, ok, agree(picked))
						}
						if ok {
							assert.Equal(t, line, won.Cells)
						}
					}
				}
			}
		}
	}
}

func TestEvaluateIncompleteLine(t *testing.T) {
	// three white pawns in row 0, fourth cell empty
	_, ok := Evaluate(cellsWith(map[int]int{0: 4, 1: 5, 2: 6}), 2)
	assert.False(t, ok)
}

func TestEvaluateRowOfWhites(t *testing.T) {
	line, ok := Evaluate(cellsWith(map[int]int{0: 4, 1: 7, 2: 12, 3: 15}), 3)
	require.True(t, ok)
	assert.Equal(t, RowLine, line.Kind)
	assert.Equal(t, []int{4, 7, 12, 15}, line.PawnIDs())
}

func TestEvaluateDiagonalOfCircles(t *testing.T) {
	cells := cellsWith(map[int]int{0: 0, 5: 5, 10: 11, 15: 14})

	line, ok := Evaluate(cells, 15)
	require.True(t, ok)
	assert.Equal(t, PrimaryDiagonal, line.Kind)
	assert.Equal(t, [board.Size]int{0, 5, 10, 15}, line.Cells)

	// the anti-diagonal is only checked for cells lying on it
	anti := cellsWith(map[int]int{3: 0, 6: 5, 9: 11, 12: 14})
	line, ok = Evaluate(anti, 9)
	require.True(t, ok)
	assert.Equal(t, SecondaryDiagonal, line.Kind)
}

func TestEvaluateNoSharedAttribute(t *testing.T) {
	_, ok := Evaluate(cellsWith(map[int]int{0: 0, 1: 7, 2: 8, 3: 15}), 1)
	assert.False(t, ok)
}

func TestEvaluateRowBeforeColumn(t *testing.T) {
	// cell 0 completes row 0 (all black) and column 0 (all big)
	cells := cellsWith(map[int]int{
		0: 0,
		1: 9, 2: 10, 3: 11,
		4: 2, 8: 5, 12: 6,
	})
	line, ok := Evaluate(cells, 0)
	require.True(t, ok)
	assert.Equal(t, RowLine, line.Kind)

	// without the row, the column wins
	noRow := cellsWith(map[int]int{0: 0, 1: 9, 2: 10, 4: 2, 8: 5, 12: 6})
	line, ok = Evaluate(noRow, 0)
	require.True(t, ok)
	assert.Equal(t, ColumnLine, line.Kind)
}

func TestEvaluateInvalidCell(t *testing.T) {
	_, ok := Evaluate(cellsWith(nil), 16)
	assert.False(t, ok)
}
