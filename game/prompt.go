package game

import "fmt"

// Prompt is the helper text a presenter shows for the current phase. When
// Waiting is set the local player can only wait for the peer.
type Prompt struct {
	Text    string
	Detail  string
	Waiting bool
}

// Prompt describes what the turn holder is expected to do.
func (g *Game) Prompt() Prompt {
	player := g.TurnPlayer()
	waiting := !g.IsMyTurn() && g.kind == Online

	switch g.phase {
	case SelectPawn:
		if waiting {
			return Prompt{
				Text:    fmt.Sprintf("Waiting for %s...", player.Display),
				Detail:  fmt.Sprintf("%s is picking a pawn for you!", player.Display),
				Waiting: true,
			}
		}
		return Prompt{Text: fmt.Sprintf("%s pick a pawn for your opponent...", player.Display)}
	case SelectCell:
		if waiting {
			return Prompt{
				Text:    fmt.Sprintf("Waiting for %s...", player.Display),
				Detail:  fmt.Sprintf("%s is selecting a cell!", player.Display),
				Waiting: true,
			}
		}
		return Prompt{Text: fmt.Sprintf("%s select cell...", player.Display)}
	case GameOver:
		return Prompt{Text: fmt.Sprintf("%s win, yay! Press here to restart...", player.Display)}
	}
	return Prompt{Text: "Tea break - Let's play!"}
}
