package game

import (
	"errors"
	"fmt"
)

type PlayerKind string

const (
	Local  PlayerKind = "local"
	Remote PlayerKind = "remote"
)

type Player struct {
	ID      int        `json:"id"`
	Display string     `json:"display"`
	Kind    PlayerKind `json:"kind"`
}

var ErrInvalidPlayers = errors.New("a game needs two players with ids 0 and 1")

// defaultNames are used when a player leaves the name blank.
var defaultNames = [2]string{"Tima", "Hermione"}

// PlayerName returns name, or the default name of player number 1 or 2.
func PlayerName(name string, number int) string {
	if name != "" {
		return name
	}
	if number == 1 {
		return defaultNames[0]
	}
	return defaultNames[1]
}

// orderPlayers indexes the players by id. Ids must be exactly 0 and 1.
func orderPlayers(players [2]Player) ([2]Player, error) {
	var ordered [2]Player
	var seen [2]bool
	for _, p := range players {
		if p.ID < 0 || p.ID > 1 || seen[p.ID] {
			return ordered, fmt.Errorf("%w: got ids %d and %d", ErrInvalidPlayers, players[0].ID, players[1].ID)
		}
		seen[p.ID] = true
		ordered[p.ID] = p
	}
	return ordered, nil
}

// NextPlayer returns the player whose id differs from currentID.
func NextPlayer(players [2]Player, currentID int) Player {
	if players[0].ID != currentID {
		return players[0]
	}
	return players[1]
}
