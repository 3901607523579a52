package multiplayer

import (
	"net/url"

	"github.com/cameroncuttingedge/tictacfour/utils"
)

type Role int

const (
	Creator Role = iota
	Joiner
)

func (r Role) String() string {
	if r == Joiner {
		return "joiner"
	}
	return "creator"
}

// RoleFromLink decides the role of a player from the link they opened: a
// link carrying a session code joins that session, any other link creates a
// new one.
func RoleFromLink(link string) (Role, string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return Creator, "", err
	}
	if code := u.Query().Get(utils.CodeParam); code != "" {
		return Joiner, code, nil
	}
	return Creator, "", nil
}
