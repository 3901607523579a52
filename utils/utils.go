// utils/utils.go

package utils

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// CodeParam is the join link query parameter carrying the session code.
const CodeParam = "code"

func GenerateUUIDString() string {
	id := uuid.New()
	return id.String()
}

// GenerateSessionCode returns a short random code for a shared session.
func GenerateSessionCode() string {
	return strings.SplitN(GenerateUUIDString(), "-", 2)[0]
}

// JoinLink appends the session code to the public game URL.
func JoinLink(publicURL, code string) (string, error) {
	u, err := url.Parse(publicURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(CodeParam, code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
