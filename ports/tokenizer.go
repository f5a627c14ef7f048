package ports

import "github.com/ensgate/ensgate/core"

// Tokenizer converts between sessions and their signed credential form
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
