package streaming

import (
	"context"

	"github.com/dailydev/searchstream/pkg/session"
	"github.com/dailydev/searchstream/pkg/stream"
)

//go:generate mockgen --build_flags=--mod=mod -destination=transport_mock.go -package=$GOPACKAGE github.com/dailydev/searchstream/pkg/streaming Transport

// Transport opens event streams and resolves existing sessions
type Transport interface {
	// Open starts a search for prompt. The returned sequence ends at a
	// terminal event, or when it is closed.
	Open(ctx context.Context, prompt string) (stream.Sequence, error)

	// Lookup fetches a full session by id
	Lookup(ctx context.Context, id string) (*session.Session, error)
}

// Persister receives snapshots that reached a terminal state
type Persister interface {
	Save(ctx context.Context, key session.Key, s *session.Session) error
}

// Loader is implemented by persisters that can serve cached sessions when
// the transport lookup fails.
type Loader interface {
	Load(ctx context.Context, key session.Key) (*session.Session, error)
}
