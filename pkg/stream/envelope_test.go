package stream

import (
	"testing"

	"github.com/dailydev/searchstream/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
	}{
		{
			name: "session created",
			data: `{"type":"SessionCreated","status":"Starting","timestamp":1700000000000,"payload":{"id":"s1","chunk_id":"c1","steps":3}}`,
			want: SessionCreated{ID: "s1", ChunkID: "c1", Steps: 3, Status: "Starting", Prompt: "q"},
		},
		{
			name: "web search finished",
			data: `{"type":"WebSearchFinished","status":"Found 2","timestamp":1,"payload":{"sources":[{"id":"a","name":"A","snippet":"sa","url":"https://a"},{"id":"b","name":"B","snippet":"sb","url":"https://b"}]}}`,
			want: WebSearchFinished{Status: "Found 2", Sources: []session.Source{
				{ID: "a", Name: "A", Snippet: "sa", URL: "https://a"},
				{ID: "b", Name: "B", Snippet: "sb", URL: "https://b"},
			}},
		},
		{
			name: "results filtered with payload status",
			data: `{"type":"WebResultsFiltered","timestamp":1,"payload":{"status":"Narrowing down search results..."}}`,
			want: WebResultsFiltered{Status: "Narrowing down search results..."},
		},
		{
			name: "status updated",
			data: `{"type":"StatusUpdated","status":"Searching","timestamp":1,"payload":{}}`,
			want: StatusUpdated{Status: "Searching"},
		},
		{
			name: "token",
			data: `{"type":"NewTokenReceived","timestamp":1,"payload":{"token":"Back"}}`,
			want: NewTokenReceived{Token: "Back"},
		},
		{
			name: "completed without payload",
			data: `{"type":"Completed","timestamp":1}`,
			want: Completed{},
		},
		{
			name: "error with numeric code",
			data: `{"type":"Error","timestamp":1,"payload":{"code":3,"message":"slow down"}}`,
			want: ErrorReceived{Code: session.ErrorRateLimit, Message: "slow down", Prompt: "q"},
		},
		{
			name: "session found",
			data: `{"type":"SessionFound","timestamp":1,"payload":{"id":"s9","chunks":[]}}`,
			want: SessionFound{Session: &session.Session{ID: "s9", Chunks: []session.Chunk{}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.data), "q")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev)
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":`), "q")
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"NewTokenReceived","payload":{"token":5}}`), "q")
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"Heartbeat","payload":{}}`), "q")
		assert.ErrorIs(t, err, ErrUnknownType)
		assert.NotErrorIs(t, err, ErrMalformed)
	})
}
