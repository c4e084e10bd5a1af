package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dailydev/searchstream/pkg/session"
	"github.com/dailydev/searchstream/pkg/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		BaseURL:      srv.URL + "/",
		SearchPath:   "/search/query",
		SessionsPath: "/search/sessions",
		FeedbackPath: "/search/feedback",
		Token:        "tok",
		Timeout:      5 * time.Second,
	})
}

func TestClientOpen(t *testing.T) {
	capture, err := os.ReadFile(filepath.Join("testdata", "completed.sse"))
	require.NoError(t, err)

	var gotPrompt, gotToken, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search/query", r.URL.Path)
		gotPrompt = r.URL.Query().Get("prompt")
		gotToken = r.URL.Query().Get("token")
		gotAccept = r.Header.Get("Accept")

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write(capture)
	}))
	defer srv.Close()

	seq, err := newTestClient(srv).Open(context.Background(), "what is a goroutine?")
	require.NoError(t, err)
	defer seq.Close()

	events, err := stream.Collect(context.Background(), seq)
	require.NoError(t, err)

	assert.Equal(t, "what is a goroutine?", gotPrompt)
	assert.Equal(t, "tok", gotToken)
	assert.Equal(t, "text/event-stream", gotAccept)
	require.NotEmpty(t, events)
	assert.Equal(t, stream.TypeCompleted, events[len(events)-1].Type())
	assert.Equal(t, "what is a goroutine?", events[0].(stream.SessionCreated).Prompt)
}

func TestClientOpenStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Open(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "401")
}

func TestClientOpenDroppedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"type\":\"SessionCreated\",\"payload\":{\"id\":\"s1\",\"steps\":1}}\n\n")
		w.(http.Flusher).Flush()
		// handler returns without a terminal event
	}))
	defer srv.Close()

	seq, err := newTestClient(srv).Open(context.Background(), "q")
	require.NoError(t, err)
	defer seq.Close()

	events, err := stream.Collect(context.Background(), seq)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, stream.Unexpected("q"), events[1])
}

func TestClientLookup(t *testing.T) {
	done := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	want := &session.Session{
		ID:        "s1",
		CreatedAt: done,
		Chunks: []session.Chunk{{
			ID:          "c1",
			Prompt:      "p",
			Response:    "r",
			Sources:     []session.Source{{ID: "a", URL: "https://a"}},
			Steps:       2,
			Progress:    2,
			CreatedAt:   &done,
			CompletedAt: &done,
		}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/search/sessions/s1":
			json.NewEncoder(w).Encode(want)
		case "/search/sessions/broken":
			w.Write([]byte("{"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv)

	got, err := client.Lookup(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = client.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Lookup(context.Background(), "broken")
	assert.Error(t, err)
}

func TestClientFeedback(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search/feedback", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := newTestClient(srv).Feedback(context.Background(), "c1", session.FeedbackDownvote)
	require.NoError(t, err)
	assert.Equal(t, "c1", body["chunkId"])
	assert.Equal(t, float64(-1), body["value"])
}

func TestFileTransport(t *testing.T) {
	ft := FileTransport{Path: filepath.Join("testdata", "ratelimited.sse")}

	seq, err := ft.Open(context.Background(), "q")
	require.NoError(t, err)
	defer seq.Close()

	events, err := stream.Collect(context.Background(), seq)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	_, err = ft.Lookup(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = FileTransport{Path: "testdata/nope.sse"}.Open(context.Background(), "q")
	assert.Error(t, err)
}
