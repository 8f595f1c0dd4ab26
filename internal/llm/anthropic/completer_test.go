package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompleter_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/messages", r.URL.Path)
		require.Equal(t, "tok", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest",
			"content":[{"type":"text","text":"{\"nombre\":"},{"type":"text","text":"\"Martillo\"}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer srv.Close()

	c := NewCompleter(Config{URL: srv.URL, Token: "tok"}, nil)
	out, err := c.Complete(context.Background(), "sistema", "texto")
	require.NoError(t, err)
	require.Equal(t, `{"nombre":"Martillo"}`, out)

	require.Equal(t, "claude-3-5-haiku-latest", got["model"])
	require.EqualValues(t, 4096, got["max_tokens"])
	system := got["system"].([]any)
	require.Equal(t, "sistema", system[0].(map[string]any)["text"])
}
