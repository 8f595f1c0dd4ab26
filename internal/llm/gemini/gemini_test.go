package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/llm"
)

func TestComplete_NoKeyIsUnavailable(t *testing.T) {
	_, err := New("  ", "", nil).Complete(context.Background(), "s", "p")
	require.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestNew_Defaults(t *testing.T) {
	e := New("k", "", nil)
	require.Equal(t, "gemini-1.5-flash", e.Model)
	require.Equal(t, "gemini", e.Name())
}

func TestFirstText(t *testing.T) {
	require.Empty(t, firstText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":1}`)}}},
	}}
	require.Equal(t, `{"a":1}`, firstText(resp))
}
