package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
)

func TestFromConfig_Order(t *testing.T) {
	chain, err := FromConfig(common.LLMConfig{Providers: []common.ProviderConfig{
		{Name: common.ProviderDeepSeek, APIKey: "k", RatePerMinute: 30},
		{Name: common.ProviderAnthropic, APIKey: "k"},
		{Name: common.ProviderGemini, APIKey: "k"},
		{Name: common.ProviderOllama, BaseURL: "http://localhost:11434"},
	}}, nil)
	require.NoError(t, err)
	require.Equal(t, "deepseek>anthropic>gemini>ollama", chain.Name())
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(common.ProviderConfig{Name: "cohere"}, common.LLMConfig{}, nil)
	require.Error(t, err)
	require.Equal(t, common.CodeConfig, common.CodeOf(err))
}
