// pkg/config/llm.go
package config

// LLMConfig configures the completion provider
type LLMConfig struct {
	APIKey         string
	Model          string
	SummaryModel   string
	Temperature    float64
	MaxReplyTokens int
}

// ContextConfig configures the context window manager
type ContextConfig struct {
	MaxTokens        int
	RecentKeep       int
	Policy           string // "keep_all", "sliding_window", "summarize" or "hybrid"
	Counter          string // "chars" or "tiktoken"
	CharsPerToken    int
	Summarize        bool // allow summarizing policies to call the summary model
	SummaryMaxTokens int
	SystemPrompt     string
}

func loadLLMConfig() LLMConfig {
	return LLMConfig{
		APIKey:         getEnv("OPENAI_API_KEY", ""),
		Model:          getEnv("LLM_MODEL", "gpt-4o"),
		SummaryModel:   getEnv("LLM_SUMMARY_MODEL", "gpt-4o-mini"),
		Temperature:    getEnvFloat("LLM_TEMPERATURE", 0.7),
		MaxReplyTokens: getEnvInt("LLM_MAX_REPLY_TOKENS", 1024),
	}
}

func loadContextConfig() ContextConfig {
	return ContextConfig{
		MaxTokens:        getEnvInt("CONTEXT_MAX_TOKENS", 8000),
		RecentKeep:       getEnvInt("CONTEXT_RECENT_KEEP", 6),
		Policy:           getEnv("CONTEXT_POLICY", "hybrid"),
		Counter:          getEnv("CONTEXT_COUNTER", "tiktoken"),
		CharsPerToken:    getEnvInt("CONTEXT_CHARS_PER_TOKEN", 4),
		Summarize:        getEnvBool("CONTEXT_SUMMARIZE", true),
		SummaryMaxTokens: getEnvInt("CONTEXT_SUMMARY_MAX_TOKENS", 256),
		SystemPrompt:     getEnv("CHAT_SYSTEM_PROMPT", ""),
	}
}
