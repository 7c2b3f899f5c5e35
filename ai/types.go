package ai

// MessageRole identifies the author of a chat message sent to a Generator.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one role-tagged entry in a generation request.
type Message struct {
	Role    MessageRole
	Content string
}

// GenerateOptions carries per-call generation parameters.
type GenerateOptions struct {
	// Temperature controls output determinism. 0 is fully deterministic.
	Temperature float64
	// MaxTokens caps the completion length. 0 means provider default.
	MaxTokens int
}

// GenerateOption is a functional option for a single generation call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature for one call.
func WithTemperature(temperature float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temperature
	}
}

// WithMaxTokens caps the completion length for one call.
func WithMaxTokens(maxTokens int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = maxTokens
	}
}

// ApplyGenerateOptions folds opts into a GenerateOptions with defaults.
func ApplyGenerateOptions(opts ...GenerateOption) GenerateOptions {
	options := GenerateOptions{Temperature: 0.2}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
