package config

// DescriberStrategy selects the describer variant via the DESCRIBER
// environment variable (`strategy:<name>`).
type DescriberStrategy string

const (
	// DescriberStrategySLM is the multimodal chat completion against the small
	// language model deployment (default).
	DescriberStrategySLM DescriberStrategy = "slm"
	// DescriberStrategyLLM is the multimodal chat completion against the large
	// language model deployment.
	DescriberStrategyLLM DescriberStrategy = "llm"
	// DescriberStrategyVision is the caption-plus-tags vision API fallback,
	// used when multimodal chat endpoints are unavailable.
	DescriberStrategyVision DescriberStrategy = "vision"
	// DescriberStrategyPhi4 is the text chat completion that passes the image
	// reference inline in the user message.
	DescriberStrategyPhi4 DescriberStrategy = "phi4"
)

// IsValid checks if the describer strategy is valid
func (s DescriberStrategy) IsValid() bool {
	switch s {
	case DescriberStrategySLM, DescriberStrategyLLM, DescriberStrategyVision, DescriberStrategyPhi4:
		return true
	default:
		return false
	}
}

// TranslatorStrategy selects the translator variant via the TRANSLATOR
// environment variable (`strategy:<name>`).
type TranslatorStrategy string

const (
	// TranslatorStrategyAPI is the dedicated translation API (default).
	TranslatorStrategyAPI TranslatorStrategy = "translator"
	// TranslatorStrategyLLM translates through chat completions against the
	// large language model deployment.
	TranslatorStrategyLLM TranslatorStrategy = "llm"
	// TranslatorStrategyPhi4 translates through chat completions against the
	// phi-4 deployment.
	TranslatorStrategyPhi4 TranslatorStrategy = "phi4"
)

// IsValid checks if the translator strategy is valid
func (s TranslatorStrategy) IsValid() bool {
	switch s {
	case TranslatorStrategyAPI, TranslatorStrategyLLM, TranslatorStrategyPhi4:
		return true
	default:
		return false
	}
}
