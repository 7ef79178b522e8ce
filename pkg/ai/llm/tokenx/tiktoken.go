package tokenx

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the cl100k_base encoding used by GPT-4 class models,
// a reasonable approximation for most providers.
const DefaultEncoding = "cl100k_base"

// TiktokenCounter counts tokens with a real BPE encoding
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the given encoding name.
// Pass an empty string for DefaultEncoding.
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenx: get encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// NewTiktokenCounterForModel creates a counter matching a model's tokenizer
func NewTiktokenCounterForModel(model string) (*TiktokenCounter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("tokenx: encoding for model %q: %w", model, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in text
func (t *TiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
