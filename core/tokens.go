package core

import "github.com/pkoukk/tiktoken-go"

// CharsPerToken is the fixed characters-per-token ratio used by the
// default estimator.
const CharsPerToken = 4

// TokenEstimator estimates how many model tokens a piece of text costs.
// It is a pluggable strategy so a precise tokenizer can be substituted
// without changing call sites.
type TokenEstimator interface {
	Estimate(text string) int
}

// RatioEstimator approximates token counts with a fixed chars-per-token
// ratio. It is cheap, deterministic, and close enough for budgeting.
type RatioEstimator struct {
	CharsPerToken int
}

var _ TokenEstimator = (*RatioEstimator)(nil)

// NewRatioEstimator returns the default chars/4 estimator.
func NewRatioEstimator() *RatioEstimator {
	return &RatioEstimator{CharsPerToken: CharsPerToken}
}

// Estimate returns ceil(len(text) / CharsPerToken).
func (e *RatioEstimator) Estimate(text string) int {
	ratio := e.CharsPerToken
	if ratio <= 0 {
		ratio = CharsPerToken
	}
	return (len(text) + ratio - 1) / ratio
}

// TiktokenEstimator counts tokens with a real BPE tokenizer. It is slower
// than RatioEstimator but exact for OpenAI-family models.
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

var _ TokenEstimator = (*TiktokenEstimator)(nil)

// NewTiktokenEstimator creates an estimator backed by the named tiktoken
// encoding, e.g. "cl100k_base".
func NewTiktokenEstimator(encodingName string) (*TiktokenEstimator, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &TiktokenEstimator{encoding: enc}, nil
}

// Estimate returns the exact token count of text under the encoding.
func (e *TiktokenEstimator) Estimate(text string) int {
	return len(e.encoding.Encode(text, nil, nil))
}
