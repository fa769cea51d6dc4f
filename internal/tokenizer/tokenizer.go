// Package tokenizer implements the token-accounting signal the
// Context Manager uses to decide when to summarise (spec §4.3): a
// cl100k_base BPE estimate over every textual field, with a
// char-ratio fallback when the BPE encoder cannot be constructed.
package tokenizer

import (
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// PerMessageOverhead is the fixed token cost spec §4.3 adds per
// message on top of its text-field estimate.
const PerMessageOverhead = 4

// fallbackCharsPerToken matches spec §4.3's explicit fallback:
// floor(total_chars / 2.5).
const fallbackCharsPerToken = 2.5

// Counter estimates token counts using the cl100k_base vocabulary,
// falling back to a char-ratio heuristic if the encoder cannot be
// built (e.g. no network access to fetch the BPE ranks file).
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewCounter returns a Counter. Construction of the underlying BPE
// encoder is deferred to first use so that callers who never count
// tokens never pay the cost of loading it.
func NewCounter() *Counter {
	return &Counter{}
}

func (c *Counter) encoder() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.enc = enc
		}
	})
	return c.enc
}

// Count returns the estimated token count of text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoder(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return fallbackCount(text)
}

func fallbackCount(text string) int {
	n := float64(len([]rune(text))) / fallbackCharsPerToken
	return int(n)
}

// Available reports whether the cl100k_base encoder loaded
// successfully, i.e. whether Count is using the BPE path rather than
// the char-ratio fallback.
func (c *Counter) Available() bool {
	return c.encoder() != nil
}
