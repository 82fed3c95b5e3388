// Package tokens provides token counting for budget-aware composition.
//
// The default unit is one token per whitespace-delimited word
// (strings.Fields). This unit is deliberately simple and fixed so that
// composition output is reproducible across runs and platforms. A tiktoken
// based counter is also available for callers that want model-token
// estimates; both counters truncate at whitespace boundaries.
package tokens

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in a piece of text.
type Counter interface {
	Count(text string) int
}

// WordCounter counts one token per whitespace-delimited word.
type WordCounter struct{}

// Count returns the number of whitespace-delimited words in text.
func (WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// TiktokenCounter counts tokens using a tiktoken encoding.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var (
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
	encodingCacheMu sync.Mutex
)

// NewTiktokenCounter creates a counter for the given model, falling back to
// the cl100k_base encoding when the model is unknown. Encodings are cached
// per model.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	encodingCacheMu.Lock()
	defer encodingCacheMu.Unlock()

	if cached, ok := encodingCache[model]; ok {
		return &TiktokenCounter{encoding: cached}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, errors.Wrap(err, "failed to get tiktoken encoding")
		}
	}

	encodingCache[model] = encoding
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count returns the number of tokens in text under the counter's encoding.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// Truncate cuts text at a whitespace boundary so that the result counts at
// most budget tokens under c. The second return reports whether anything
// was cut. Truncated output has internal whitespace collapsed to single
// spaces; text that already fits is returned verbatim.
func Truncate(text string, budget int, c Counter) (string, bool) {
	if budget <= 0 {
		return "", text != ""
	}
	if c.Count(text) <= budget {
		return text, false
	}

	words := strings.Fields(text)
	// Largest word-prefix whose joined form fits the budget. Token counts
	// are monotonic in the prefix length for both counters, so binary
	// search is safe.
	fit := sort.Search(len(words), func(k int) bool {
		return c.Count(strings.Join(words[:k+1], " ")) > budget
	})
	return strings.Join(words[:fit], " "), true
}
