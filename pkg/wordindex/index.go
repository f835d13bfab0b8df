// Package wordindex holds a lazily populated set of normalized words and
// the two-stage pipeline (seed list, then bulk dictionary) that fills it.
package wordindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/NivBraz/wordindex/pkg/parser"
)

// Fetcher retrieves the body of a resource. *fetcher.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchFunc adapts a plain function to the Fetcher interface.
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

func (fn FetchFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return fn(ctx, url)
}

// Index is a set of lowercase words. Construct it once with New and share
// the pointer; it is safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	words map[string]struct{}
	ready bool

	fetcher    Fetcher
	parser     *parser.Parser
	base       string
	logger     *slog.Logger
	onProgress func(added int)
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// WithBaseURL sets the location seed and bulk paths are resolved against.
// A base whose path does not end in "/" is treated as a page and its last
// segment is dropped.
func WithBaseURL(base string) Option {
	return func(ix *Index) {
		ix.base = base
	}
}

// WithProgress registers a callback invoked after every ingestion with
// the number of words that were new to the index.
func WithProgress(fn func(added int)) Option {
	return func(ix *Index) {
		ix.onProgress = fn
	}
}

// New returns an empty index that loads through f.
func New(f Fetcher, opts ...Option) *Index {
	ix := &Index{
		words:   make(map[string]struct{}),
		fetcher: f,
		parser:  parser.New(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// AddFromText ingests a newline-delimited list. Only word-shaped lines are
// kept. It returns the number of new entries.
func (ix *Index) AddFromText(text string) int {
	return ix.add(ix.parser.ParseWordList([]byte(text)))
}

// AddFromStructured ingests decoded JSON-like data. Sequences contribute
// their values and mappings their keys, lowercased but otherwise
// unfiltered. Any other shape is ignored.
func (ix *Index) AddFromStructured(payload any) int {
	var words []string
	switch data := payload.(type) {
	case []string:
		for _, w := range data {
			words = append(words, strings.ToLower(w))
		}
	case []any:
		for _, v := range data {
			words = append(words, strings.ToLower(stringify(v)))
		}
	case map[string]any:
		words = lowerKeys(data)
	case map[string]int:
		words = lowerKeys(data)
	case map[string]bool:
		words = lowerKeys(data)
	case map[string]string:
		words = lowerKeys(data)
	}
	return ix.add(words)
}

// AddFromBody ingests a dictionary body of unknown format: JSON first,
// then newline-delimited text if the body is not valid JSON.
func (ix *Index) AddFromBody(body []byte) int {
	data, err := ix.parser.ParseStructured(body)
	if err != nil {
		return ix.AddFromText(string(body))
	}
	return ix.AddFromStructured(data)
}

// Has reports whether word is recognized. Besides exact matches it
// accepts a possessive "'s" on a known stem and a hyphenated spelling of
// a known unhyphenated word.
func (ix *Index) Has(word string) bool {
	s := parser.Normalize(word)
	if s == "" {
		return false
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if _, ok := ix.words[s]; ok {
		return true
	}
	if stem, ok := strings.CutSuffix(s, "'s"); ok {
		if _, ok := ix.words[stem]; ok {
			return true
		}
	}
	if joined := strings.ReplaceAll(s, "-", ""); joined != s {
		if _, ok := ix.words[joined]; ok {
			return true
		}
	}
	return false
}

// Size returns the number of distinct entries.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.words)
}

// Ready reports whether the index is usable: the bulk dictionary loaded,
// or it failed but earlier stages left entries behind.
func (ix *Index) Ready() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.ready
}

// Words returns a sorted snapshot of the entries.
func (ix *Index) Words() []string {
	ix.mu.RLock()
	words := make([]string, 0, len(ix.words))
	for w := range ix.words {
		words = append(words, w)
	}
	ix.mu.RUnlock()

	sort.Strings(words)
	return words
}

func (ix *Index) add(words []string) int {
	ix.mu.Lock()
	added := 0
	for _, w := range words {
		if _, ok := ix.words[w]; ok {
			continue
		}
		ix.words[w] = struct{}{}
		added++
	}
	ix.mu.Unlock()

	if ix.onProgress != nil {
		ix.onProgress(added)
	}
	return added
}

// markReady only ever moves ready from false to true. With requireEntries
// set, an empty index stays not ready.
func (ix *Index) markReady(requireEntries bool) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if !requireEntries || len(ix.words) > 0 {
		ix.ready = true
	}
	return ix.ready
}

func (ix *Index) summary() Summary {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return Summary{Size: len(ix.words), Ready: ix.ready}
}

func lowerKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, strings.ToLower(k))
	}
	return keys
}

// stringify renders a decoded JSON value as JavaScript's String() would,
// so dictionaries produced for browser loaders index the same entries.
func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case int:
		return strconv.Itoa(x)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			// Array joins render null as empty.
			if e != nil {
				parts[i] = stringify(e)
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return fmt.Sprint(x)
	}
}

// formatNumber switches to exponent notation outside [1e-6, 1e21), with
// an unpadded exponent ("1e+21", "1.5e-7").
func formatNumber(x float64) string {
	if x == 0 {
		return "0"
	}
	abs := math.Abs(x)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(x, 'e', -1, 64), "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}
