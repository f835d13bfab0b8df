package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/NivBraz/wordindex/internal/config"
	"github.com/NivBraz/wordindex/internal/models"
	"github.com/NivBraz/wordindex/pkg/fetcher"
	"github.com/NivBraz/wordindex/pkg/parser"
	"github.com/NivBraz/wordindex/pkg/wordindex"
	"github.com/schollz/progressbar/v3"
)

// App represents the main application
type App struct {
	config  *config.Config
	fetcher *fetcher.Fetcher
	parser  *parser.Parser
	index   *wordindex.Index
	logger  *slog.Logger

	progressOut io.Writer

	// Overlapping loads share one spinner; the last to finish closes it.
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	loading int
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the structured logger shared with the index.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithProgressOutput redirects the load spinner. io.Discard silences it.
func WithProgressOutput(w io.Writer) Option {
	return func(a *App) {
		a.progressOut = w
	}
}

// New creates a new instance of the application
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("invalid configuration: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		config:      cfg,
		parser:      parser.New(),
		logger:      slog.Default(),
		progressOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.fetcher = fetcher.New(fetcher.FetcherConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		Timeout:           time.Duration(cfg.HTTPClient.Timeout) * time.Second,
		UserAgent:         cfg.HTTPClient.UserAgent,
		MaxRetries:        cfg.HTTPClient.MaxRetries,
		CacheSize:         cfg.HTTPClient.CacheSize,
	})

	a.index = wordindex.New(a.fetcher,
		wordindex.WithBaseURL(cfg.BaseURL),
		wordindex.WithLogger(a.logger),
		wordindex.WithProgress(a.onWordsAdded),
	)

	return a, nil
}

// Index exposes the shared word index to consumers.
func (a *App) Index() *wordindex.Index {
	return a.index
}

// Load runs the seed and dictionary stages, showing a spinner with the
// running word count. It never fails; check Ready on the result.
func (a *App) Load(ctx context.Context, override string) models.LoadResult {
	startTime := time.Now()

	if override == "" {
		override = a.config.SourceOverride
	}

	a.startProgress()
	summary := a.index.Load(ctx, wordindex.LoadOptions{SourceOverride: override})
	a.finishProgress()

	return models.LoadResult{
		Size:        summary.Size,
		Ready:       summary.Ready,
		TimeElapsed: int(time.Since(startTime).Milliseconds()),
	}
}

// Check looks up each word in the index.
func (a *App) Check(words []string) []models.WordCheck {
	results := make([]models.WordCheck, 0, len(words))
	for _, w := range words {
		results = append(results, models.WordCheck{Word: w, Known: a.index.Has(w)})
	}
	return results
}

// Scan fetches an HTML page and reports which of its words the index does
// not recognize.
func (a *App) Scan(ctx context.Context, url string) (*models.ScanResult, error) {
	content, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}

	words, err := a.parser.ParseWords(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	result := &models.ScanResult{URL: url, TotalWords: len(words), UnknownWords: []string{}}
	unknown := make(map[string]struct{})
	for _, w := range words {
		if a.index.Has(w) {
			result.KnownWords++
			continue
		}
		unknown[w] = struct{}{}
	}
	for w := range unknown {
		result.UnknownWords = append(result.UnknownWords, w)
	}
	sort.Strings(result.UnknownWords)

	return result, nil
}

func (a *App) startProgress() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loading++
	if a.bar != nil {
		return
	}
	a.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(a.progressOut),
		progressbar.OptionSetDescription("Loading dictionary..."),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func (a *App) finishProgress() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loading--
	if a.loading > 0 || a.bar == nil {
		return
	}
	a.bar.Finish()
	a.bar = nil
}

func (a *App) onWordsAdded(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bar != nil {
		a.bar.Add(n)
	}
}
