package wordindex

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NivBraz/wordindex/pkg/fetcher"
)

// site serves a fixed set of paths and records every request.
type site struct {
	mu       sync.Mutex
	files    map[string]string
	requests []string
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.URL.Path)
	body, ok := s.files[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	io.WriteString(w, body)
}

func (s *site) requested() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func newSite(t *testing.T, files map[string]string) (*site, *httptest.Server) {
	t.Helper()
	s := &site{files: files}
	server := httptest.NewServer(s)
	t.Cleanup(server.Close)
	return s, server
}

func newIndex(server *httptest.Server, page string, opts ...Option) *Index {
	f := fetcher.New(fetcher.FetcherConfig{RequestsPerSecond: 100, Burst: 100})
	opts = append([]Option{WithBaseURL(server.URL + page)}, opts...)
	return New(f, opts...)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		override string
		want     Summary
		has      []string
		requests []string
	}{
		{
			name:  "seed fails, bulk array succeeds",
			files: map[string]string{"/app/words_dictionary.json": `["dog","cat"]`},
			want:  Summary{Size: 2, Ready: true},
			has:   []string{"dog", "cat"},
			requests: []string{
				"/app/words.txt",
				"/app/public/words.txt",
				"/app/words_dictionary.json",
			},
		},
		{
			name:  "everything fails",
			files: map[string]string{},
			want:  Summary{Size: 0, Ready: false},
			requests: []string{
				"/app/words.txt",
				"/app/public/words.txt",
				"/app/words_dictionary.json",
				"/app/public/words_dictionary.json",
			},
		},
		{
			name:  "seed only",
			files: map[string]string{"/app/words.txt": "dog\ncat"},
			want:  Summary{Size: 2, Ready: true},
			has:   []string{"dog", "cat"},
			requests: []string{
				"/app/words.txt",
				"/app/words_dictionary.json",
				"/app/public/words_dictionary.json",
			},
		},
		{
			name: "public seed and public bulk",
			files: map[string]string{
				"/app/public/words.txt":             "seed",
				"/app/public/words_dictionary.json": `{"dog":1,"cat":1}`,
			},
			want: Summary{Size: 3, Ready: true},
			has:  []string{"seed", "dog", "cat"},
			requests: []string{
				"/app/words.txt",
				"/app/public/words.txt",
				"/app/words_dictionary.json",
				"/app/public/words_dictionary.json",
			},
		},
		{
			name: "first seed candidate wins",
			files: map[string]string{
				"/app/words.txt":             "root",
				"/app/public/words.txt":      "public",
				"/app/words_dictionary.json": "dog\ncat",
			},
			want: Summary{Size: 3, Ready: true},
			has:  []string{"root", "dog", "cat"},
			requests: []string{
				"/app/words.txt",
				"/app/words_dictionary.json",
			},
		},
		{
			name:     "failed override retries the public default",
			files:    map[string]string{"/app/public/words_dictionary.json": `["dog"]`},
			override: "custom/dict.json",
			want:     Summary{Size: 1, Ready: true},
			has:      []string{"dog"},
			requests: []string{
				"/app/words.txt",
				"/app/public/words.txt",
				"/app/custom/dict.json",
				"/app/public/words_dictionary.json",
			},
		},
		{
			name:     "failed public override retries the root default",
			files:    map[string]string{"/app/words_dictionary.json": `["dog"]`},
			override: PublicBulkPath,
			want:     Summary{Size: 1, Ready: true},
			requests: []string{
				"/app/words.txt",
				"/app/public/words.txt",
				"/app/public/words_dictionary.json",
				"/app/words_dictionary.json",
			},
		},
		{
			name: "byte order marks are ignored",
			files: map[string]string{
				"/app/words.txt":             "\xef\xbb\xbfseed",
				"/app/words_dictionary.json": "\xef\xbb\xbf{\"dog\":1,\"cat\":1}",
			},
			want: Summary{Size: 3, Ready: true},
			has:  []string{"seed", "dog", "cat"},
		},
		{
			name:  "empty bulk dictionary still counts as loaded",
			files: map[string]string{"/app/words_dictionary.json": `[]`},
			want:  Summary{Size: 0, Ready: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, server := newSite(t, tt.files)
			ix := newIndex(server, "/app/index.html")

			got := ix.Load(context.Background(), LoadOptions{SourceOverride: tt.override})

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Size, ix.Size())
			assert.Equal(t, tt.want.Ready, ix.Ready())
			for _, w := range tt.has {
				assert.True(t, ix.Has(w), "expected %q after load", w)
			}
			if tt.requests != nil {
				assert.Equal(t, tt.requests, s.requested())
			}
		})
	}
}

func TestLoadAbsoluteOverride(t *testing.T) {
	_, other := newSite(t, map[string]string{"/big.txt": "alpha\nbeta"})
	_, server := newSite(t, map[string]string{})

	ix := newIndex(server, "/")
	got := ix.Load(context.Background(), LoadOptions{SourceOverride: other.URL + "/big.txt"})

	assert.Equal(t, Summary{Size: 2, Ready: true}, got)
	assert.True(t, ix.Has("beta"))
}

func TestLoadIsAdditive(t *testing.T) {
	s, server := newSite(t, map[string]string{
		"/words_dictionary.json": `["dog","cat"]`,
	})
	ix := newIndex(server, "/")

	first := ix.Load(context.Background(), LoadOptions{})
	second := ix.Load(context.Background(), LoadOptions{})

	assert.Equal(t, first, second)
	assert.Equal(t, 2, ix.Size())
	// Each Load goes back to the network.
	assert.Len(t, s.requested(), 6)
}

func TestLoadReadyNeverReverts(t *testing.T) {
	s, server := newSite(t, map[string]string{"/words_dictionary.json": `[]`})
	ix := newIndex(server, "/")

	require.True(t, ix.Load(context.Background(), LoadOptions{}).Ready)

	s.mu.Lock()
	s.files = map[string]string{}
	s.mu.Unlock()

	got := ix.Load(context.Background(), LoadOptions{})
	assert.Equal(t, Summary{Size: 0, Ready: true}, got)
}

func TestLoadLogsWarningOnTotalFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	calls := 0
	f := FetchFunc(func(ctx context.Context, url string) ([]byte, error) {
		calls++
		return nil, errors.New("offline")
	})
	ix := New(f, WithBaseURL("https://example.com/game/"), WithLogger(logger))

	got := ix.Load(context.Background(), LoadOptions{})

	assert.Equal(t, Summary{}, got)
	assert.Equal(t, 4, calls)
	assert.Contains(t, buf.String(), "dictionary load failed")
	assert.Contains(t, buf.String(), "offline")
}

func TestLoadFetchesSequentially(t *testing.T) {
	var (
		mu       sync.Mutex
		inFlight int
		maxSeen  int
	)
	f := FetchFunc(func(ctx context.Context, url string) ([]byte, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxSeen {
			maxSeen = inFlight
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
		return nil, errors.New("not found")
	})

	New(f, WithBaseURL("https://example.com/")).Load(context.Background(), LoadOptions{})
	assert.Equal(t, 1, maxSeen)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"directory base", "https://example.com/game/", "words.txt", "https://example.com/game/words.txt"},
		{"page base", "https://example.com/game/index.html", "public/words.txt", "https://example.com/game/public/words.txt"},
		{"host only", "https://example.com", "words.txt", "https://example.com/words.txt"},
		{"query dropped", "https://example.com/play?level=2", "words.txt", "https://example.com/words.txt"},
		{"file base", "file:///srv/site/", "words.txt", "file:///srv/site/words.txt"},
		{"absolute ref", "https://example.com/", "https://cdn.example.org/d.json", "https://cdn.example.org/d.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := New(nil, WithBaseURL(tt.base))
			got, err := ix.resolve(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAlternate(t *testing.T) {
	ix := New(nil, WithBaseURL("https://example.com/"))
	assert.Equal(t, PublicBulkPath, ix.alternate(BulkPath))
	assert.Equal(t, BulkPath, ix.alternate(PublicBulkPath))
	assert.Equal(t, BulkPath, ix.alternate("https://example.com/public/words_dictionary.json"))
	assert.Equal(t, PublicBulkPath, ix.alternate("https://cdn.example.org/words.json"))
}
