package wordindex

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Conventional locations, relative to the base URL.
const (
	SeedPath       = "words.txt"
	PublicSeedPath = "public/words.txt"
	BulkPath       = "words_dictionary.json"
	PublicBulkPath = "public/words_dictionary.json"
)

// Summary is the state of the index after a Load.
type Summary struct {
	Size  int  `json:"size"`
	Ready bool `json:"ready"`
}

// LoadOptions tunes a single Load.
type LoadOptions struct {
	// SourceOverride replaces the default bulk dictionary location.
	// Relative values are resolved against the base URL.
	SourceOverride string
}

// outcome is the result of one pipeline stage.
type outcome struct {
	source string
	added  int
	err    error
}

func (o outcome) ok() bool { return o.err == nil }

// Load runs the seed stage and then the bulk stage, merging whatever they
// fetch into the index. It never fails: transport errors are absorbed and
// reflected in the returned Summary.
func (ix *Index) Load(ctx context.Context, opts LoadOptions) Summary {
	seed := ix.loadSeed(ctx)
	if seed.ok() {
		ix.logger.Debug("seed list loaded", "source", seed.source, "added", seed.added)
	}

	bulk := ix.loadBulk(ctx, opts.SourceOverride)
	if bulk.ok() {
		ix.logger.Info("dictionary loaded", "source", bulk.source, "added", bulk.added, "size", ix.Size())
		ix.markReady(false)
	} else {
		ix.logger.Warn("dictionary load failed", "error", bulk.err)
		ix.markReady(true)
	}

	return ix.summary()
}

// loadSeed tries each seed candidate in order and stops at the first one
// that can be fetched.
func (ix *Index) loadSeed(ctx context.Context) outcome {
	var last outcome
	for _, path := range []string{SeedPath, PublicSeedPath} {
		target, err := ix.resolve(path)
		if err != nil {
			last = outcome{source: path, err: err}
			continue
		}
		body, err := ix.fetcher.Fetch(ctx, target)
		if err != nil {
			ix.logger.Debug("seed candidate unavailable", "source", target, "error", err)
			last = outcome{source: target, err: err}
			continue
		}
		return outcome{source: target, added: ix.AddFromText(string(body))}
	}
	return last
}

// loadBulk fetches the large dictionary, retrying once at the alternate
// conventional location when the first attempt fails.
func (ix *Index) loadBulk(ctx context.Context, override string) outcome {
	first := BulkPath
	if override != "" {
		first = override
	}

	res := ix.fetchBulk(ctx, first)
	if res.ok() {
		return res
	}
	ix.logger.Debug("dictionary unavailable, trying alternate location", "source", res.source, "error", res.err)

	return ix.fetchBulk(ctx, ix.alternate(first))
}

func (ix *Index) fetchBulk(ctx context.Context, path string) outcome {
	target, err := ix.resolve(path)
	if err != nil {
		return outcome{source: path, err: err}
	}
	body, err := ix.fetcher.Fetch(ctx, target)
	if err != nil {
		return outcome{source: target, err: err}
	}
	return outcome{source: target, added: ix.AddFromBody(body)}
}

// alternate picks the retry location. A first attempt at the public
// default falls back to the root default; anything else, including an
// override, falls back to the public default.
func (ix *Index) alternate(first string) string {
	target, err := ix.resolve(first)
	if err != nil {
		return PublicBulkPath
	}
	if public, err := ix.resolve(PublicBulkPath); err == nil && target == public {
		return BulkPath
	}
	return PublicBulkPath
}

// resolve turns a location relative to the base URL into an absolute one.
// Absolute references pass through untouched.
func (ix *Index) resolve(ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid location %q: %w", ref, err)
	}
	if ix.base == "" {
		return r.String(), nil
	}
	base, err := baseURL(ix.base)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(r).String(), nil
}

// baseURL returns the directory of a page location: a path ending in "/"
// is kept, otherwise the last segment is dropped.
func baseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", raw, err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		if i := strings.LastIndex(u.Path, "/"); i >= 0 {
			u.Path = u.Path[:i+1]
		} else {
			u.Path = "/"
		}
	}
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
