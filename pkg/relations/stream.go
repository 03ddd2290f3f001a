// Package relations models the lazily paged username lists the site
// exposes: followers, followings and media likers.
package relations

import (
	"context"
	"io"
)

// Stream yields usernames in batches. Next returns io.EOF once the stream
// is exhausted; a batch may be empty without the stream being finished.
type Stream interface {
	Next(ctx context.Context) ([]string, error)
}

// Page is one response of a cursor-paginated listing.
type Page struct {
	Usernames  []string
	NextCursor string
	HasNext    bool
}

// FetchFunc retrieves the page starting at cursor. The first call receives
// an empty cursor.
type FetchFunc func(ctx context.Context, cursor string) (Page, error)

// PagedStream walks a cursor-paginated listing one page per Next call.
type PagedStream struct {
	fetch  FetchFunc
	cursor string
	done   bool
}

// NewPagedStream returns a stream over fetch.
func NewPagedStream(fetch FetchFunc) *PagedStream {
	return &PagedStream{fetch: fetch}
}

func (s *PagedStream) Next(ctx context.Context) ([]string, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := s.fetch(ctx, s.cursor)
	if err != nil {
		return nil, err
	}

	if !page.HasNext || page.NextCursor == "" {
		s.done = true
	}
	s.cursor = page.NextCursor

	if len(page.Usernames) == 0 && s.done {
		return nil, io.EOF
	}
	return page.Usernames, nil
}

// SliceStream serves a fixed list in batches of BatchSize.
type SliceStream struct {
	items     []string
	batchSize int
	pos       int
}

// FromSlice returns a stream over items. A non-positive batchSize yields
// everything in one batch.
func FromSlice(items []string, batchSize int) *SliceStream {
	if batchSize <= 0 {
		batchSize = max(len(items), 1)
	}
	return &SliceStream{items: items, batchSize: batchSize}
}

func (s *SliceStream) Next(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.items) {
		return nil, io.EOF
	}
	end := min(s.pos+s.batchSize, len(s.items))
	batch := s.items[s.pos:end]
	s.pos = end
	return batch, nil
}

// Collect drains s. A positive limit stops early once that many usernames
// have been read.
func Collect(ctx context.Context, s Stream, limit int) ([]string, error) {
	var out []string
	for limit <= 0 || len(out) < limit {
		batch, err := s.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, batch...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Set drains s into a membership set.
func Set(ctx context.Context, s Stream) (map[string]struct{}, error) {
	all, err := Collect(ctx, s, 0)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(all))
	for _, u := range all {
		set[u] = struct{}{}
	}
	return set, nil
}
