package services

import (
	"context"
	"fmt"
	"iter"

	"github.com/inorbit222/Trinity-News-Indexer/internal/core/domain"
)

// PageFunc fetches up to limit rows with a key strictly greater than afterID,
// in ascending key order.
type PageFunc[T any] func(ctx context.Context, afterID int64, limit int) ([]T, error)

// Cursor is a resumable keyset pager over a filtered row set.
//
// Each page is requested with WHERE id > last ORDER BY id LIMIT size, so rows
// leaving the filter while the pass runs (because the caller enriched them)
// never shift the rows still ahead of the cursor.
type Cursor[T any] struct {
	fetch PageFunc[T]
	key   func(T) int64
	size  int
	last  int64
	pages int
	done  bool
}

// NewCursor creates a cursor with the given page size.
// Non-positive sizes fall back to domain.DefaultBatchSize.
func NewCursor[T any](fetch PageFunc[T], key func(T) int64, size int) *Cursor[T] {
	if size <= 0 {
		size = domain.DefaultBatchSize
	}
	return &Cursor[T]{fetch: fetch, key: key, size: size}
}

// StartAfter resumes the pass after id.
func (c *Cursor[T]) StartAfter(id int64) *Cursor[T] {
	c.last = id
	c.done = false
	return c
}

// LastID returns the key of the last row handed out.
func (c *Cursor[T]) LastID() int64 {
	return c.last
}

// Pages returns the number of non-empty pages handed out.
func (c *Cursor[T]) Pages() int {
	return c.pages
}

// Next returns the next page, or nil once the pass is exhausted.
func (c *Cursor[T]) Next(ctx context.Context) ([]T, error) {
	if c.done {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := c.fetch(ctx, c.last, c.size)
	if err != nil {
		return nil, fmt.Errorf("fetch page after %d: %w", c.last, err)
	}
	if len(rows) == 0 {
		c.done = true
		return nil, nil
	}

	// A page must move strictly forward or the pass would never end.
	prev := c.last
	for _, row := range rows {
		k := c.key(row)
		if k <= prev {
			return nil, fmt.Errorf("%w: page after %d returned key %d out of order", domain.ErrInvalidInput, c.last, k)
		}
		prev = k
	}

	c.last = prev
	c.pages++
	if len(rows) < c.size {
		c.done = true
	}
	return rows, nil
}

// All iterates every remaining page. Iteration stops after the first error.
func (c *Cursor[T]) All(ctx context.Context) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		for {
			rows, err := c.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if rows == nil {
				return
			}
			if !yield(rows, nil) {
				return
			}
		}
	}
}

func documentKey(d domain.Document) int64 { return d.ID }

func entityKey(e domain.Entity) int64 { return e.ID }

func embeddingKey(e domain.EmbeddingVector) int64 { return e.DocumentID }
