package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Shortener is the subset of the reducer batch needs.
type Shortener interface {
	Shorten(input string) (string, error)
}

// Item is the outcome of shortening a single input.
type Item struct {
	Input    string        `json:"input" yaml:"input"`
	Output   string        `json:"output,omitempty" yaml:"output,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Valid reports whether the input was shortened without error.
func (i *Item) Valid() bool {
	return i.Error == ""
}

// Run shortens all inputs using at most limit goroutines.
// Items are returned in input order; invalid inputs are reported per item
// and do not stop the batch.
func Run(ctx context.Context, s Shortener, inputs []string, limit int) ([]*Item, error) {
	if limit < 1 {
		limit = 1
	}

	items := make([]*Item, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	start := time.Now()
	for i, in := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t := time.Now()
			item := &Item{Input: in}
			out, err := s.Shorten(in)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Output = out
			}
			item.Duration = time.Since(t)
			items[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	slog.Debug("batch done",
		"inputs", len(inputs),
		"limit", limit,
		"duration", time.Since(start).String(),
	)
	return items, nil
}
