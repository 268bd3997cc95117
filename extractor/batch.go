package extractor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"doujin-resolver/internal/types"

	"golang.org/x/sync/errgroup"
)

// Summary counts the outcome of a batch run
type Summary struct {
	Total    int `json:"total"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}

// ReadInputs returns the non-blank lines of r, trimmed
func ReadInputs(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var inputs []string
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read inputs: %w", err)
	}
	return inputs, nil
}

// Run resolves every input and calls emit with each row in input order. Items are
// processed by config.Workers workers; a failed item is logged and the batch goes on.
// Items that produced no row at all are passed to emit as nil.
func (e *Extractor) Run(ctx context.Context, inputs []string, emit func(input string, row *types.Row) error) (Summary, error) {
	startTime := time.Now()
	summary := Summary{Total: len(inputs)}
	e.logger.Infof("Starting batch of %d items with %d workers", len(inputs), e.workers())

	rows := make([]*types.Row, len(inputs))
	done := make([]chan struct{}, len(inputs))
	for i := range done {
		done[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers() + 1)

	// the emitter drains results in input order while workers run ahead
	g.Go(func() error {
		for i, input := range inputs {
			select {
			case <-done[i]:
			case <-gctx.Done():
				return gctx.Err()
			}
			if err := emit(input, rows[i]); err != nil {
				return fmt.Errorf("failed to emit row for %s: %w", input, err)
			}
		}
		return nil
	})

	workers := make(chan struct{}, e.workers())
	for i, input := range inputs {
		select {
		case workers <- struct{}{}:
		case <-gctx.Done():
			return summary, g.Wait()
		}
		i, input := i, input
		g.Go(func() error {
			defer func() { <-workers }()
			defer close(done[i])

			row, err := e.Resolve(gctx, input)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				e.logger.WithError(err).Warnf("Error processing %s", input)
			}
			rows[i] = row
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	for _, row := range rows {
		if row != nil && row.Resolved {
			summary.Resolved++
		} else {
			summary.Failed++
		}
	}
	e.logger.Infof("Batch completed in %v: %d resolved, %d failed", time.Since(startTime), summary.Resolved, summary.Failed)
	return summary, nil
}

func (e *Extractor) workers() int {
	if e.config.Workers < 1 {
		return 1
	}
	return e.config.Workers
}

// WriteJSON saves rows to filename as indented JSON
func WriteJSON(filename string, rows []*types.Row) error {
	jsonData, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rows to JSON: %w", err)
	}
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write rows to file: %w", err)
	}
	return nil
}
