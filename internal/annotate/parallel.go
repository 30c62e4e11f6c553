package annotate

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-annotate/internal/row"
	"github.com/inodb/vibe-annotate/internal/table"
	"github.com/inodb/vibe-annotate/internal/vcf"
)

// WorkItem holds a parsed variant ready for annotation.
type WorkItem struct {
	Seq     int
	Line    int // input line the variant was read from
	Variant *vcf.Variant
}

// WorkResult holds the annotated row for a single variant.
type WorkResult struct {
	Seq     int
	Line    int
	Variant *vcf.Variant
	Row     *row.Row
	Err     error
}

// ParallelAnnotate annotates work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0 or negative, runtime.NumCPU() is used.
func (a *Annotator) ParallelAnnotate(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				r, err := a.Process(ctx, item.Variant)
				results <- WorkResult{
					Seq:     item.Seq,
					Line:    item.Line,
					Variant: item.Variant,
					Row:     r,
					Err:     err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// AnnotateAll annotates every variant from parser and returns the rows in
// input order. workers == 1 processes records sequentially; workers <= 0
// uses one worker per CPU. The first failing record aborts the run.
func (a *Annotator) AnnotateAll(ctx context.Context, parser vcf.VariantParser, workers int) (*table.Table, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if workers == 1 {
		return a.annotateSequential(ctx, parser)
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	var parseErr error

	go func() {
		defer close(items)
		seq := 0
		for {
			v, err := parser.Next()
			if err != nil {
				parseErr = fmt.Errorf("read variant after line %d: %w", parser.LineNumber(), err)
				return
			}
			if v == nil {
				return
			}
			select {
			case items <- WorkItem{Seq: seq, Line: parser.LineNumber(), Variant: v}:
			case <-ctx.Done():
				return
			}
			seq++
		}
	}()

	results := a.ParallelAnnotate(ctx, items, workers)

	t := table.New()
	if err := OrderedCollect(results, func(r WorkResult) error {
		if r.Err != nil {
			cancel()
			return annotateError(r.Variant, r.Line, r.Err)
		}
		t.Append(r.Row)
		return nil
	}); err != nil {
		return nil, err
	}

	if parseErr != nil {
		return nil, parseErr
	}

	a.logVariantCount(t.Len())
	return t, nil
}

func (a *Annotator) annotateSequential(ctx context.Context, parser vcf.VariantParser) (*table.Table, error) {
	t := table.New()
	for {
		v, err := parser.Next()
		if err != nil {
			return nil, fmt.Errorf("read variant after line %d: %w", parser.LineNumber(), err)
		}
		if v == nil {
			break
		}
		r, err := a.Process(ctx, v)
		if err != nil {
			return nil, annotateError(v, parser.LineNumber(), err)
		}
		t.Append(r)
	}

	a.logVariantCount(t.Len())
	return t, nil
}

func annotateError(v *vcf.Variant, line int, err error) error {
	return fmt.Errorf("annotate %s:%d (line %d): %w", v.Chrom, v.Pos, line, err)
}

func (a *Annotator) logVariantCount(n int) {
	if n == 0 {
		a.logger.Info("0 variants processed")
		return
	}
	a.logger.Debug("variants annotated", zap.Int("count", n))
}
