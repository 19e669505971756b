// Package extractor pulls method definitions and method calls out of archives.
package extractor

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/mabhi256/jarscope/internal/archive"
	"github.com/mabhi256/jarscope/internal/model"
)

type Options struct {
	// SkipInnerClasses ignores entries whose file name contains '$'
	SkipInnerClasses bool
}

type Extractor struct {
	logger *log.Logger
	opts   Options
}

func New(logger *log.Logger, opts Options) *Extractor {
	return &Extractor{logger: logger, opts: opts}
}

// forEachClass opens the archive, reads every class entry and hands its bytes to fn.
// Entries that fail to read or decode are collected and skipped.
func (e *Extractor) forEachClass(ctx context.Context, path string, fn func(archive.ClassEntry, []byte) error) ([]model.EntryError, error) {
	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	logger := e.logger.With("archive", a.ID())
	var failures []model.EntryError
	entries := a.ClassEntries()
	logger.Debug("scanning archive", "classes", len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return failures, fmt.Errorf("scanning %s: %w", a.ID(), err)
		}
		if e.opts.SkipInnerClasses && entry.IsInner() {
			continue
		}

		data, err := entry.Read()
		if err == nil {
			err = fn(entry, data)
		}
		if err != nil {
			logger.Warn("skipping class", "entry", entry.Name(), "err", err)
			failures = append(failures, model.EntryError{Entry: entry.Name(), Err: err})
		}
	}
	return failures, nil
}
