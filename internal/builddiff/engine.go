// Package builddiff explains why two builds of the same code differ at the bytecode level.
package builddiff

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/jarscope/internal/archive"
	"github.com/mabhi256/jarscope/internal/model"
)

type Options struct {
	Hash       string // sha256 or blake3
	Parallel   bool
	HashLength int // digest characters shown in details
}

type Engine struct {
	logger  *log.Logger
	newHash HashFunc
	opts    Options
}

func New(logger *log.Logger, opts Options) (*Engine, error) {
	newHash, err := NewHashFunc(opts.Hash)
	if err != nil {
		return nil, err
	}
	if opts.HashLength <= 0 {
		opts.HashLength = 16
	}
	return &Engine{logger: logger, newHash: newHash, opts: opts}, nil
}

// snapshot is everything read from one archive
type snapshot struct {
	id           string
	metadata     model.JarMetadata
	fingerprints map[string]model.ClassFingerprint
	failed       map[string]bool // classes that could not be fingerprinted
	warnings     []string
}

// Compare fingerprints both archives and classifies every class that differs.
// If either archive cannot be opened the returned result is still usable: it is
// marked failed, carries the error as a warning, and err is non-nil.
func (e *Engine) Compare(ctx context.Context, first, second string) (*model.DiffResult, error) {
	start := time.Now()
	res := &model.DiffResult{
		FirstID:  filepath.Base(first),
		SecondID: filepath.Base(second),
	}

	var a, b *snapshot
	tasks := []func(context.Context) error{
		func(ctx context.Context) (err error) { a, err = e.snapshot(ctx, first); return err },
		func(ctx context.Context) (err error) { b, err = e.snapshot(ctx, second); return err },
	}
	var err error
	if e.opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for _, task := range tasks {
			g.Go(func() error { return task(gctx) })
		}
		err = g.Wait()
	} else {
		for _, task := range tasks {
			if err = task(ctx); err != nil {
				break
			}
		}
	}
	if err != nil {
		res.Failed = true
		res.Warnings = append(res.Warnings, err.Error())
		res.Elapsed = time.Since(start)
		e.logger.Error("build comparison failed", "first", first, "second", second, "err", err)
		return res, err
	}

	res.FirstMetadata, res.SecondMetadata = a.metadata, b.metadata
	res.Warnings = append(append(res.Warnings, a.warnings...), b.warnings...)
	// a class that failed on either side is left out of the comparison
	for name := range a.failed {
		delete(b.fingerprints, name)
	}
	for name := range b.failed {
		delete(a.fingerprints, name)
	}
	res.Differences = e.diffClasses(a, b)
	res.FirstCount = len(a.fingerprints)
	res.SecondCount = len(b.fingerprints)
	res.Elapsed = time.Since(start)

	e.logger.Info("build comparison complete",
		"first", res.FirstID, "second", res.SecondID,
		"identical", res.IdenticalCount(), "different", res.DifferentCount(),
		"only_first", res.OnlyInFirstCount(), "only_second", res.OnlyInSecondCount(),
		"jdk_mismatch", res.HasJdkMismatch(),
	)
	return res, nil
}

func (e *Engine) snapshot(ctx context.Context, path string) (*snapshot, error) {
	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	s := &snapshot{
		id:           a.ID(),
		fingerprints: map[string]model.ClassFingerprint{},
		failed:       map[string]bool{},
	}
	s.metadata, err = readMetadata(a)
	if err != nil {
		s.warnings = append(s.warnings, fmt.Sprintf("%s: manifest ignored: %v", s.id, err))
	}

	for _, entry := range a.ClassEntries() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fingerprinting %s: %w", s.id, err)
		}
		name := entry.ClassName()
		data, err := entry.Read()
		if err == nil {
			s.fingerprints[name], err = Fingerprint(name, data, e.newHash)
		}
		if err != nil {
			delete(s.fingerprints, name)
			s.failed[name] = true
			s.warnings = append(s.warnings, fmt.Sprintf("%s: %s skipped: %v", s.id, entry.Name(), err))
			e.logger.Warn("skipping class", "archive", s.id, "entry", entry.Name(), "err", err)
		}
	}
	return s, nil
}

func readMetadata(a *archive.Archive) (model.JarMetadata, error) {
	m, err := a.Manifest()
	if err != nil {
		return model.JarMetadata{}, err
	}
	return model.JarMetadata{
		BuildJDK:  m.First("Build-Jdk-Spec", "Build-Jdk"),
		CreatedBy: m.Get("Created-By"),
		BuiltBy:   m.Get("Built-By"),
		Timestamp: m.Get("Build-Timestamp"),
		MainClass: m.Get("Main-Class"),
	}, nil
}

// diffClasses walks the union of class names
func (e *Engine) diffClasses(a, b *snapshot) []model.ClassDiff {
	names := map[string]struct{}{}
	for n := range a.fingerprints {
		names[n] = struct{}{}
	}
	for n := range b.fingerprints {
		names[n] = struct{}{}
	}

	var diffs []model.ClassDiff
	for name := range names {
		fa, inA := a.fingerprints[name]
		fb, inB := b.fingerprints[name]
		switch {
		case !inB:
			diffs = append(diffs, model.ClassDiff{ClassName: name, Kind: model.OnlyInFirst, Reason: "Class only exists in the first archive (" + a.id + ")"})
		case !inA:
			diffs = append(diffs, model.ClassDiff{ClassName: name, Kind: model.OnlyInSecond, Reason: "Class only exists in the second archive (" + b.id + ")"})
		case fa.Hash != fb.Hash:
			reason, causes := Explain(fa, fb)
			diffs = append(diffs, model.ClassDiff{
				ClassName: name,
				Kind:      model.Different,
				Reason:    reason,
				Causes:    causes,
				Details:   Details(fa, fb, e.opts.HashLength),
			})
		}
	}
	sort.Slice(diffs, func(i, j int) bool { return diffs[i].ClassName < diffs[j].ClassName })
	return diffs
}
