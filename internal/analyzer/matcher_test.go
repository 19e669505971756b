package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jarscope/internal/archive"
	"github.com/mabhi256/jarscope/internal/classfile"
	"github.com/mabhi256/jarscope/internal/classfile/classfiletest"
	"github.com/mabhi256/jarscope/internal/extractor"
	"github.com/mabhi256/jarscope/internal/logging"
	"github.com/mabhi256/jarscope/internal/model"
)

type fakeExtractor struct {
	mu    sync.Mutex
	defs  map[string]model.SignatureSet
	calls map[string]model.CallSet
	err   error
	seen  []string
}

func (f *fakeExtractor) record(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, path)
}

func (f *fakeExtractor) ExtractDefinitions(_ context.Context, path string) (*extractor.DefinitionResult, error) {
	f.record("defs:" + path)
	if f.err != nil {
		return nil, f.err
	}
	return &extractor.DefinitionResult{Definitions: f.defs[path]}, nil
}

func (f *fakeExtractor) ExtractCalls(_ context.Context, path string) (*extractor.CallResult, error) {
	f.record("calls:" + path)
	if f.err != nil {
		return nil, f.err
	}
	return &extractor.CallResult{
		Calls:      f.calls[path],
		Reflective: []model.ReflectiveCall{{Kind: model.ReflectClassForName, Pattern: "Class.forName()"}},
	}, nil
}

func mustCall(t *testing.T, owner, name, desc string, kind model.InvokeKind, caller string) model.MethodCall {
	t.Helper()
	c, err := model.NewMethodCall(model.MustMethodSignature(owner, name, desc), kind, model.CallSite{Class: caller, Method: "m"})
	require.NoError(t, err)
	return c
}

func TestMatchSubsetLaw(t *testing.T) {
	defs := model.NewSignatureSet(
		model.MustMethodSignature("lib/A", "x", "()V"),
		model.MustMethodSignature("lib/A", "y", "(I)V"),
		model.MustMethodSignature("lib/B", "z", "()V"),
	)
	calls := model.NewCallSet(
		mustCall(t, "lib/A", "x", "()V", model.InvokeVirtual, "app.One"),
		mustCall(t, "lib/A", "x", "()V", model.InvokeVirtual, "app.Two"),
		mustCall(t, "lib/A", "y", "(J)V", model.InvokeVirtual, "app.One"), // descriptor mismatch
		mustCall(t, "java/lang/String", "length", "()I", model.InvokeVirtual, "app.One"),
	)

	res := Match(defs, calls)
	assert.Equal(t, 2, res.MatchingCallCount())
	assert.Equal(t, 4, res.SourceCallCount)
	assert.Equal(t, 3, res.TargetDefinitionCount)
	for c := range res.Matching {
		assert.True(t, calls.Contains(c))
		assert.True(t, defs.Contains(c.Signature()))
	}
	assert.InDelta(t, 100.0/3, res.Coverage(), 1e-9)
}

func TestAnalyzeWithFakes(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		f := &fakeExtractor{
			defs: map[string]model.SignatureSet{
				"lib.jar": model.NewSignatureSet(model.MustMethodSignature("lib/A", "x", "()V")),
				"app.jar": model.NewSignatureSet(model.MustMethodSignature("app/Main", "cb", "()V")),
			},
			calls: map[string]model.CallSet{
				"app.jar": model.NewCallSet(mustCall(t, "lib/A", "x", "()V", model.InvokeStatic, "app.Main")),
				"lib.jar": model.NewCallSet(),
			},
		}
		m := NewMatcher(f, f, logging.Discard(), parallel)

		res, err := m.AnalyzeBidirectional(context.Background(), "app.jar", "lib.jar")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Forward.MatchingCallCount())
		assert.Equal(t, "app.jar", res.Forward.SourceID)
		assert.Len(t, res.Forward.Reflective, 1)
		assert.Equal(t, 0, res.Reverse.MatchingCallCount())
		assert.Equal(t, "app.jar → lib.jar: 1 calls\nlib.jar → app.jar: 0 calls", res.Summary())
		assert.ElementsMatch(t, []string{"defs:lib.jar", "calls:app.jar", "defs:app.jar", "calls:lib.jar"}, f.seen)
	}
}

func TestAnalyzePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeExtractor{err: boom}
	m := NewMatcher(f, f, logging.Discard(), true)

	_, err := m.Analyze(context.Background(), "a.jar", "b.jar")
	assert.ErrorIs(t, err, boom)

	_, err = m.AnalyzeBidirectional(context.Background(), "a.jar", "b.jar")
	assert.ErrorIs(t, err, boom)
}

// One call from the source to Foo.bar()V, which the target defines
func TestAnalyzeArchivesEndToEnd(t *testing.T) {
	dir := t.TempDir()
	source := classfiletest.NewJar().
		Class(classfiletest.NewClass("app/Main").
			Method(classfiletest.AccStatic, "main", "([Ljava/lang/String;)V").
			Invoke(classfile.OpInvokeVirtual, "Foo", "bar", "()V").
			Invoke(classfile.OpInvokeVirtual, "java/io/PrintStream", "println", "()V").
			Return()).
		Write(t, dir, "source.jar")
	target := classfiletest.NewJar().
		Class(classfiletest.NewClass("Foo").
			Method(classfiletest.AccPublic, "bar", "()V").Return().
			Method(classfiletest.AccPublic, "baz", "()V").Return()).
		Write(t, dir, "target.jar")

	ex := extractor.New(logging.Discard(), extractor.Options{})
	m := NewMatcher(ex, ex, logging.Discard(), true)

	res, err := m.Analyze(context.Background(), source, target)
	require.NoError(t, err)
	require.Equal(t, 1, res.MatchingCallCount())
	for c := range res.Matching {
		assert.Equal(t, model.MustMethodSignature("Foo", "bar", "()V"), c.Signature())
		assert.Equal(t, model.InvokeVirtual, c.Kind())
		assert.Equal(t, model.CallSite{Class: "app.Main", Method: "main"}, c.Site())
	}
	assert.Equal(t, 2, res.SourceCallCount)
	assert.InDelta(t, 50.0, res.Coverage(), 1e-9)
	assert.Empty(t, res.Errors)

	_, err = m.Analyze(context.Background(), source, filepath.Join(dir, "missing.jar"))
	assert.ErrorIs(t, err, archive.ErrNotFound)
}
