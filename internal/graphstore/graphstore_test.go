package graphstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jarscope/internal/logging"
	"github.com/mabhi256/jarscope/internal/model"
)

type statement struct {
	cypher string
	params map[string]any
}

type fakeRunner struct {
	statements []statement
	failOn     string
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) error {
	if f.failOn != "" && strings.Contains(cypher, f.failOn) {
		return errors.New("neo4j unavailable")
	}
	f.statements = append(f.statements, statement{cypher, params})
	return nil
}

func (f *fakeRunner) matching(fragment string) []statement {
	var out []statement
	for _, s := range f.statements {
		if strings.Contains(s.cypher, fragment) {
			out = append(out, s)
		}
	}
	return out
}

func fixture(t *testing.T, calls int) *model.AnalysisResult {
	t.Helper()
	set := model.NewCallSet()
	for i := range calls {
		c, err := model.NewMethodCall(model.MustMethodSignature("lib/Foo", "bar", "()V"),
			model.InvokeVirtual, model.CallSite{Class: "app.Main", Method: string(rune('a' + i))})
		require.NoError(t, err)
		set.Add(c)
	}
	return &model.AnalysisResult{
		SourceID:              "/work/app.jar",
		TargetID:              "/work/lib.jar",
		TargetDefinitionCount: 2,
		Matching:              set,
		Reflective: []model.ReflectiveCall{
			{Kind: model.ReflectMethodInvoke, Site: model.CallSite{Class: "app.Main", Method: "run"}, Pattern: "Method.invoke()"},
		},
	}
}

func TestCreateIndexes(t *testing.T) {
	f := &fakeRunner{}
	require.NoError(t, NewExporter(f, logging.Discard(), 10).CreateIndexes(context.Background()))
	require.Len(t, f.statements, 2)
	for _, s := range f.statements {
		assert.Contains(t, s.cypher, "IF NOT EXISTS")
	}
}

func TestExportLoadsGraph(t *testing.T) {
	f := &fakeRunner{}
	e := NewExporter(f, logging.Discard(), 2)

	require.NoError(t, e.Export(context.Background(), fixture(t, 5)))

	archives := f.matching("MERGE (a:JarArchive")
	require.Len(t, archives, 1)
	rows := archives[0].params["batch"].([]map[string]any)
	assert.Equal(t, "app.jar", rows[0]["name"])
	assert.Equal(t, "/work/lib.jar", rows[1]["path"])

	methods := f.matching(":DEFINED_IN]->(a)")
	require.Len(t, methods, 1)
	method := methods[0].params["batch"].([]map[string]any)[0]
	assert.Equal(t, "lib.Foo.bar", method["key"])
	assert.Equal(t, "lib.Foo", method["owner"])
	assert.Equal(t, "()V", method["descriptor"])

	// five edges in batches of two
	calls := f.matching(":CALLS {kind: row.kind")
	require.Len(t, calls, 3)
	assert.Len(t, calls[2].params["batch"].([]map[string]any), 1)
	first := calls[0].params["batch"].([]map[string]any)[0]
	assert.Equal(t, "INVOKEVIRTUAL", first["kind"])
	assert.Equal(t, "app.Main.a", first["caller"])
	assert.Equal(t, "lib.Foo.bar", first["callee"])
	assert.Equal(t, "()V", first["descriptor"])

	reflects := f.matching(":REFLECTS")
	require.Len(t, reflects, 1)
	row := reflects[0].params["batch"].([]map[string]any)[0]
	assert.Equal(t, "unknown", row["target"])
	assert.Equal(t, "METHOD_INVOKE", row["kind"])

	dep := f.matching(":DEPENDS_ON")
	require.Len(t, dep, 1)
	assert.Equal(t, 5, dep[0].params["calls"])
	assert.Equal(t, 50.0, dep[0].params["coverage"])
}

// lib.jar calls back into app.Main.run, which app.jar also uses as a caller
func TestExportBidirectionalSharesMethodNodes(t *testing.T) {
	forward := fixture(t, 1)
	callback, err := model.NewMethodCall(model.MustMethodSignature("app/Main", "run", "()V"),
		model.InvokeStatic, model.CallSite{Class: "lib.Foo", Method: "bar"})
	require.NoError(t, err)
	reverse := &model.AnalysisResult{
		SourceID: "/work/lib.jar",
		TargetID: "/work/app.jar",
		Matching: model.NewCallSet(callback),
	}

	f := &fakeRunner{}
	require.NoError(t, NewExporter(f, logging.Discard(), 10).Export(context.Background(), forward, reverse))

	keys := map[string]bool{}
	for _, s := range f.matching(":DEFINED_IN]->(a)") {
		for _, row := range s.params["batch"].([]map[string]any) {
			keys[row["key"].(string)] = true
		}
	}
	for _, s := range f.matching(":CALLS {kind: row.kind") {
		for _, row := range s.params["batch"].([]map[string]any) {
			keys[row["caller"].(string)] = true
		}
	}
	assert.Equal(t, map[string]bool{"lib.Foo.bar": true, "app.Main.run": true, "app.Main.a": true}, keys)
	for _, s := range f.matching("MERGE (m:JavaMethod") {
		assert.Contains(t, s.cypher, "{key: row.key}")
	}
}

func TestExportSkipsEmptyBatches(t *testing.T) {
	f := &fakeRunner{}
	r := &model.AnalysisResult{SourceID: "a.jar", TargetID: "b.jar", Matching: model.NewCallSet()}

	require.NoError(t, NewExporter(f, logging.Discard(), 0).Export(context.Background(), r))
	assert.Empty(t, f.matching(":CALLS"))
	assert.Empty(t, f.matching(":REFLECTS"))
	assert.Len(t, f.matching(":DEPENDS_ON"), 1)
}

func TestExportWrapsErrors(t *testing.T) {
	f := &fakeRunner{failOn: ":CALLS"}
	err := NewExporter(f, logging.Discard(), 10).Export(context.Background(), fixture(t, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app.jar → lib.jar")
	assert.Empty(t, f.matching(":DEPENDS_ON"))
}

func TestCloseWithoutDriver(t *testing.T) {
	assert.NoError(t, NewExporter(&fakeRunner{}, logging.Discard(), 1).Close(context.Background()))
}
