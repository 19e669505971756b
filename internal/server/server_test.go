package server

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jarscope/internal/classfile"
	"github.com/mabhi256/jarscope/internal/classfile/classfiletest"
	"github.com/mabhi256/jarscope/internal/config"
	"github.com/mabhi256/jarscope/internal/logging"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(config.Default(), logging.Discard(), "test")
	require.NoError(t, err)
	return s
}

func jars(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	source := classfiletest.NewJar().
		Class(classfiletest.NewClass("app/Main").
			Method(classfiletest.AccStatic, "main", "([Ljava/lang/String;)V").
			Invoke(classfile.OpInvokeVirtual, "Foo", "bar", "()V").
			Return()).
		Write(t, dir, "source.jar")
	target := classfiletest.NewJar().
		Manifest("Build-Jdk-Spec", "17").
		Class(classfiletest.NewClass("Foo").Method(classfiletest.AccPublic, "bar", "()V").Return()).
		Write(t, dir, "target.jar")
	return source, target
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestAnalyzeDependencies(t *testing.T) {
	s := newServer(t)
	source, target := jars(t)

	oneWay := false
	res, _, err := s.analyzeDependencies(context.Background(), nil, analyzeArgs{Source: source, Target: target, Bidirectional: &oneWay})
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var rep struct {
		Result struct {
			MatchingCallCount int      `json:"matchingCallCount"`
			SampleCalls       []string `json:"sampleCalls"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &rep))
	assert.Equal(t, 1, rep.Result.MatchingCallCount)
	assert.Equal(t, []string{"INVOKEVIRTUAL Foo.bar"}, rep.Result.SampleCalls)

	// bidirectional by default
	res, _, err = s.analyzeDependencies(context.Background(), nil, analyzeArgs{Source: source, Target: target})
	require.NoError(t, err)
	assert.Contains(t, text(t, res), `"direction2"`)
}

func TestAnalyzeDependenciesErrors(t *testing.T) {
	s := newServer(t)
	source, _ := jars(t)

	res, _, err := s.analyzeDependencies(context.Background(), nil, analyzeArgs{Source: source})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "target is required", text(t, res))

	res, _, err = s.analyzeDependencies(context.Background(), nil,
		analyzeArgs{Source: source, Target: filepath.Join(t.TempDir(), "missing.jar")})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "analysis failed")
}

func TestCompareBuilds(t *testing.T) {
	s := newServer(t)
	_, target := jars(t)

	res, _, err := s.compareBuilds(context.Background(), nil, compareArgs{First: target, Second: target})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &rep))
	assert.Equal(t, true, rep["areIdentical"])
	assert.Equal(t, "Builds are identical. No action needed.", rep["recommendation"])

	res, _, err = s.compareBuilds(context.Background(), nil, compareArgs{Second: target})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "first is required", text(t, res))
}

func TestCompareBuildsReportsDegradedResult(t *testing.T) {
	s := newServer(t)
	_, target := jars(t)
	missing := filepath.Join(t.TempDir(), "missing.jar")

	res, _, err := s.compareBuilds(context.Background(), nil, compareArgs{First: target, Second: missing})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	var rep struct {
		Failed         bool     `json:"failed"`
		Warnings       []string `json:"warnings"`
		Recommendation string   `json:"recommendation"`
		Jar2           string   `json:"jar2"`
	}
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &rep))
	assert.True(t, rep.Failed)
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "archive not found")
	assert.Contains(t, rep.Recommendation, "Unable to compare builds")
	assert.Equal(t, "missing.jar", rep.Jar2)
}

func TestToolsOverTransport(t *testing.T) {
	ctx := context.Background()
	s := newServer(t)
	_, target := jars(t)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := s.mcp.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"analyze_dependencies", "compare_builds"}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "compare_builds",
		Arguments: map[string]any{"first": target, "second": target},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), `"areIdentical": true`)
}
