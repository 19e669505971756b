// Package server exposes the dependency analyzer and build comparison over MCP.
package server

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mabhi256/jarscope/internal/analyzer"
	"github.com/mabhi256/jarscope/internal/builddiff"
	"github.com/mabhi256/jarscope/internal/config"
	"github.com/mabhi256/jarscope/internal/extractor"
	"github.com/mabhi256/jarscope/internal/report"
)

// Server wraps the MCP server and connects it to both engines.
type Server struct {
	mcp     *mcp.Server
	matcher *analyzer.Matcher
	differ  *builddiff.Engine
	cfg     *config.Config
	logger  *log.Logger
}

func New(cfg *config.Config, logger *log.Logger, version string) (*Server, error) {
	ex := extractor.New(logger, extractor.Options{SkipInnerClasses: cfg.Analysis.SkipInnerClasses})
	differ, err := builddiff.New(logger, builddiff.Options{
		Hash:       cfg.Diff.Hash,
		Parallel:   cfg.Diff.Parallel,
		HashLength: cfg.Output.HashLength,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		matcher: analyzer.NewMatcher(ex, ex, logger, cfg.Analysis.Parallel),
		differ:  differ,
		cfg:     cfg,
		logger:  logger,
	}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "jarscope",
		Version: version,
	}, nil)
	s.registerTools()
	return s, nil
}

// Run serves on stdio until the client disconnects or ctx ends
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

type analyzeArgs struct {
	Source        string `json:"source" jsonschema:"Path to the JAR whose method calls are examined"`
	Target        string `json:"target" jsonschema:"Path to the JAR whose method definitions are matched"`
	Bidirectional *bool  `json:"bidirectional,omitempty" jsonschema:"Also analyse target to source. Defaults to the configured value."`
}

type compareArgs struct {
	First  string `json:"first" jsonschema:"Path to the first build of the archive"`
	Second string `json:"second" jsonschema:"Path to the second build of the archive"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "analyze_dependencies",
		Description: "Find which methods in the source JAR call methods defined in the target JAR, " +
			"including reflection sites that static analysis cannot resolve. Returns a JSON report.",
	}, s.analyzeDependencies)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "compare_builds",
		Description: "Compare two builds of the same JAR class by class and explain why their bytecode differs " +
			"(JDK version, debug info, member counts). Returns a JSON report with a recommendation.",
	}, s.compareBuilds)
}

func (s *Server) analyzeDependencies(ctx context.Context, _ *mcp.CallToolRequest, args analyzeArgs) (*mcp.CallToolResult, any, error) {
	source, err := archivePath("source", args.Source)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	target, err := archivePath("target", args.Target)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	bidirectional := s.cfg.Analysis.Bidirectional
	if args.Bidirectional != nil {
		bidirectional = *args.Bidirectional
	}

	opts := report.Options{Format: "json", SampleCalls: s.cfg.Output.SampleCalls}
	var buf bytes.Buffer
	if bidirectional {
		res, err := s.matcher.AnalyzeBidirectional(ctx, source, target)
		if err != nil {
			return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil, nil
		}
		err = report.WriteDependencies(&buf, opts, res.Forward, res.Reverse)
		if err != nil {
			return nil, nil, err
		}
	} else {
		res, err := s.matcher.Analyze(ctx, source, target)
		if err != nil {
			return errorResult(fmt.Sprintf("analysis failed: %v", err)), nil, nil
		}
		if err := report.WriteDependencies(&buf, opts, res, nil); err != nil {
			return nil, nil, err
		}
	}
	return textResult(buf.String()), nil, nil
}

func (s *Server) compareBuilds(ctx context.Context, _ *mcp.CallToolRequest, args compareArgs) (*mcp.CallToolResult, any, error) {
	first, err := archivePath("first", args.First)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	second, err := archivePath("second", args.Second)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	res, cmpErr := s.differ.Compare(ctx, first, second)
	if res == nil {
		return errorResult(fmt.Sprintf("comparison failed: %v", cmpErr)), nil, nil
	}

	// a failed comparison still carries warnings and a recommendation
	var buf bytes.Buffer
	if err := report.WriteDiff(&buf, report.Options{Format: "json"}, res); err != nil {
		return nil, nil, err
	}
	if cmpErr != nil {
		return errorResult(buf.String()), nil, nil
	}
	return textResult(buf.String()), nil, nil
}

func archivePath(name, p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("invalid %s path: %v", name, err)
	}
	return abs, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
