// Package graphstore exports dependency analysis results into Neo4j.
package graphstore

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mabhi256/jarscope/internal/config"
	"github.com/mabhi256/jarscope/internal/model"
)

// Runner executes a single Cypher statement
type Runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	_, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(r.database))
	return err
}

// Exporter loads archives, methods and the edges between them using batched UNWIND queries
type Exporter struct {
	runner    Runner
	logger    *log.Logger
	batchSize int
	close     func(context.Context) error
}

func NewExporter(runner Runner, logger *log.Logger, batchSize int) *Exporter {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Exporter{runner: runner, logger: logger, batchSize: batchSize}
}

// Connect opens a driver and checks the server is reachable
func Connect(ctx context.Context, cfg config.Neo4jConfig, logger *log.Logger) (*Exporter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", cfg.URI, err)
	}

	e := NewExporter(&driverRunner{driver: driver, database: cfg.Database}, logger, cfg.BatchSize)
	e.close = driver.Close
	return e, nil
}

func (e *Exporter) Close(ctx context.Context) error {
	if e.close == nil {
		return nil
	}
	return e.close(ctx)
}

var indexes = []string{
	"CREATE INDEX jar_archive_name IF NOT EXISTS FOR (n:JarArchive) ON (n.name)",
	"CREATE INDEX java_method_key IF NOT EXISTS FOR (n:JavaMethod) ON (n.key)",
}

func (e *Exporter) CreateIndexes(ctx context.Context) error {
	for _, q := range indexes {
		if err := e.runner.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// Methods are keyed by owner and name so a method seen as a callee in one direction and
// as a caller in the other is the same node. Overload descriptors are collected on the
// node and each CALLS edge records the descriptor it resolved to.
const (
	mergeArchives = `UNWIND $batch AS row
		 MERGE (a:JarArchive {name: row.name})
		 SET a.path = row.path`

	mergeMethods = `UNWIND $batch AS row
		 MERGE (m:JavaMethod {key: row.key})
		 SET m.owner = row.owner, m.name = row.name,
		     m.descriptors = CASE WHEN row.descriptor IN coalesce(m.descriptors, [])
		                     THEN m.descriptors ELSE coalesce(m.descriptors, []) + row.descriptor END
		 WITH m, row
		 MATCH (a:JarArchive {name: row.archive})
		 MERGE (m)-[:DEFINED_IN]->(a)`

	mergeCalls = `UNWIND $batch AS row
		 MERGE (caller:JavaMethod {key: row.caller})
		 SET caller.owner = row.caller_class, caller.name = row.caller_method
		 WITH caller, row
		 MATCH (src:JarArchive {name: row.source})
		 MERGE (caller)-[:DEFINED_IN]->(src)
		 WITH caller, row
		 MATCH (callee:JavaMethod {key: row.callee})
		 MERGE (caller)-[:CALLS {kind: row.kind, descriptor: row.descriptor}]->(callee)`

	mergeReflects = `UNWIND $batch AS row
		 MERGE (caller:JavaMethod {key: row.caller})
		 SET caller.owner = row.caller_class, caller.name = row.caller_method
		 WITH caller, row
		 MATCH (t:JarArchive {name: row.target_archive})
		 MERGE (caller)-[r:REFLECTS {kind: row.kind, target: row.target}]->(t)
		 SET r.pattern = row.pattern`

	mergeDependency = `MATCH (s:JarArchive {name: $source}), (t:JarArchive {name: $target})
		 MERGE (s)-[d:DEPENDS_ON]->(t)
		 SET d.calls = $calls, d.coverage = $coverage, d.reflection_sites = $reflection`
)

// Export writes every result; archives are keyed by file name
func (e *Exporter) Export(ctx context.Context, results ...*model.AnalysisResult) error {
	for _, r := range results {
		if err := e.exportResult(ctx, r); err != nil {
			return fmt.Errorf("failed to export %s → %s: %w", filepath.Base(r.SourceID), filepath.Base(r.TargetID), err)
		}
	}
	return nil
}

func (e *Exporter) exportResult(ctx context.Context, r *model.AnalysisResult) error {
	source, target := filepath.Base(r.SourceID), filepath.Base(r.TargetID)
	logger := e.logger.With("source", source, "target", target)

	archives := []map[string]any{
		{"name": source, "path": r.SourceID},
		{"name": target, "path": r.TargetID},
	}
	if err := e.runBatched(ctx, mergeArchives, archives); err != nil {
		return err
	}

	calls := r.Matching.Sorted()
	var methods []map[string]any
	for _, sig := range r.Matching.Signatures().Sorted() {
		methods = append(methods, map[string]any{
			"key":        sig.Readable(),
			"owner":      strings.ReplaceAll(sig.Owner(), "/", "."),
			"name":       sig.Name(),
			"descriptor": sig.Descriptor(),
			"archive":    target,
		})
	}
	logger.Debug("loading methods", "count", len(methods))
	if err := e.runBatched(ctx, mergeMethods, methods); err != nil {
		return err
	}

	edges := make([]map[string]any, 0, len(calls))
	for _, c := range calls {
		edges = append(edges, map[string]any{
			"caller":        c.Site().String(),
			"caller_class":  c.Site().Class,
			"caller_method": c.Site().Method,
			"callee":        c.Signature().Readable(),
			"descriptor":    c.Signature().Descriptor(),
			"kind":          c.Kind().String(),
			"source":        source,
		})
	}
	logger.Debug("loading call edges", "count", len(edges))
	if err := e.runBatched(ctx, mergeCalls, edges); err != nil {
		return err
	}

	var reflects []map[string]any
	for _, rc := range r.Reflective {
		t := rc.Target
		if !rc.HasTarget() {
			t = "unknown"
		}
		reflects = append(reflects, map[string]any{
			"caller":         rc.Site.String(),
			"caller_class":   rc.Site.Class,
			"caller_method":  rc.Site.Method,
			"kind":           rc.Kind.String(),
			"target":         t,
			"pattern":        rc.Pattern,
			"target_archive": target,
		})
	}
	logger.Debug("loading reflection edges", "count", len(reflects))
	if err := e.runBatched(ctx, mergeReflects, reflects); err != nil {
		return err
	}

	err := e.runner.Run(ctx, mergeDependency, map[string]any{
		"source":     source,
		"target":     target,
		"calls":      r.MatchingCallCount(),
		"coverage":   r.Coverage(),
		"reflection": len(r.Reflective),
	})
	if err != nil {
		return err
	}
	logger.Info("exported to neo4j", "methods", len(methods), "calls", len(edges), "reflection", len(reflects))
	return nil
}

// runBatched splits rows into UNWIND batches; empty input runs nothing
func (e *Exporter) runBatched(ctx context.Context, cypher string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += e.batchSize {
		end := min(start+e.batchSize, len(rows))
		if err := e.runner.Run(ctx, cypher, map[string]any{"batch": rows[start:end]}); err != nil {
			return err
		}
	}
	return nil
}
