// Package report renders analysis and build-diff results as styled text, JSON or YAML.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/mabhi256/jarscope/internal/model"
)

var ErrUnknownFormat = errors.New("unknown output format")

type Options struct {
	Format      string // cli, json or yaml
	SampleCalls int
}

// WriteDependencies renders one analysis direction, or both when reverse is non-nil
func WriteDependencies(w io.Writer, opts Options, forward, reverse *model.AnalysisResult) error {
	switch opts.Format {
	case "", "cli":
		printDependencies(w, opts, forward, reverse)
		return nil
	case "json", "yaml":
		return encode(w, opts.Format, NewDependencyReport(forward, reverse, opts.SampleCalls))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func WriteDiff(w io.Writer, opts Options, res *model.DiffResult) error {
	switch opts.Format {
	case "", "cli":
		printDiff(w, res)
		return nil
	case "json", "yaml":
		return encode(w, opts.Format, NewDiffReport(res))
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}

func encode(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json report: %w", err)
	}
	return nil
}
