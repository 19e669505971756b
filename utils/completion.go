package utils

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

// ArchiveExtensions are the JVM archive types accepted on the command line
var ArchiveExtensions = []string{".jar", ".war", ".ear"}

type completionFunc func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective)

// CompleteArchives suggests directories and JVM archives, up to maxArgs positional arguments
func CompleteArchives(maxArgs int) completionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) >= maxArgs {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return completeFiles(toComplete, ArchiveExtensions)
	}
}

func completeFiles(toComplete string, extensions []string) ([]string, cobra.ShellCompDirective) {
	dir := filepath.Dir(toComplete)
	prefix := filepath.Base(toComplete)

	switch {
	case !strings.Contains(toComplete, string(filepath.Separator)):
		dir = "."
		prefix = toComplete
	case strings.HasSuffix(toComplete, string(filepath.Separator)):
		dir = filepath.Clean(toComplete)
		prefix = ""
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var suggestions []string
	for _, file := range files {
		name := file.Name()
		if strings.HasPrefix(name, ".") || !strings.HasPrefix(name, prefix) {
			continue
		}

		suggestion := name
		if dir != "." {
			suggestion = filepath.Join(dir, name)
		}

		if file.IsDir() {
			suggestions = append(suggestions, suggestion+"/")
		} else if HasExtension(name, extensions) {
			suggestions = append(suggestions, suggestion)
		}
	}

	slices.Sort(suggestions)
	return suggestions, cobra.ShellCompDirectiveNoFileComp
}

// HasExtension matches case-insensitively
func HasExtension(filename string, extensions []string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
