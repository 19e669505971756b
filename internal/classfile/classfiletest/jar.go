package classfiletest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

type jarEntry struct {
	name string
	data []byte
}

// JarBuilder collects entries for a test archive
type JarBuilder struct {
	manifest [][2]string
	entries  []jarEntry
}

func NewJar() *JarBuilder {
	return &JarBuilder{}
}

// Manifest sets main-section attributes given as alternating keys and values
func (j *JarBuilder) Manifest(kv ...string) *JarBuilder {
	for i := 0; i+1 < len(kv); i += 2 {
		j.manifest = append(j.manifest, [2]string{kv[i], kv[i+1]})
	}
	return j
}

// Class adds a class under its internal name
func (j *JarBuilder) Class(classes ...*ClassBuilder) *JarBuilder {
	for _, c := range classes {
		j.entries = append(j.entries, jarEntry{name: c.Name() + ".class", data: c.Bytes()})
	}
	return j
}

func (j *JarBuilder) Entry(name string, data []byte) *JarBuilder {
	j.entries = append(j.entries, jarEntry{name: name, data: data})
	return j
}

// Write stores the archive as dir/name and returns its path
func (j *JarBuilder) Write(t testing.TB, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	if len(j.manifest) > 0 {
		var sb strings.Builder
		sb.WriteString("Manifest-Version: 1.0\r\n")
		for _, kv := range j.manifest {
			fmt.Fprintf(&sb, "%s: %s\r\n", kv[0], kv[1])
		}
		sb.WriteString("\r\n")
		w, err := zw.Create("META-INF/MANIFEST.MF")
		require.NoError(t, err)
		_, err = w.Write([]byte(sb.String()))
		require.NoError(t, err)
	}
	for _, e := range j.entries {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return path
}
