// Package archive reads class entries and manifest metadata from JAR, WAR and EAR files.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	ErrNotFound = errors.New("archive not found")
	ErrRead     = errors.New("archive unreadable")
)

const manifestPath = "META-INF/MANIFEST.MF"

// entries that describe a module or package rather than a class
var descriptorEntries = map[string]bool{
	"module-info.class":  true,
	"package-info.class": true,
}

type Archive struct {
	path string
	zr   *zip.ReadCloser
}

func Open(p string) (*Archive, error) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrRead, p)
	}

	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRead, p, err)
	}
	return &Archive{path: p, zr: zr}, nil
}

func (a *Archive) Path() string {
	return a.path
}

// ID is the archive's file name, used to label results
func (a *Archive) ID() string {
	return path.Base(strings.ReplaceAll(a.path, "\\", "/"))
}

func (a *Archive) Close() error {
	return a.zr.Close()
}

// ClassEntries lists class entries sorted by entry name, excluding module and package descriptors
func (a *Archive) ClassEntries() []ClassEntry {
	var entries []ClassEntry
	for _, f := range a.zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		if descriptorEntries[path.Base(f.Name)] {
			continue
		}
		entries = append(entries, ClassEntry{file: f})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].file.Name < entries[j].file.Name
	})
	return entries
}

// Manifest returns the main section of META-INF/MANIFEST.MF. A missing manifest is
// not an error and yields an empty result.
func (a *Archive) Manifest() (Manifest, error) {
	for _, f := range a.zr.File {
		if !strings.EqualFold(f.Name, manifestPath) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Manifest{}, fmt.Errorf("%w: failed to open manifest: %w", ErrRead, err)
		}
		defer rc.Close()
		return ParseManifest(rc)
	}
	return Manifest{}, nil
}

type ClassEntry struct {
	file *zip.File
}

// Name is the entry path, e.g. com/example/Foo.class
func (e ClassEntry) Name() string {
	return e.file.Name
}

// ClassName is the dotted entry path without the .class suffix
func (e ClassEntry) ClassName() string {
	return strings.ReplaceAll(strings.TrimSuffix(e.file.Name, ".class"), "/", ".")
}

// IsInner reports whether the entry is a nested or anonymous class
func (e ClassEntry) IsInner() bool {
	return strings.Contains(path.Base(e.file.Name), "$")
}

func (e ClassEntry) Size() uint64 {
	return e.file.UncompressedSize64
}

func (e ClassEntry) Read() ([]byte, error) {
	rc, err := e.file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrRead, e.file.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", ErrRead, e.file.Name, err)
	}
	return data, nil
}
