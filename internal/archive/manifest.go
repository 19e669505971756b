package archive

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Manifest holds main-section attributes keyed by name
type Manifest struct {
	attrs map[string]string
}

// Get looks up an attribute. Names are case-insensitive.
func (m Manifest) Get(name string) string {
	return m.attrs[strings.ToLower(name)]
}

// First returns the first non-empty value among names
func (m Manifest) First(names ...string) string {
	for _, n := range names {
		if v := m.Get(n); v != "" {
			return v
		}
	}
	return ""
}

func (m Manifest) Len() int {
	return len(m.attrs)
}

/*
ParseManifest reads the main section of a JAR manifest.

	Name: value
	Long-Name: value that wraps onto
	 a continuation line starting with one space

The main section ends at the first blank line. Lines without a colon are ignored.
*/
func ParseManifest(r io.Reader) (Manifest, error) {
	m := Manifest{attrs: map[string]string{}}
	scanner := bufio.NewScanner(r)

	var lastKey string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, " ") {
			if lastKey != "" {
				m.attrs[lastKey] += line[1:]
			}
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			lastKey = ""
			continue
		}
		lastKey = strings.ToLower(strings.TrimSpace(key))
		m.attrs[lastKey] = strings.TrimPrefix(value, " ")
	}
	if err := scanner.Err(); err != nil {
		return Manifest{}, fmt.Errorf("%w: failed to read manifest: %w", ErrRead, err)
	}
	return m, nil
}
