package model

import "fmt"

// ClassFingerprint summarises one class entry for build comparison
type ClassFingerprint struct {
	Name              string // dotted entry path
	Hash              string // full hex digest of the entry bytes
	MajorVersion      uint16
	MethodCount       int
	FieldCount        int
	HasLineNumbers    bool
	HasLocalVariables bool
	SourceFile        string
	Size              int
}

func (f ClassFingerprint) JavaVersion() string {
	return JavaVersion(f.MajorVersion)
}

func (f ClassFingerprint) HasDebugInfo() bool {
	return f.HasLineNumbers || f.HasLocalVariables
}

// ShortHash truncates the digest for display
func (f ClassFingerprint) ShortHash(n int) string {
	if n <= 0 || n >= len(f.Hash) {
		return f.Hash
	}
	return f.Hash[:n]
}

// JavaVersion labels a class file major version, e.g. 52 -> "Java 8"
func JavaVersion(major uint16) string {
	switch {
	case major == 0:
		return "unknown"
	case major >= 45 && major <= 48:
		return fmt.Sprintf("Java 1.%d", int(major)-44)
	default:
		return fmt.Sprintf("Java %d", int(major)-44)
	}
}
