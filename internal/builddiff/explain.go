package builddiff

import (
	"fmt"
	"strings"

	"github.com/mabhi256/jarscope/internal/model"
)

const unexplained = "unexplained — likely constant-pool ordering, compiler optimization differences, or embedded timestamps."

// Explain lists why two fingerprints with different hashes differ. Clauses follow
// a fixed order from most to least actionable.
func Explain(a, b model.ClassFingerprint) (string, []model.Cause) {
	var clauses []string
	var causes []model.Cause
	add := func(cause model.Cause, clause string) {
		clauses = append(clauses, clause)
		causes = append(causes, cause)
	}

	if a.MajorVersion != b.MajorVersion {
		add(model.CauseVersion, fmt.Sprintf("Bytecode version: %s vs %s", a.JavaVersion(), b.JavaVersion()))
	}
	if a.MethodCount != b.MethodCount {
		add(model.CauseMethodCount, fmt.Sprintf("Method count: %d vs %d", a.MethodCount, b.MethodCount))
	}
	if a.FieldCount != b.FieldCount {
		add(model.CauseFieldCount, fmt.Sprintf("Field count: %d vs %d", a.FieldCount, b.FieldCount))
	}
	if a.HasLineNumbers != b.HasLineNumbers {
		add(model.CauseLineNumbers, "Line number info differs")
	}
	if a.HasLocalVariables != b.HasLocalVariables {
		add(model.CauseLocalVariables, "Local variable debug info differs")
	}
	if a.Size != b.Size {
		add(model.CauseSize, fmt.Sprintf("Byte length: %d vs %d", a.Size, b.Size))
	}

	if len(clauses) == 0 {
		return unexplained, []model.Cause{model.CauseUnexplained}
	}
	return strings.Join(clauses, "; "), causes
}

// Details summarises both sides of a differing class
func Details(a, b model.ClassFingerprint, hashLen int) string {
	side := func(f model.ClassFingerprint) string {
		return fmt.Sprintf("%s, %d methods, %d fields, debug=%t, %d bytes, hash %s",
			f.JavaVersion(), f.MethodCount, f.FieldCount, f.HasDebugInfo(), f.Size, f.ShortHash(hashLen))
	}
	return "first: " + side(a) + " | second: " + side(b)
}
