package model

import (
	"fmt"
	"sort"
)

type InvokeKind int

const (
	InvokeVirtual InvokeKind = iota
	InvokeStatic
	InvokeSpecial
	InvokeInterface
	InvokeDynamic
	invokeKindCount
)

// InvokeKinds lists every kind in display order
var InvokeKinds = [invokeKindCount]InvokeKind{
	InvokeVirtual, InvokeStatic, InvokeSpecial, InvokeInterface, InvokeDynamic,
}

// InvokeKindFromOpcode maps an invoke opcode to its kind. Unrecognised opcodes
// are reported as dynamic rather than rejected.
func InvokeKindFromOpcode(opcode uint8) InvokeKind {
	switch opcode {
	case 182:
		return InvokeVirtual
	case 183:
		return InvokeSpecial
	case 184:
		return InvokeStatic
	case 185:
		return InvokeInterface
	default:
		return InvokeDynamic
	}
}

func (k InvokeKind) String() string {
	switch k {
	case InvokeVirtual:
		return "INVOKEVIRTUAL"
	case InvokeStatic:
		return "INVOKESTATIC"
	case InvokeSpecial:
		return "INVOKESPECIAL"
	case InvokeInterface:
		return "INVOKEINTERFACE"
	case InvokeDynamic:
		return "INVOKEDYNAMIC"
	default:
		return fmt.Sprintf("InvokeKind(%d)", int(k))
	}
}

func (k InvokeKind) Description() string {
	switch k {
	case InvokeVirtual:
		return "Instance method"
	case InvokeStatic:
		return "Static method"
	case InvokeSpecial:
		return "Constructor/super/private"
	case InvokeInterface:
		return "Interface method"
	case InvokeDynamic:
		return "Lambda/method reference"
	default:
		return "Unknown"
	}
}

func (k InvokeKind) Example() string {
	switch k {
	case InvokeVirtual:
		return "obj.method()"
	case InvokeStatic:
		return "Class.method()"
	case InvokeSpecial:
		return "new Obj()"
	case InvokeInterface:
		return "list.size()"
	case InvokeDynamic:
		return "x -> x.toString()"
	default:
		return ""
	}
}

// CallSite is the calling class (dotted name) and method
type CallSite struct {
	Class  string
	Method string
}

func (c CallSite) String() string {
	return c.Class + "." + c.Method
}

// MethodCall is one invocation edge. Identity is the whole tuple, so the same
// target called from two methods counts twice.
type MethodCall struct {
	target MethodSignature
	kind   InvokeKind
	site   CallSite
}

func NewMethodCall(target MethodSignature, kind InvokeKind, site CallSite) (MethodCall, error) {
	if site.Class == "" || site.Method == "" {
		return MethodCall{}, fmt.Errorf("%w: call site %q is incomplete", ErrInvalidArgument, site.String())
	}
	return MethodCall{target: target, kind: kind, site: site}, nil
}

func (c MethodCall) Signature() MethodSignature { return c.target }
func (c MethodCall) Kind() InvokeKind           { return c.kind }
func (c MethodCall) Site() CallSite             { return c.site }

// Readable renders INVOKEVIRTUAL java.util.List.add
func (c MethodCall) Readable() string {
	return c.kind.String() + " " + c.target.Readable()
}

func (c MethodCall) Detailed() string {
	return fmt.Sprintf("%s%s [called from %s]", c.Readable(), c.target.Descriptor(), c.site)
}

type CallSet map[MethodCall]struct{}

func NewCallSet(calls ...MethodCall) CallSet {
	set := make(CallSet, len(calls))
	for _, c := range calls {
		set.Add(c)
	}
	return set
}

func (s CallSet) Add(c MethodCall) {
	s[c] = struct{}{}
}

func (s CallSet) Contains(c MethodCall) bool {
	_, ok := s[c]
	return ok
}

func (s CallSet) Len() int {
	return len(s)
}

// Signatures returns the distinct call targets
func (s CallSet) Signatures() SignatureSet {
	out := make(SignatureSet)
	for c := range s {
		out.Add(c.target)
	}
	return out
}

// Sorted orders calls by caller, then target, then kind
func (s CallSet) Sorted() []MethodCall {
	out := make([]MethodCall, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.site != b.site {
			if a.site.Class != b.site.Class {
				return a.site.Class < b.site.Class
			}
			return a.site.Method < b.site.Method
		}
		if a.target != b.target {
			return a.target.Full() < b.target.Full()
		}
		return a.kind < b.kind
	})
	return out
}
