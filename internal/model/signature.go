package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidArgument = errors.New("invalid argument")

// MethodSignature identifies a method by declaring type (internal slash form),
// name and JVM descriptor. It is comparable and safe to use as a map key.
type MethodSignature struct {
	owner      string
	name       string
	descriptor string
}

func NewMethodSignature(owner, name, descriptor string) (MethodSignature, error) {
	switch {
	case owner == "":
		return MethodSignature{}, fmt.Errorf("%w: method owner is empty", ErrInvalidArgument)
	case name == "":
		return MethodSignature{}, fmt.Errorf("%w: method name is empty", ErrInvalidArgument)
	case descriptor == "":
		return MethodSignature{}, fmt.Errorf("%w: method descriptor is empty", ErrInvalidArgument)
	}
	return MethodSignature{owner: owner, name: name, descriptor: descriptor}, nil
}

// MustMethodSignature panics on invalid input. Intended for literals in tests and tables.
func MustMethodSignature(owner, name, descriptor string) MethodSignature {
	sig, err := NewMethodSignature(owner, name, descriptor)
	if err != nil {
		panic(err)
	}
	return sig
}

func (s MethodSignature) Owner() string      { return s.owner }
func (s MethodSignature) Name() string       { return s.name }
func (s MethodSignature) Descriptor() string { return s.descriptor }

// Readable renders java.util.List.add
func (s MethodSignature) Readable() string {
	return strings.ReplaceAll(s.owner, "/", ".") + "." + s.name
}

// Short renders List.add
func (s MethodSignature) Short() string {
	owner := s.owner
	if i := strings.LastIndexByte(owner, '/'); i >= 0 {
		owner = owner[i+1:]
	}
	return owner + "." + s.name
}

// Full renders java.util.List.add(Ljava/lang/Object;)Z
func (s MethodSignature) Full() string {
	return s.Readable() + s.descriptor
}

func (s MethodSignature) String() string {
	return s.Full()
}

// SignatureSet is a set of method signatures
type SignatureSet map[MethodSignature]struct{}

func NewSignatureSet(sigs ...MethodSignature) SignatureSet {
	set := make(SignatureSet, len(sigs))
	for _, s := range sigs {
		set.Add(s)
	}
	return set
}

func (s SignatureSet) Add(sig MethodSignature) {
	s[sig] = struct{}{}
}

func (s SignatureSet) Contains(sig MethodSignature) bool {
	_, ok := s[sig]
	return ok
}

func (s SignatureSet) Len() int {
	return len(s)
}

// Sorted returns the signatures ordered by their full rendering
func (s SignatureSet) Sorted() []MethodSignature {
	out := make([]MethodSignature, 0, len(s))
	for sig := range s {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Full() < out[j].Full() })
	return out
}
