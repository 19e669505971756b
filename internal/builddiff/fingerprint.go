package builddiff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"

	"github.com/mabhi256/jarscope/internal/classfile"
	"github.com/mabhi256/jarscope/internal/model"
)

// HashFunc builds a fresh digest for each class
type HashFunc func() hash.Hash

func NewHashFunc(name string) (HashFunc, error) {
	switch name {
	case "", "sha256":
		return sha256.New, nil
	case "blake3":
		return func() hash.Hash { return blake3.New() }, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", name)
	}
}

// Fingerprint digests the class bytes and records the structure used to explain differences
func Fingerprint(name string, data []byte, newHash HashFunc) (model.ClassFingerprint, error) {
	h := newHash()
	h.Write(data)

	fp := model.ClassFingerprint{
		Name: name,
		Hash: hex.EncodeToString(h.Sum(nil)),
		Size: len(data),
	}
	err := classfile.Walk(data, classfile.Options{SkipCode: true}, func(ev classfile.Event) error {
		switch ev := ev.(type) {
		case classfile.ClassDecl:
			fp.MajorVersion = ev.Major
		case classfile.SourceFile:
			fp.SourceFile = ev.Name
		case classfile.FieldDecl:
			fp.FieldCount++
		case classfile.MethodDecl:
			fp.MethodCount++
		case classfile.LineNumber:
			fp.HasLineNumbers = true
		case classfile.LocalVariable:
			fp.HasLocalVariables = true
		}
		return nil
	})
	if err != nil {
		return model.ClassFingerprint{}, err
	}
	return fp, nil
}
