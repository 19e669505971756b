package extractor

import (
	"context"

	"github.com/mabhi256/jarscope/internal/archive"
	"github.com/mabhi256/jarscope/internal/classfile"
	"github.com/mabhi256/jarscope/internal/model"
)

const (
	accBridge    = 0x0040
	accSynthetic = 0x1000
)

type DefinitionResult struct {
	Definitions model.SignatureSet
	Errors      []model.EntryError
}

// ExtractDefinitions collects every method declared in the archive, leaving out
// compiler-generated synthetic and bridge methods.
func (e *Extractor) ExtractDefinitions(ctx context.Context, path string) (*DefinitionResult, error) {
	res := &DefinitionResult{Definitions: make(model.SignatureSet)}
	failures, err := e.forEachClass(ctx, path, func(_ archive.ClassEntry, data []byte) error {
		return DefinitionsFromClass(data, res.Definitions)
	})
	if err != nil {
		return nil, err
	}
	res.Errors = failures
	e.logger.Debug("extracted definitions", "archive", path, "methods", res.Definitions.Len())
	return res, nil
}

// DefinitionsFromClass adds the methods declared by one class file to defs.
// Nothing is added if the class fails to decode part way.
func DefinitionsFromClass(data []byte, defs model.SignatureSet) error {
	var owner string
	var found []model.MethodSignature

	err := classfile.Walk(data, classfile.Options{SkipCode: true, SkipDebug: true}, func(ev classfile.Event) error {
		switch ev := ev.(type) {
		case classfile.ClassDecl:
			owner = ev.Name
		case classfile.MethodDecl:
			if ev.Access&(accSynthetic|accBridge) != 0 {
				return nil
			}
			sig, err := model.NewMethodSignature(owner, ev.Name, ev.Descriptor)
			if err != nil {
				return err
			}
			found = append(found, sig)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, sig := range found {
		defs.Add(sig)
	}
	return nil
}
