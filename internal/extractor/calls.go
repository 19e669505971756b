package extractor

import (
	"context"

	"github.com/mabhi256/jarscope/internal/archive"
	"github.com/mabhi256/jarscope/internal/classfile"
	"github.com/mabhi256/jarscope/internal/model"
)

// LambdaMetafactory stands in for the runtime-resolved target of every invokedynamic
const LambdaMetafactory = "java/lang/invoke/LambdaMetafactory"

type CallResult struct {
	Calls      model.CallSet
	Reflective []model.ReflectiveCall
	Errors     []model.EntryError
}

func newCallResult() *CallResult {
	return &CallResult{Calls: make(model.CallSet)}
}

// ExtractCalls collects every invocation made by code in the archive along with
// the reflection patterns detected around them.
func (e *Extractor) ExtractCalls(ctx context.Context, path string) (*CallResult, error) {
	res := newCallResult()
	failures, err := e.forEachClass(ctx, path, func(entry archive.ClassEntry, data []byte) error {
		return CallsFromClass(entry.ClassName(), data, res)
	})
	if err != nil {
		return nil, err
	}
	res.Errors = failures
	e.logger.Debug("extracted calls", "archive", path,
		"calls", res.Calls.Len(), "reflective", len(res.Reflective))
	return res, nil
}

// methodScan is the per-method state of the call scan. The string register holds
// the most recent string literal loaded in the method and is cleared whenever a
// reflection pattern consumes it.
type methodScan struct {
	site       model.CallSite
	lastString string
	hasString  bool
	calls      []model.MethodCall
	reflective []model.ReflectiveCall
}

func (s *methodScan) invoke(insn classfile.MethodInsn) error {
	sig, err := model.NewMethodSignature(insn.Owner, insn.Name, insn.Descriptor)
	if err != nil {
		return err
	}
	call, err := model.NewMethodCall(sig, model.InvokeKindFromOpcode(insn.Opcode), s.site)
	if err != nil {
		return err
	}
	s.calls = append(s.calls, call)

	rule, ok := matchReflection(insn.Owner, insn.Name, insn.Descriptor)
	if !ok {
		return nil
	}
	rc := model.ReflectiveCall{Kind: rule.kind, Site: s.site, Pattern: rule.pattern()}
	if rule.withTarget && s.hasString {
		rc.Target, rc.TargetKnown = s.lastString, true
	}
	s.reflective = append(s.reflective, rc)
	s.lastString, s.hasString = "", false
	return nil
}

func (s *methodScan) invokeDynamic(insn classfile.InvokeDynamicInsn) error {
	sig, err := model.NewMethodSignature(LambdaMetafactory, insn.Name, insn.Descriptor)
	if err != nil {
		return err
	}
	call, err := model.NewMethodCall(sig, model.InvokeDynamic, s.site)
	if err != nil {
		return err
	}
	s.calls = append(s.calls, call)

	for _, arg := range insn.BootstrapArgs {
		if h, ok := arg.(classfile.Handle); ok && isReflectionOwner(h.Owner) {
			s.reflective = append(s.reflective, model.ReflectiveCall{
				Kind:    model.ReflectLambda,
				Site:    s.site,
				Pattern: model.ReflectLambda.Pattern(),
			})
			break
		}
	}
	return nil
}

// CallsFromClass scans one class file. className is the dotted caller name
// recorded on every call site. Results are merged into res only if the whole
// class decodes.
func CallsFromClass(className string, data []byte, res *CallResult) error {
	var scan *methodScan
	var calls []model.MethodCall
	var reflective []model.ReflectiveCall

	flush := func() {
		if scan != nil {
			calls = append(calls, scan.calls...)
			reflective = append(reflective, scan.reflective...)
			scan = nil
		}
	}

	err := classfile.Walk(data, classfile.Options{SkipDebug: true}, func(ev classfile.Event) error {
		switch ev := ev.(type) {
		case classfile.MethodDecl:
			flush()
			scan = &methodScan{site: model.CallSite{Class: className, Method: ev.Name}}
		case classfile.MethodEnd:
			flush()
		case classfile.ConstantLoad:
			if s, ok := ev.Value.(string); ok && scan != nil {
				scan.lastString, scan.hasString = s, true
			}
		case classfile.MethodInsn:
			if scan != nil {
				return scan.invoke(ev)
			}
		case classfile.InvokeDynamicInsn:
			if scan != nil {
				return scan.invokeDynamic(ev)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	flush()

	for _, c := range calls {
		res.Calls.Add(c)
	}
	res.Reflective = append(res.Reflective, reflective...)
	return nil
}
