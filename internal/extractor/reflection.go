package extractor

import (
	"strings"

	"github.com/mabhi256/jarscope/internal/model"
)

type reflectionRule struct {
	kind model.ReflectionKind
	// label overrides the kind's pattern text
	label      string
	withTarget bool
}

type memberKey struct {
	owner string
	name  string
}

// known reflection entry points, matched on owner and name
var reflectionRules = map[memberKey]reflectionRule{
	{"java/lang/Class", "forName"}:                   {kind: model.ReflectClassForName, withTarget: true},
	{"java/lang/Class", "getMethod"}:                 {kind: model.ReflectMethodLookup, label: "getMethod()", withTarget: true},
	{"java/lang/Class", "getDeclaredMethod"}:         {kind: model.ReflectMethodLookup, label: "getDeclaredMethod()", withTarget: true},
	{"java/lang/reflect/Method", "invoke"}:           {kind: model.ReflectMethodInvoke},
	{"java/lang/reflect/Constructor", "newInstance"}: {kind: model.ReflectConstructorNewInstance},
	{"java/lang/Class", "newInstance"}:               {kind: model.ReflectClassNewInstance, label: "Class.newInstance()"},
	{"java/lang/reflect/Field", "get"}:               {kind: model.ReflectFieldRead},
	{"java/lang/reflect/Field", "set"}:               {kind: model.ReflectFieldWrite},
	{"java/lang/Class", "getName"}:                   {kind: model.ReflectClassNameQuery},
}

// getClass is inherited from Object, so any owner may appear in the instruction
const (
	getClassName       = "getClass"
	getClassDescriptor = "()Ljava/lang/Class;"
)

const reflectPackagePrefix = "java/lang/reflect/"

// matchReflection looks up an invocation in the reflection table
func matchReflection(owner, name, descriptor string) (reflectionRule, bool) {
	if rule, ok := reflectionRules[memberKey{owner, name}]; ok {
		return rule, true
	}
	if name == getClassName && descriptor == getClassDescriptor {
		return reflectionRule{kind: model.ReflectTypeQuery}, true
	}
	return reflectionRule{}, false
}

func (r reflectionRule) pattern() string {
	if r.label != "" {
		return r.label
	}
	return r.kind.Pattern()
}

func isReflectionOwner(owner string) bool {
	return strings.HasPrefix(owner, reflectPackagePrefix)
}
