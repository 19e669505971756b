package model

import "fmt"

type ReflectionKind int

const (
	ReflectClassForName ReflectionKind = iota
	ReflectMethodLookup
	ReflectMethodInvoke
	ReflectConstructorNewInstance
	ReflectClassNewInstance
	ReflectFieldRead
	ReflectFieldWrite
	ReflectTypeQuery
	ReflectClassNameQuery
	ReflectLambda
	reflectionKindCount
)

var ReflectionKinds = [reflectionKindCount]ReflectionKind{
	ReflectClassForName,
	ReflectMethodLookup,
	ReflectMethodInvoke,
	ReflectConstructorNewInstance,
	ReflectClassNewInstance,
	ReflectFieldRead,
	ReflectFieldWrite,
	ReflectTypeQuery,
	ReflectClassNameQuery,
	ReflectLambda,
}

type reflectionInfo struct {
	name        string
	pattern     string
	description string
	implication string
}

var reflectionTable = [reflectionKindCount]reflectionInfo{
	ReflectClassForName: {
		"CLASS_FOR_NAME", "Class.forName()",
		"Dynamically loads a class by name at runtime",
		"Hidden class dependency - the loaded class may have its own dependencies",
	},
	ReflectMethodLookup: {
		"GET_METHOD", "getMethod() / getDeclaredMethod()",
		"Looks up a method by name and parameter types",
		"Method being looked up may be in another JAR",
	},
	ReflectMethodInvoke: {
		"METHOD_INVOKE", "Method.invoke()",
		"Invokes a method reflectively",
		"The actual method call is invisible to static analysis",
	},
	ReflectConstructorNewInstance: {
		"CONSTRUCTOR_NEW_INSTANCE", "Constructor.newInstance()",
		"Creates an object instance reflectively",
		"Object creation bypasses normal 'new' keyword analysis",
	},
	ReflectClassNewInstance: {
		"CLASS_NEW_INSTANCE", "Class.newInstance() [deprecated]",
		"Deprecated way to create instances reflectively",
		"Should be replaced with Constructor.newInstance()",
	},
	ReflectFieldRead: {
		"FIELD_GET", "Field.get()",
		"Reads a field reflectively",
		"Field access bypasses normal field reference analysis",
	},
	ReflectFieldWrite: {
		"FIELD_SET", "Field.set()",
		"Modifies a field reflectively",
		"Field access bypasses normal field reference analysis",
	},
	ReflectTypeQuery: {
		"GET_CLASS", "Object.getClass()",
		"Queries the runtime type of an object",
		"Usually feeds a later reflective lookup on the returned class",
	},
	ReflectClassNameQuery: {
		"GET_NAME", "Class.getName()",
		"Reads a class name at runtime",
		"Class names built at runtime can drive dynamic loading",
	},
	ReflectLambda: {
		"LAMBDA_REFLECTION", "Lambda using reflection",
		"A lambda or method reference bound to the reflection API",
		"The reflective target is resolved by the bootstrap method at runtime",
	},
}

func (k ReflectionKind) valid() bool {
	return k >= 0 && k < reflectionKindCount
}

func (k ReflectionKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("ReflectionKind(%d)", int(k))
	}
	return reflectionTable[k].name
}

func (k ReflectionKind) Pattern() string {
	if !k.valid() {
		return ""
	}
	return reflectionTable[k].pattern
}

func (k ReflectionKind) Description() string {
	if !k.valid() {
		return ""
	}
	return reflectionTable[k].description
}

func (k ReflectionKind) Implication() string {
	if !k.valid() {
		return ""
	}
	return reflectionTable[k].implication
}

// ReflectiveCall records a reflection API use. Target is the string literal seen
// just before the call when one is meaningful for the pattern. TargetKnown tells an
// observed empty literal apart from no literal at all.
type ReflectiveCall struct {
	Kind        ReflectionKind
	Site        CallSite
	Pattern     string
	Target      string
	TargetKnown bool
}

func (r ReflectiveCall) HasTarget() bool {
	return r.TargetKnown
}

func (r ReflectiveCall) Readable() string {
	if r.HasTarget() {
		return fmt.Sprintf("%s in %s -> %q", r.Pattern, r.Site, r.Target)
	}
	return fmt.Sprintf("%s in %s (target unknown)", r.Pattern, r.Site)
}
