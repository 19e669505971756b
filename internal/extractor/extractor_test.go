package extractor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jarscope/internal/archive"
	"github.com/mabhi256/jarscope/internal/classfile"
	"github.com/mabhi256/jarscope/internal/classfile/classfiletest"
	"github.com/mabhi256/jarscope/internal/logging"
	"github.com/mabhi256/jarscope/internal/model"
)

const (
	forNameDesc   = "(Ljava/lang/String;)Ljava/lang/Class;"
	getMethodDesc = "(Ljava/lang/String;[Ljava/lang/Class;)Ljava/lang/reflect/Method;"
	invokeDesc    = "(Ljava/lang/Object;[Ljava/lang/Object;)Ljava/lang/Object;"
)

var metafactory = classfile.Handle{
	Kind:       classfile.RefInvokeStatic,
	Owner:      "java/lang/invoke/LambdaMetafactory",
	Name:       "metafactory",
	Descriptor: "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/CallSite;",
}

func newTestExtractor(opts Options) *Extractor {
	return New(logging.Discard(), opts)
}

func TestDefinitionsFromClass(t *testing.T) {
	data := classfiletest.NewClass("com/example/Foo").
		Method(classfiletest.AccPublic, "bar", "()V").Return().
		Method(classfiletest.AccPublic|classfiletest.AccSynthetic, "lambda$0", "()V").Return().
		Method(classfiletest.AccPublic|classfiletest.AccBridge, "compareTo", "(Ljava/lang/Object;)I").Return().
		Method(classfiletest.AccPublic, "compareTo", "(Lcom/example/Foo;)I").Return().
		Method(classfiletest.AccPublic, "shape", "()I").Abstract().
		Bytes()

	defs := make(model.SignatureSet)
	require.NoError(t, DefinitionsFromClass(data, defs))

	assert.Equal(t, model.NewSignatureSet(
		model.MustMethodSignature("com/example/Foo", "bar", "()V"),
		model.MustMethodSignature("com/example/Foo", "compareTo", "(Lcom/example/Foo;)I"),
		model.MustMethodSignature("com/example/Foo", "shape", "()I"),
	), defs)
}

func TestDefinitionsFromClassLeavesSetOnFailure(t *testing.T) {
	data := classfiletest.NewClass("A").Method(classfiletest.AccPublic, "m", "()V").Return().Bytes()
	defs := make(model.SignatureSet)
	err := DefinitionsFromClass(data[:len(data)-4], defs)
	assert.True(t, errors.Is(err, classfile.ErrDecode))
	assert.Equal(t, 0, defs.Len())
}

func TestExtractDefinitions(t *testing.T) {
	dir := t.TempDir()
	path := classfiletest.NewJar().
		Class(
			classfiletest.NewClass("lib/Api").Method(classfiletest.AccPublic, "call", "()V").Return(),
			classfiletest.NewClass("lib/Api$Helper").Method(classfiletest.AccPublic, "help", "()V").Return(),
		).
		Entry("lib/Broken.class", []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0}).
		Write(t, dir, "lib.jar")

	t.Run("all classes", func(t *testing.T) {
		res, err := newTestExtractor(Options{}).ExtractDefinitions(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Definitions.Len())
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "lib/Broken.class", res.Errors[0].Entry)
		assert.True(t, errors.Is(res.Errors[0], classfile.ErrDecode))
	})

	t.Run("skip inner classes", func(t *testing.T) {
		res, err := newTestExtractor(Options{SkipInnerClasses: true}).ExtractDefinitions(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, model.NewSignatureSet(model.MustMethodSignature("lib/Api", "call", "()V")), res.Definitions)
	})

	t.Run("missing archive", func(t *testing.T) {
		_, err := newTestExtractor(Options{}).ExtractDefinitions(context.Background(), filepath.Join(dir, "nope.jar"))
		assert.True(t, errors.Is(err, archive.ErrNotFound))
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newTestExtractor(Options{}).ExtractDefinitions(ctx, path)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func scanClass(t *testing.T, className string, c *classfiletest.ClassBuilder) *CallResult {
	t.Helper()
	res := newCallResult()
	require.NoError(t, CallsFromClass(className, c.Bytes(), res))
	return res
}

func TestCallsFromClassInvokeKinds(t *testing.T) {
	c := classfiletest.NewClass("app/Main").
		Method(classfiletest.AccStatic, "main", "([Ljava/lang/String;)V").
		Invoke(classfile.OpInvokeSpecial, "lib/Api", "<init>", "()V").
		Invoke(classfile.OpInvokeVirtual, "lib/Api", "call", "()V").
		Invoke(classfile.OpInvokeStatic, "lib/Util", "helper", "()I").
		Invoke(classfile.OpInvokeInterface, "java/util/List", "size", "()I").
		Return()

	res := scanClass(t, "app.Main", c)
	site := model.CallSite{Class: "app.Main", Method: "main"}
	want := []struct {
		owner, name, desc string
		kind              model.InvokeKind
	}{
		{"lib/Api", "<init>", "()V", model.InvokeSpecial},
		{"lib/Api", "call", "()V", model.InvokeVirtual},
		{"lib/Util", "helper", "()I", model.InvokeStatic},
		{"java/util/List", "size", "()I", model.InvokeInterface},
	}
	require.Equal(t, len(want), res.Calls.Len())
	for _, w := range want {
		call, err := model.NewMethodCall(model.MustMethodSignature(w.owner, w.name, w.desc), w.kind, site)
		require.NoError(t, err)
		assert.True(t, res.Calls.Contains(call), "missing %s", call.Detailed())
	}
	assert.Empty(t, res.Reflective)
}

func TestReflectionForNameTarget(t *testing.T) {
	c := classfiletest.NewClass("app/Loader").
		Method(classfiletest.AccPublic, "load", "()V").
		Ldc("com.example.Plugin").
		Invoke(classfile.OpInvokeStatic, "java/lang/Class", "forName", forNameDesc).
		Return()

	res := scanClass(t, "app.Loader", c)
	require.Len(t, res.Reflective, 1)
	rc := res.Reflective[0]
	assert.Equal(t, model.ReflectClassForName, rc.Kind)
	assert.Equal(t, "com.example.Plugin", rc.Target)
	assert.Equal(t, "Class.forName()", rc.Pattern)
	assert.Equal(t, model.CallSite{Class: "app.Loader", Method: "load"}, rc.Site)
	// the reflective API call is still a plain call
	assert.Equal(t, 1, res.Calls.Len())
}

func TestReflectionEmptyLiteralTarget(t *testing.T) {
	c := classfiletest.NewClass("app/Loader").
		Method(classfiletest.AccPublic, "empty", "()V").
		Ldc("").
		Invoke(classfile.OpInvokeStatic, "java/lang/Class", "forName", forNameDesc).
		Return().
		Method(classfiletest.AccPublic, "none", "()V").
		Invoke(classfile.OpInvokeStatic, "java/lang/Class", "forName", forNameDesc).
		Return()

	res := scanClass(t, "app.Loader", c)
	require.Len(t, res.Reflective, 2)

	empty := res.Reflective[0]
	assert.Equal(t, "empty", empty.Site.Method)
	assert.True(t, empty.HasTarget())
	assert.Equal(t, "", empty.Target)
	assert.Equal(t, `Class.forName() in app.Loader.empty -> ""`, empty.Readable())

	none := res.Reflective[1]
	assert.Equal(t, "none", none.Site.Method)
	assert.False(t, none.HasTarget())
}

func TestReflectionRegister(t *testing.T) {
	c := classfiletest.NewClass("app/R").
		Method(classfiletest.AccPublic, "first", "()V").
		Ldc("com.example.Target").
		Ldc(int32(42)).
		Invoke(classfile.OpInvokeStatic, "java/lang/Class", "forName", forNameDesc).
		Ldc("run").
		Invoke(classfile.OpInvokeVirtual, "java/lang/Class", "getMethod", getMethodDesc).
		Invoke(classfile.OpInvokeVirtual, "java/lang/Class", "getDeclaredMethod", getMethodDesc).
		Ldc("ignored").
		Invoke(classfile.OpInvokeVirtual, "java/lang/reflect/Method", "invoke", invokeDesc).
		Invoke(classfile.OpInvokeStatic, "java/lang/Class", "forName", forNameDesc).
		Return().
		Method(classfiletest.AccPublic, "second", "()V").
		Invoke(classfile.OpInvokeStatic, "java/lang/Class", "forName", forNameDesc).
		Return().
		Method(classfiletest.AccPublic, "third", "()V").
		Ldc("leftover").
		Return().
		Method(classfiletest.AccPublic, "fourth", "()V").
		Invoke(classfile.OpInvokeStatic, "java/lang/Class", "forName", forNameDesc).
		Return()

	res := scanClass(t, "app.R", c)

	type got struct {
		method  string
		kind    model.ReflectionKind
		pattern string
		target  string
	}
	var actual []got
	for _, rc := range res.Reflective {
		actual = append(actual, got{rc.Site.Method, rc.Kind, rc.Pattern, rc.Target})
	}
	assert.Equal(t, []got{
		// a non-string constant leaves the register alone
		{"first", model.ReflectClassForName, "Class.forName()", "com.example.Target"},
		{"first", model.ReflectMethodLookup, "getMethod()", "run"},
		// consumed by the previous match
		{"first", model.ReflectMethodLookup, "getDeclaredMethod()", ""},
		// invoke never carries a target but still clears the register
		{"first", model.ReflectMethodInvoke, "Method.invoke()", ""},
		{"first", model.ReflectClassForName, "Class.forName()", ""},
		{"second", model.ReflectClassForName, "Class.forName()", ""},
		// the register does not carry across methods
		{"fourth", model.ReflectClassForName, "Class.forName()", ""},
	}, actual)
}

func TestReflectionTable(t *testing.T) {
	tests := []struct {
		owner, name, desc string
		kind              model.ReflectionKind
		pattern           string
	}{
		{"java/lang/reflect/Constructor", "newInstance", "([Ljava/lang/Object;)Ljava/lang/Object;", model.ReflectConstructorNewInstance, "Constructor.newInstance()"},
		{"java/lang/Class", "newInstance", "()Ljava/lang/Object;", model.ReflectClassNewInstance, "Class.newInstance()"},
		{"java/lang/reflect/Field", "get", "(Ljava/lang/Object;)Ljava/lang/Object;", model.ReflectFieldRead, "Field.get()"},
		{"java/lang/reflect/Field", "set", "(Ljava/lang/Object;Ljava/lang/Object;)V", model.ReflectFieldWrite, "Field.set()"},
		{"com/example/Widget", "getClass", "()Ljava/lang/Class;", model.ReflectTypeQuery, "Object.getClass()"},
		{"java/lang/Class", "getName", "()Ljava/lang/String;", model.ReflectClassNameQuery, "Class.getName()"},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			c := classfiletest.NewClass("app/T").
				Method(classfiletest.AccPublic, "m", "()V").
				Ldc("com.example.Name").
				Invoke(classfile.OpInvokeVirtual, tt.owner, tt.name, tt.desc).
				Return()

			res := scanClass(t, "app.T", c)
			require.Len(t, res.Reflective, 1)
			assert.Equal(t, tt.kind, res.Reflective[0].Kind)
			assert.Equal(t, tt.pattern, res.Reflective[0].Pattern)
			assert.False(t, res.Reflective[0].HasTarget())
		})
	}

	t.Run("getClass with another descriptor", func(t *testing.T) {
		c := classfiletest.NewClass("app/T").
			Method(classfiletest.AccPublic, "m", "()V").
			Invoke(classfile.OpInvokeVirtual, "com/example/Widget", "getClass", "()Lcom/example/Shape;").
			Return()
		assert.Empty(t, scanClass(t, "app.T", c).Reflective)
	})
}

func TestInvokeDynamic(t *testing.T) {
	reflectHandle := classfile.Handle{
		Kind:       classfile.RefInvokeVirtual,
		Owner:      "java/lang/reflect/Method",
		Name:       "invoke",
		Descriptor: invokeDesc,
	}
	fieldHandle := classfile.Handle{
		Kind:       classfile.RefInvokeVirtual,
		Owner:      "java/lang/reflect/Field",
		Name:       "get",
		Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;",
	}
	plainHandle := classfile.Handle{
		Kind:       classfile.RefInvokeVirtual,
		Owner:      "java/lang/Object",
		Name:       "toString",
		Descriptor: "()Ljava/lang/String;",
	}
	samType := classfile.MethodTypeConstant{Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;"}

	c := classfiletest.NewClass("app/Lambdas").
		Method(classfiletest.AccPublic, "reflective", "()V").
		InvokeDynamic("apply", "()Ljava/util/function/Function;", metafactory, samType, reflectHandle, fieldHandle).
		Return().
		Method(classfiletest.AccPublic, "plain", "()V").
		InvokeDynamic("get", "()Ljava/util/function/Supplier;", metafactory, samType, plainHandle).
		Return()

	res := scanClass(t, "app.Lambdas", c)

	require.Len(t, res.Reflective, 1)
	assert.Equal(t, model.ReflectLambda, res.Reflective[0].Kind)
	assert.Equal(t, "Lambda using reflection", res.Reflective[0].Pattern)
	assert.Equal(t, "reflective", res.Reflective[0].Site.Method)
	assert.False(t, res.Reflective[0].HasTarget())

	require.Equal(t, 2, res.Calls.Len())
	for call := range res.Calls {
		assert.Equal(t, LambdaMetafactory, call.Signature().Owner())
		assert.Equal(t, model.InvokeDynamic, call.Kind())
	}
}

func TestExtractCalls(t *testing.T) {
	path := classfiletest.NewJar().
		Class(classfiletest.NewClass("app/sub/Main").
			Method(classfiletest.AccStatic, "main", "()V").
			Invoke(classfile.OpInvokeStatic, "lib/Api", "call", "()V").
			Return()).
		Entry("app/Bad.class", []byte("garbage")).
		Write(t, t.TempDir(), "app.jar")

	res, err := newTestExtractor(Options{}).ExtractCalls(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 1, res.Calls.Len())
	for call := range res.Calls {
		assert.Equal(t, "app.sub.Main", call.Site().Class)
	}
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "app/Bad.class", res.Errors[0].Entry)
}
