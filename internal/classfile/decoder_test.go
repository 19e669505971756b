package classfile_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jarscope/internal/classfile"
	"github.com/mabhi256/jarscope/internal/classfile/classfiletest"
)

func collect(t *testing.T, data []byte, opts classfile.Options) []classfile.Event {
	t.Helper()
	var events []classfile.Event
	err := classfile.Walk(data, opts, func(ev classfile.Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestDecoderEventOrder(t *testing.T) {
	data := classfiletest.NewClass("com/example/Greeter").
		Version(61).
		Implements("java/lang/Runnable").
		Source("Greeter.java").
		Field(classfiletest.AccPublic, "name", "Ljava/lang/String;").
		Method(classfiletest.AccPublic, "run", "()V").
		Line(10).
		Ldc("hello").
		Invoke(classfile.OpInvokeVirtual, "java/io/PrintStream", "println", "(Ljava/lang/String;)V").
		Local("this", "Lcom/example/Greeter;", 0).
		Return().
		Bytes()

	events := collect(t, data, classfile.Options{})
	require.Len(t, events, 9)

	decl, ok := events[0].(classfile.ClassDecl)
	require.True(t, ok)
	assert.Equal(t, "com/example/Greeter", decl.Name)
	assert.Equal(t, "java/lang/Object", decl.SuperName)
	assert.Equal(t, []string{"java/lang/Runnable"}, decl.Interfaces)
	assert.EqualValues(t, 61, decl.Major)

	assert.Equal(t, classfile.SourceFile{Name: "Greeter.java"}, events[1])
	assert.Equal(t, classfile.FieldDecl{Access: classfiletest.AccPublic, Name: "name", Descriptor: "Ljava/lang/String;"}, events[2])
	assert.Equal(t, classfile.MethodDecl{Access: classfiletest.AccPublic, Name: "run", Descriptor: "()V"}, events[3])
	assert.Equal(t, classfile.ConstantLoad{Opcode: classfile.OpLdc, Value: "hello"}, events[4])
	assert.Equal(t, classfile.MethodInsn{
		Opcode:     classfile.OpInvokeVirtual,
		Owner:      "java/io/PrintStream",
		Name:       "println",
		Descriptor: "(Ljava/lang/String;)V",
	}, events[5])
	assert.Equal(t, classfile.LineNumber{StartPC: 0, Line: 10}, events[6])
	assert.Equal(t, classfile.LocalVariable{Name: "this", Descriptor: "Lcom/example/Greeter;", Index: 0}, events[7])
	assert.Equal(t, classfile.MethodEnd{}, events[8])
}

func TestDecoderNextAfterEOF(t *testing.T) {
	data := classfiletest.NewClass("Empty").Bytes()
	d, err := classfile.NewDecoder(data, classfile.Options{})
	require.NoError(t, err)

	ev, err := d.Next()
	require.NoError(t, err)
	assert.IsType(t, classfile.ClassDecl{}, ev)

	for i := 0; i < 3; i++ {
		_, err = d.Next()
		assert.Equal(t, io.EOF, err)
	}
}

func TestDecoderSkipOptions(t *testing.T) {
	data := classfiletest.NewClass("A").
		Method(classfiletest.AccPublic, "m", "()V").
		Line(3).
		Invoke(classfile.OpInvokeStatic, "B", "n", "()V").
		Return().
		Bytes()

	tests := []struct {
		name  string
		opts  classfile.Options
		insns int
		lines int
	}{
		{"everything", classfile.Options{}, 1, 1},
		{"skip code", classfile.Options{SkipCode: true}, 0, 1},
		{"skip debug", classfile.Options{SkipDebug: true}, 1, 0},
		{"skip both", classfile.Options{SkipCode: true, SkipDebug: true}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var insns, lines, ends int
			for _, ev := range collect(t, data, tt.opts) {
				switch ev.(type) {
				case classfile.MethodInsn:
					insns++
				case classfile.LineNumber:
					lines++
				case classfile.MethodEnd:
					ends++
				}
			}
			assert.Equal(t, tt.insns, insns)
			assert.Equal(t, tt.lines, lines)
			assert.Equal(t, 1, ends)
		})
	}
}

func TestDecoderConstants(t *testing.T) {
	// the long takes two pool slots, so the string after it must still resolve
	data := classfiletest.NewClass("Consts").
		Method(classfiletest.AccStatic, "m", "()V").
		Ldc(int64(1) << 40).
		Ldc("after-long").
		Ldc(int32(7)).
		Ldc(2.5).
		Ldc(classfile.ClassConstant{Name: "java/util/Map"}).
		Return().
		Bytes()

	var values []any
	for _, ev := range collect(t, data, classfile.Options{}) {
		if c, ok := ev.(classfile.ConstantLoad); ok {
			values = append(values, c.Value)
		}
	}
	assert.Equal(t, []any{
		int64(1) << 40,
		"after-long",
		int32(7),
		2.5,
		classfile.ClassConstant{Name: "java/util/Map"},
	}, values)
}

func TestDecoderSwitchAndWide(t *testing.T) {
	data := classfiletest.NewClass("Switches").
		Method(classfiletest.AccStatic, "m", "(I)V").
		Op(0x03). // iconst_0
		Op(classfile.OpTableSwitch,
			0, 0, // padding to pc 4
			0, 0, 0, 0, // default
			0, 0, 0, 0, // low
			0, 0, 0, 1, // high
			0, 0, 0, 0, 0, 0, 0, 0). // two jump offsets
		Op(classfile.OpLookupSwitch,
			0, 0, 0, // padding from pc 24 to 28
			0, 0, 0, 0, // default
			0, 0, 0, 1, // npairs
			0, 0, 0, 5, 0, 0, 0, 0). // one match/offset pair
		Op(classfile.OpWide, classfile.OpIinc, 0, 1, 0, 1).
		Op(classfile.OpWide, 0x15, 0, 1).
		Invoke(classfile.OpInvokeStatic, "After", "target", "()V").
		Return().
		Bytes()

	var insns []classfile.MethodInsn
	for _, ev := range collect(t, data, classfile.Options{}) {
		if m, ok := ev.(classfile.MethodInsn); ok {
			insns = append(insns, m)
		}
	}
	require.Len(t, insns, 1)
	assert.Equal(t, "After", insns[0].Owner)
	assert.Equal(t, "target", insns[0].Name)
}

func TestDecoderInvokeDynamic(t *testing.T) {
	bsm := classfile.Handle{
		Kind:       classfile.RefInvokeStatic,
		Owner:      "java/lang/invoke/LambdaMetafactory",
		Name:       "metafactory",
		Descriptor: "(Ljava/lang/invoke/MethodHandles$Lookup;Ljava/lang/String;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodType;Ljava/lang/invoke/MethodHandle;Ljava/lang/invoke/MethodType;)Ljava/lang/invoke/CallSite;",
	}
	impl := classfile.Handle{
		Kind:       classfile.RefInvokeVirtual,
		Owner:      "java/lang/reflect/Method",
		Name:       "invoke",
		Descriptor: "(Ljava/lang/Object;[Ljava/lang/Object;)Ljava/lang/Object;",
	}
	data := classfiletest.NewClass("Lambdas").
		Method(classfiletest.AccStatic, "m", "()V").
		InvokeDynamic("apply", "()Ljava/util/function/Function;", bsm,
			classfile.MethodTypeConstant{Descriptor: "(Ljava/lang/Object;)Ljava/lang/Object;"},
			impl,
		).
		Return().
		Bytes()

	var got []classfile.InvokeDynamicInsn
	for _, ev := range collect(t, data, classfile.Options{}) {
		if insn, ok := ev.(classfile.InvokeDynamicInsn); ok {
			got = append(got, insn)
		}
	}
	require.Len(t, got, 1)
	assert.Equal(t, "apply", got[0].Name)
	assert.Equal(t, bsm, got[0].Bootstrap)
	require.Len(t, got[0].BootstrapArgs, 2)
	assert.Equal(t, impl, got[0].BootstrapArgs[1])
}

func TestDecoderMalformed(t *testing.T) {
	valid := classfiletest.NewClass("Valid").
		Method(classfiletest.AccPublic, "m", "()V").
		Invoke(classfile.OpInvokeStatic, "X", "y", "()V").
		Return().
		Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte{0xCA, 0xFE, 0xBA, 0xBF, 0, 0, 0, 52}},
		{"truncated", valid[:len(valid)-5]},
		{"header only", valid[:10]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classfile.Walk(tt.data, classfile.Options{}, func(classfile.Event) error { return nil })
			require.Error(t, err)
			assert.True(t, errors.Is(err, classfile.ErrDecode), "got %v", err)

			var de *classfile.DecodeError
			assert.True(t, errors.As(err, &de))
		})
	}
}

func TestModifiedUTF8(t *testing.T) {
	s := "nul\x00 and emoji \U0001F600 and é"
	enc := classfile.EncodeModifiedUTF8(s)
	assert.NotContains(t, string(enc), "\x00")

	dec, err := classfile.DecodeModifiedUTF8(enc)
	require.NoError(t, err)
	assert.Equal(t, s, dec)

	_, err = classfile.DecodeModifiedUTF8([]byte{'a', 0xFF})
	assert.Error(t, err)
	_, err = classfile.DecodeModifiedUTF8([]byte{0xE0, 0x80})
	assert.Error(t, err)
}
