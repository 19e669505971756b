// Package classfiletest assembles class files and archives for tests.
package classfiletest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/mabhi256/jarscope/internal/classfile"
)

const (
	AccPublic    uint16 = 0x0001
	AccStatic    uint16 = 0x0008
	AccBridge    uint16 = 0x0040
	AccAbstract  uint16 = 0x0400
	AccSynthetic uint16 = 0x1000
)

type pool struct {
	buf   bytes.Buffer
	next  uint16
	index map[string]uint16
}

func newPool() *pool {
	return &pool{next: 1, index: map[string]uint16{}}
}

func (p *pool) add(key string, slots uint16, write func(*bytes.Buffer)) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.next
	write(&p.buf)
	p.next += slots
	p.index[key] = idx
	return idx
}

func u2(b *bytes.Buffer, v uint16) { _ = binary.Write(b, binary.BigEndian, v) }
func u4(b *bytes.Buffer, v uint32) { _ = binary.Write(b, binary.BigEndian, v) }

func (p *pool) utf8(s string) uint16 {
	return p.add("utf8:"+s, 1, func(b *bytes.Buffer) {
		enc := classfile.EncodeModifiedUTF8(s)
		b.WriteByte(byte(classfile.TagUtf8))
		u2(b, uint16(len(enc)))
		b.Write(enc)
	})
}

func (p *pool) ref(tag classfile.ConstantTag, key string, target uint16) uint16 {
	return p.add(fmt.Sprintf("%d:%s", tag, key), 1, func(b *bytes.Buffer) {
		b.WriteByte(byte(tag))
		u2(b, target)
	})
}

func (p *pool) class(name string) uint16 {
	return p.ref(classfile.TagClass, name, p.utf8(name))
}

func (p *pool) str(s string) uint16 {
	return p.ref(classfile.TagString, s, p.utf8(s))
}

func (p *pool) methodType(desc string) uint16 {
	return p.ref(classfile.TagMethodType, desc, p.utf8(desc))
}

func (p *pool) pair(tag classfile.ConstantTag, key string, a, c uint16) uint16 {
	return p.add(fmt.Sprintf("%d:%s", tag, key), 1, func(b *bytes.Buffer) {
		b.WriteByte(byte(tag))
		u2(b, a)
		u2(b, c)
	})
}

func (p *pool) nameAndType(name, desc string) uint16 {
	return p.pair(classfile.TagNameAndType, name+":"+desc, p.utf8(name), p.utf8(desc))
}

func (p *pool) member(tag classfile.ConstantTag, owner, name, desc string) uint16 {
	return p.pair(tag, owner+"."+name+desc, p.class(owner), p.nameAndType(name, desc))
}

func (p *pool) handle(h classfile.Handle) uint16 {
	tag := classfile.TagMethodref
	switch {
	case h.Kind <= classfile.RefPutStatic:
		tag = classfile.TagFieldref
	case h.Interface:
		tag = classfile.TagInterfaceMethodref
	}
	ref := p.member(tag, h.Owner, h.Name, h.Descriptor)
	return p.add(fmt.Sprintf("handle:%d:%d", h.Kind, ref), 1, func(b *bytes.Buffer) {
		b.WriteByte(byte(classfile.TagMethodHandle))
		b.WriteByte(byte(h.Kind))
		u2(b, ref)
	})
}

func (p *pool) long(v int64) uint16 {
	return p.add(fmt.Sprintf("long:%d", v), 2, func(b *bytes.Buffer) {
		b.WriteByte(byte(classfile.TagLong))
		_ = binary.Write(b, binary.BigEndian, v)
	})
}

func (p *pool) integer(v int32) uint16 {
	return p.add(fmt.Sprintf("int:%d", v), 1, func(b *bytes.Buffer) {
		b.WriteByte(byte(classfile.TagInteger))
		_ = binary.Write(b, binary.BigEndian, v)
	})
}

func (p *pool) double(v float64) uint16 {
	return p.add(fmt.Sprintf("double:%v", v), 2, func(b *bytes.Buffer) {
		b.WriteByte(byte(classfile.TagDouble))
		u4(b, uint32(math.Float64bits(v)>>32))
		u4(b, uint32(math.Float64bits(v)))
	})
}

// loadable adds a bootstrap argument or ldc operand
func (p *pool) loadable(v any) uint16 {
	switch v := v.(type) {
	case string:
		return p.str(v)
	case int32:
		return p.integer(v)
	case int64:
		return p.long(v)
	case float64:
		return p.double(v)
	case classfile.ClassConstant:
		return p.class(v.Name)
	case classfile.MethodTypeConstant:
		return p.methodType(v.Descriptor)
	case classfile.Handle:
		return p.handle(v)
	default:
		panic(fmt.Sprintf("classfiletest: unsupported constant %T", v))
	}
}

type field struct {
	access     uint16
	name, desc string
}

type bootstrap struct {
	handle uint16
	args   []uint16
}

// ClassBuilder assembles a class file. New classes target major version 52 (Java 8).
type ClassBuilder struct {
	pool       *pool
	major      uint16
	access     uint16
	name       string
	super      string
	interfaces []string
	fields     []field
	methods    []*MethodBuilder
	sourceFile string
	bootstraps []bootstrap
}

func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{
		pool:   newPool(),
		major:  52,
		access: AccPublic,
		name:   name,
		super:  "java/lang/Object",
	}
}

func (c *ClassBuilder) Name() string { return c.name }

func (c *ClassBuilder) Version(major uint16) *ClassBuilder {
	c.major = major
	return c
}

func (c *ClassBuilder) Super(name string) *ClassBuilder {
	c.super = name
	return c
}

func (c *ClassBuilder) Implements(names ...string) *ClassBuilder {
	c.interfaces = append(c.interfaces, names...)
	return c
}

func (c *ClassBuilder) Source(file string) *ClassBuilder {
	c.sourceFile = file
	return c
}

func (c *ClassBuilder) Field(access uint16, name, desc string) *ClassBuilder {
	c.fields = append(c.fields, field{access: access, name: name, desc: desc})
	return c
}

// Method starts a method with a code body. Call Abstract on the result for a method without one.
func (c *ClassBuilder) Method(access uint16, name, desc string) *MethodBuilder {
	m := &MethodBuilder{class: c, access: access, name: name, desc: desc, hasCode: true}
	c.methods = append(c.methods, m)
	return m
}

// Bytes serialises the class. Body sections are built first so every constant
// they reference is in the pool before the pool is written.
func (c *ClassBuilder) Bytes() []byte {
	p := c.pool
	var body bytes.Buffer

	u2(&body, c.access)
	u2(&body, p.class(c.name))
	if c.super == "" {
		u2(&body, 0)
	} else {
		u2(&body, p.class(c.super))
	}
	u2(&body, uint16(len(c.interfaces)))
	for _, iface := range c.interfaces {
		u2(&body, p.class(iface))
	}

	u2(&body, uint16(len(c.fields)))
	for _, f := range c.fields {
		u2(&body, f.access)
		u2(&body, p.utf8(f.name))
		u2(&body, p.utf8(f.desc))
		u2(&body, 0)
	}

	u2(&body, uint16(len(c.methods)))
	for _, m := range c.methods {
		m.write(&body)
	}

	var attrs []func()
	if c.sourceFile != "" {
		nameIdx, fileIdx := p.utf8("SourceFile"), p.utf8(c.sourceFile)
		attrs = append(attrs, func() {
			u2(&body, nameIdx)
			u4(&body, 2)
			u2(&body, fileIdx)
		})
	}
	if len(c.bootstraps) > 0 {
		nameIdx := p.utf8("BootstrapMethods")
		attrs = append(attrs, func() {
			var bm bytes.Buffer
			u2(&bm, uint16(len(c.bootstraps)))
			for _, b := range c.bootstraps {
				u2(&bm, b.handle)
				u2(&bm, uint16(len(b.args)))
				for _, a := range b.args {
					u2(&bm, a)
				}
			}
			u2(&body, nameIdx)
			u4(&body, uint32(bm.Len()))
			body.Write(bm.Bytes())
		})
	}
	u2(&body, uint16(len(attrs)))
	for _, write := range attrs {
		write()
	}

	var out bytes.Buffer
	u4(&out, 0xCAFEBABE)
	u2(&out, 0)
	u2(&out, c.major)
	u2(&out, p.next)
	out.Write(p.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

type localVar struct {
	name, desc string
	index      uint16
}

type lineEntry struct {
	pc, line uint16
}

type MethodBuilder struct {
	class   *ClassBuilder
	access  uint16
	name    string
	desc    string
	hasCode bool
	code    bytes.Buffer
	lines   []lineEntry
	locals  []localVar
}

// Class returns the owning builder so calls can be chained back to it
func (m *MethodBuilder) Class() *ClassBuilder { return m.class }

func (m *MethodBuilder) Abstract() *ClassBuilder {
	m.hasCode = false
	m.access |= AccAbstract
	return m.class
}

// Op appends a raw instruction
func (m *MethodBuilder) Op(opcode byte, operands ...byte) *MethodBuilder {
	m.code.WriteByte(opcode)
	m.code.Write(operands)
	return m
}

func (m *MethodBuilder) op2(opcode byte, idx uint16) *MethodBuilder {
	return m.Op(opcode, byte(idx>>8), byte(idx))
}

// Ldc pushes a constant with ldc, ldc_w or ldc2_w as its type and index require
func (m *MethodBuilder) Ldc(v any) *MethodBuilder {
	idx := m.class.pool.loadable(v)
	switch v.(type) {
	case int64, float64:
		return m.op2(classfile.OpLdc2W, idx)
	}
	if idx > 0xFF {
		return m.op2(classfile.OpLdcW, idx)
	}
	return m.Op(classfile.OpLdc, byte(idx))
}

func (m *MethodBuilder) Invoke(opcode byte, owner, name, desc string) *MethodBuilder {
	tag := classfile.TagMethodref
	if opcode == classfile.OpInvokeInterface {
		tag = classfile.TagInterfaceMethodref
	}
	idx := m.class.pool.member(tag, owner, name, desc)
	if opcode == classfile.OpInvokeInterface {
		return m.Op(opcode, byte(idx>>8), byte(idx), byte(argSlots(desc)+1), 0)
	}
	return m.op2(opcode, idx)
}

// InvokeDynamic appends an invokedynamic with its own bootstrap method entry
func (m *MethodBuilder) InvokeDynamic(name, desc string, bsm classfile.Handle, args ...any) *MethodBuilder {
	c := m.class
	b := bootstrap{handle: c.pool.handle(bsm)}
	for _, a := range args {
		b.args = append(b.args, c.pool.loadable(a))
	}
	c.bootstraps = append(c.bootstraps, b)
	bsmIndex := uint16(len(c.bootstraps) - 1)

	idx := c.pool.pair(classfile.TagInvokeDynamic, fmt.Sprintf("%d:%s%s", bsmIndex, name, desc),
		bsmIndex, c.pool.nameAndType(name, desc))
	return m.Op(classfile.OpInvokeDynamic, byte(idx>>8), byte(idx), 0, 0)
}

// Line maps the next instruction to a source line
func (m *MethodBuilder) Line(line uint16) *MethodBuilder {
	m.lines = append(m.lines, lineEntry{pc: uint16(m.code.Len()), line: line})
	return m
}

func (m *MethodBuilder) Local(name, desc string, index uint16) *MethodBuilder {
	m.locals = append(m.locals, localVar{name: name, desc: desc, index: index})
	return m
}

// Return appends a plain return and hands back the class
func (m *MethodBuilder) Return() *ClassBuilder {
	m.Op(0xb1)
	return m.class
}

func (m *MethodBuilder) write(body *bytes.Buffer) {
	p := m.class.pool
	u2(body, m.access)
	u2(body, p.utf8(m.name))
	u2(body, p.utf8(m.desc))
	if !m.hasCode {
		u2(body, 0)
		return
	}

	var attrs bytes.Buffer
	attrCount := uint16(0)
	if len(m.lines) > 0 {
		attrCount++
		u2(&attrs, p.utf8("LineNumberTable"))
		u4(&attrs, uint32(2+4*len(m.lines)))
		u2(&attrs, uint16(len(m.lines)))
		for _, l := range m.lines {
			u2(&attrs, l.pc)
			u2(&attrs, l.line)
		}
	}
	if len(m.locals) > 0 {
		attrCount++
		u2(&attrs, p.utf8("LocalVariableTable"))
		u4(&attrs, uint32(2+10*len(m.locals)))
		u2(&attrs, uint16(len(m.locals)))
		for _, l := range m.locals {
			u2(&attrs, 0)
			u2(&attrs, uint16(m.code.Len()))
			u2(&attrs, p.utf8(l.name))
			u2(&attrs, p.utf8(l.desc))
			u2(&attrs, l.index)
		}
	}

	codeIdx := p.utf8("Code")
	var code bytes.Buffer
	u2(&code, 8) // max_stack
	u2(&code, 8) // max_locals
	u4(&code, uint32(m.code.Len()))
	code.Write(m.code.Bytes())
	u2(&code, 0) // exception table
	u2(&code, attrCount)
	code.Write(attrs.Bytes())

	u2(body, 1)
	u2(body, codeIdx)
	u4(body, uint32(code.Len()))
	body.Write(code.Bytes())
}

// argSlots counts the stack slots taken by a method descriptor's parameters
func argSlots(desc string) int {
	slots := 0
	for i := 1; i < len(desc) && desc[i] != ')'; i++ {
		switch desc[i] {
		case 'J', 'D':
			slots += 2
		case 'L':
			for desc[i] != ';' {
				i++
			}
			slots++
		case '[':
			for desc[i] == '[' {
				i++
			}
			if desc[i] == 'L' {
				for desc[i] != ';' {
					i++
				}
			}
			slots++
		default:
			slots++
		}
	}
	return slots
}
