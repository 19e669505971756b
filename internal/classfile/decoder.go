// Package classfile decodes JVM class files into a pull-based stream of events.
package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const classMagic = 0xCAFEBABE

// ErrDecode matches every *DecodeError via errors.Is
var ErrDecode = errors.New("malformed class file")

type DecodeError struct {
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed class file at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

type Options struct {
	// SkipCode suppresses instruction events (ConstantLoad, MethodInsn, InvokeDynamicInsn)
	SkipCode bool
	// SkipDebug suppresses LineNumber and LocalVariable events
	SkipDebug bool
}

type bootstrapMethod struct {
	ref  uint16
	args []uint16
}

type decoderState int

const (
	stateHeader decoderState = iota
	stateFields
	stateMethods
	stateDone
)

/*
Decoder walks a class file:

ClassFile {
	u4 magic, u2 minor_version, u2 major_version
	u2 constant_pool_count, cp_info constant_pool[count-1]
	u2 access_flags, u2 this_class, u2 super_class
	u2 interfaces_count, u2 interfaces[count]
	u2 fields_count, field_info fields[count]
	u2 methods_count, method_info methods[count]
	u2 attributes_count, attribute_info attributes[count]
}

The header, constant pool and class attributes are read eagerly by NewDecoder,
because SourceFile and BootstrapMethods live after the methods. Fields and methods
are decoded one at a time as Next is called.
*/
type Decoder struct {
	br         *BinaryReader
	pool       constantPool
	opts       Options
	class      ClassDecl
	sourceFile string
	bootstraps []bootstrapMethod

	state     decoderState
	remaining int
	pending   []Event
	err       error
}

func NewDecoder(data []byte, opts Options) (*Decoder, error) {
	d := &Decoder{br: NewBinaryReader(data), opts: opts}
	if err := d.readHeader(); err != nil {
		return nil, err
	}
	return d, nil
}

// Class returns the class declaration read by NewDecoder
func (d *Decoder) Class() ClassDecl {
	return d.class
}

// Next returns the next event, or io.EOF once the class is exhausted.
// After a decode error every further call returns the same error.
func (d *Decoder) Next() (Event, error) {
	for len(d.pending) == 0 {
		if d.err != nil {
			return nil, d.err
		}
		if err := d.advance(); err != nil {
			d.err = err
		}
	}
	ev := d.pending[0]
	d.pending = d.pending[1:]
	return ev, nil
}

// Walk decodes data and passes every event to fn until the stream ends or fn fails
func Walk(data []byte, opts Options, fn func(Event) error) error {
	d, err := NewDecoder(data, opts)
	if err != nil {
		return err
	}
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

func (d *Decoder) fail(format string, args ...any) error {
	return &DecodeError{Offset: d.br.Offset(), Err: fmt.Errorf(format, args...)}
}

func (d *Decoder) readHeader() error {
	br := d.br

	magic, err := br.ReadU4()
	if err != nil {
		return d.fail("failed to read magic: %w", err)
	}
	if magic != classMagic {
		return d.fail("bad magic 0x%08X", magic)
	}
	if d.class.Minor, err = br.ReadU2(); err != nil {
		return d.fail("failed to read minor version: %w", err)
	}
	if d.class.Major, err = br.ReadU2(); err != nil {
		return d.fail("failed to read major version: %w", err)
	}

	if d.pool, err = readConstantPool(br); err != nil {
		return d.fail("%w", err)
	}

	if d.class.Access, err = br.ReadU2(); err != nil {
		return d.fail("failed to read access flags: %w", err)
	}
	thisIdx, err := br.ReadU2()
	if err != nil {
		return d.fail("failed to read this_class: %w", err)
	}
	if d.class.Name, err = d.pool.className(thisIdx); err != nil {
		return d.fail("this_class: %w", err)
	}
	superIdx, err := br.ReadU2()
	if err != nil {
		return d.fail("failed to read super_class: %w", err)
	}
	if superIdx != 0 {
		if d.class.SuperName, err = d.pool.className(superIdx); err != nil {
			return d.fail("super_class: %w", err)
		}
	}

	ifaceCount, err := br.ReadU2()
	if err != nil {
		return d.fail("failed to read interfaces count: %w", err)
	}
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := br.ReadU2()
		if err != nil {
			return d.fail("failed to read interface %d: %w", i, err)
		}
		name, err := d.pool.className(idx)
		if err != nil {
			return d.fail("interface %d: %w", i, err)
		}
		d.class.Interfaces = append(d.class.Interfaces, name)
	}

	// Skip ahead to the class attributes, then come back for the members.
	membersStart := br.Offset()
	for _, kind := range []string{"field", "method"} {
		count, err := br.ReadU2()
		if err != nil {
			return d.fail("failed to read %s count: %w", kind, err)
		}
		for i := 0; i < int(count); i++ {
			if err := br.Skip(6); err != nil {
				return d.fail("%s %d: %w", kind, i, err)
			}
			if err := d.skipAttributes(); err != nil {
				return err
			}
		}
	}
	if err := d.readClassAttributes(); err != nil {
		return err
	}
	br.pos = membersStart
	return nil
}

func (d *Decoder) skipAttributes() error {
	count, err := d.br.ReadU2()
	if err != nil {
		return d.fail("failed to read attributes count: %w", err)
	}
	for i := 0; i < int(count); i++ {
		if _, _, err := d.readAttribute(); err != nil {
			return err
		}
	}
	return nil
}

// readAttribute returns the attribute name and body
func (d *Decoder) readAttribute() (string, []byte, error) {
	nameIdx, err := d.br.ReadU2()
	if err != nil {
		return "", nil, d.fail("failed to read attribute name: %w", err)
	}
	name, err := d.pool.utf8(nameIdx)
	if err != nil {
		return "", nil, d.fail("attribute name: %w", err)
	}
	length, err := d.br.ReadU4()
	if err != nil {
		return "", nil, d.fail("failed to read length of %s: %w", name, err)
	}
	if int64(length) > int64(d.br.Remaining()) {
		return "", nil, d.fail("attribute %s length %d exceeds class size", name, length)
	}
	body, err := d.br.ReadNBytes(int(length))
	if err != nil {
		return "", nil, d.fail("failed to read %s: %w", name, err)
	}
	return name, body, nil
}

func (d *Decoder) readClassAttributes() error {
	count, err := d.br.ReadU2()
	if err != nil {
		return d.fail("failed to read class attributes count: %w", err)
	}
	for i := 0; i < int(count); i++ {
		name, body, err := d.readAttribute()
		if err != nil {
			return err
		}
		ar := NewBinaryReader(body)
		switch name {
		case "SourceFile":
			idx, err := ar.ReadU2()
			if err != nil {
				return d.fail("SourceFile: %w", err)
			}
			if d.sourceFile, err = d.pool.utf8(idx); err != nil {
				return d.fail("SourceFile: %w", err)
			}
		case "BootstrapMethods":
			n, err := ar.ReadU2()
			if err != nil {
				return d.fail("BootstrapMethods: %w", err)
			}
			d.bootstraps = make([]bootstrapMethod, n)
			for j := range d.bootstraps {
				bm := &d.bootstraps[j]
				if bm.ref, err = ar.ReadU2(); err != nil {
					return d.fail("bootstrap method %d: %w", j, err)
				}
				argc, err := ar.ReadU2()
				if err != nil {
					return d.fail("bootstrap method %d: %w", j, err)
				}
				bm.args = make([]uint16, argc)
				for k := range bm.args {
					if bm.args[k], err = ar.ReadU2(); err != nil {
						return d.fail("bootstrap method %d argument %d: %w", j, k, err)
					}
				}
			}
		}
	}
	return nil
}

func (d *Decoder) advance() error {
	switch d.state {
	case stateHeader:
		d.pending = append(d.pending, d.class)
		if d.sourceFile != "" {
			d.pending = append(d.pending, SourceFile{Name: d.sourceFile})
		}
		return d.beginMembers(stateFields, "field")

	case stateFields:
		if d.remaining == 0 {
			return d.beginMembers(stateMethods, "method")
		}
		d.remaining--
		access, name, desc, err := d.readMemberHeader()
		if err != nil {
			return err
		}
		if err := d.skipAttributes(); err != nil {
			return err
		}
		d.pending = append(d.pending, FieldDecl{Access: access, Name: name, Descriptor: desc})
		return nil

	case stateMethods:
		if d.remaining == 0 {
			d.state = stateDone
			return io.EOF
		}
		d.remaining--
		return d.readMethod()
	}
	return io.EOF
}

func (d *Decoder) beginMembers(next decoderState, kind string) error {
	count, err := d.br.ReadU2()
	if err != nil {
		return d.fail("failed to read %s count: %w", kind, err)
	}
	d.state = next
	d.remaining = int(count)
	return nil
}

func (d *Decoder) readMemberHeader() (uint16, string, string, error) {
	access, err := d.br.ReadU2()
	if err != nil {
		return 0, "", "", d.fail("failed to read member access flags: %w", err)
	}
	nameIdx, err := d.br.ReadU2()
	if err != nil {
		return 0, "", "", d.fail("failed to read member name: %w", err)
	}
	descIdx, err := d.br.ReadU2()
	if err != nil {
		return 0, "", "", d.fail("failed to read member descriptor: %w", err)
	}
	name, err := d.pool.utf8(nameIdx)
	if err != nil {
		return 0, "", "", d.fail("member name: %w", err)
	}
	desc, err := d.pool.utf8(descIdx)
	if err != nil {
		return 0, "", "", d.fail("member descriptor: %w", err)
	}
	return access, name, desc, nil
}

func (d *Decoder) readMethod() error {
	access, name, desc, err := d.readMemberHeader()
	if err != nil {
		return err
	}
	d.pending = append(d.pending, MethodDecl{Access: access, Name: name, Descriptor: desc})

	count, err := d.br.ReadU2()
	if err != nil {
		return d.fail("failed to read attributes count of %s: %w", name, err)
	}
	for i := 0; i < int(count); i++ {
		attr, body, err := d.readAttribute()
		if err != nil {
			return err
		}
		if attr != "Code" || (d.opts.SkipCode && d.opts.SkipDebug) {
			continue
		}
		if err := d.readCode(body); err != nil {
			return d.fail("method %s%s: %w", name, desc, err)
		}
	}

	d.pending = append(d.pending, MethodEnd{})
	return nil
}

/*
Code_attribute body

u2 max_stack, u2 max_locals
u4 code_length, u1 code[code_length]
u2 exception_table_length, {u2 start_pc, end_pc, handler_pc, catch_type}[length]
u2 attributes_count, attribute_info attributes[count]
*/
func (d *Decoder) readCode(body []byte) error {
	cr := NewBinaryReader(body)
	if err := cr.Skip(4); err != nil {
		return fmt.Errorf("failed to read max stack/locals: %w", err)
	}
	codeLen, err := cr.ReadU4()
	if err != nil {
		return fmt.Errorf("failed to read code length: %w", err)
	}
	if int64(codeLen) > int64(cr.Remaining()) {
		return fmt.Errorf("code length %d exceeds attribute", codeLen)
	}
	code, _ := cr.ReadNBytes(int(codeLen))

	excLen, err := cr.ReadU2()
	if err != nil {
		return fmt.Errorf("failed to read exception table length: %w", err)
	}
	if err := cr.Skip(int(excLen) * 8); err != nil {
		return fmt.Errorf("exception table: %w", err)
	}

	if !d.opts.SkipCode {
		if err := d.readInstructions(code); err != nil {
			return err
		}
	}

	attrCount, err := cr.ReadU2()
	if err != nil {
		return fmt.Errorf("failed to read code attributes count: %w", err)
	}
	for i := 0; i < int(attrCount); i++ {
		nameIdx, err := cr.ReadU2()
		if err != nil {
			return fmt.Errorf("failed to read code attribute name: %w", err)
		}
		length, err := cr.ReadU4()
		if err != nil {
			return fmt.Errorf("failed to read code attribute length: %w", err)
		}
		if int64(length) > int64(cr.Remaining()) {
			return fmt.Errorf("code attribute length %d exceeds attribute", length)
		}
		attrBody, _ := cr.ReadNBytes(int(length))
		if d.opts.SkipDebug {
			continue
		}
		name, err := d.pool.utf8(nameIdx)
		if err != nil {
			return fmt.Errorf("code attribute name: %w", err)
		}
		switch name {
		case "LineNumberTable":
			err = d.readLineNumbers(attrBody)
		case "LocalVariableTable":
			err = d.readLocalVariables(attrBody)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Decoder) readInstructions(code []byte) error {
	for pc := 0; pc < len(code); {
		n, err := instructionLength(code, pc)
		if err != nil {
			return err
		}
		if pc+n > len(code) {
			return fmt.Errorf("instruction 0x%02X at pc %d overruns code", code[pc], pc)
		}

		switch op := code[pc]; op {
		case OpLdc, OpLdcW, OpLdc2W:
			idx := uint16(code[pc+1])
			if op != OpLdc {
				idx = binary.BigEndian.Uint16(code[pc+1:])
			}
			v, err := d.pool.loadable(idx)
			if err != nil {
				return fmt.Errorf("ldc at pc %d: %w", pc, err)
			}
			d.pending = append(d.pending, ConstantLoad{Opcode: op, Value: v})

		case OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface:
			idx := binary.BigEndian.Uint16(code[pc+1:])
			if _, err := d.pool.entry(idx, TagMethodref, TagInterfaceMethodref); err != nil {
				return fmt.Errorf("invoke at pc %d: %w", pc, err)
			}
			ref, err := d.pool.memberRef(idx)
			if err != nil {
				return fmt.Errorf("invoke at pc %d: %w", pc, err)
			}
			d.pending = append(d.pending, MethodInsn{
				Opcode:     op,
				Owner:      ref.owner,
				Name:       ref.name,
				Descriptor: ref.descriptor,
				Interface:  ref.iface,
			})

		case OpInvokeDynamic:
			insn, err := d.invokeDynamic(binary.BigEndian.Uint16(code[pc+1:]))
			if err != nil {
				return fmt.Errorf("invokedynamic at pc %d: %w", pc, err)
			}
			d.pending = append(d.pending, insn)
		}
		pc += n
	}
	return nil
}

func (d *Decoder) invokeDynamic(idx uint16) (InvokeDynamicInsn, error) {
	e, err := d.pool.entry(idx, TagInvokeDynamic)
	if err != nil {
		return InvokeDynamicInsn{}, err
	}
	name, desc, err := d.pool.nameAndType(e.b)
	if err != nil {
		return InvokeDynamicInsn{}, err
	}
	if int(e.a) >= len(d.bootstraps) {
		return InvokeDynamicInsn{}, fmt.Errorf("bootstrap method %d out of range", e.a)
	}
	bm := d.bootstraps[e.a]
	bsm, err := d.pool.handle(bm.ref)
	if err != nil {
		return InvokeDynamicInsn{}, err
	}
	args := make([]any, 0, len(bm.args))
	for _, a := range bm.args {
		v, err := d.pool.loadable(a)
		if err != nil {
			return InvokeDynamicInsn{}, fmt.Errorf("bootstrap argument: %w", err)
		}
		args = append(args, v)
	}
	return InvokeDynamicInsn{Name: name, Descriptor: desc, Bootstrap: bsm, BootstrapArgs: args}, nil
}

func (d *Decoder) readLineNumbers(body []byte) error {
	r := NewBinaryReader(body)
	n, err := r.ReadU2()
	if err != nil {
		return fmt.Errorf("LineNumberTable: %w", err)
	}
	for i := 0; i < int(n); i++ {
		start, err := r.ReadU2()
		if err != nil {
			return fmt.Errorf("LineNumberTable entry %d: %w", i, err)
		}
		line, err := r.ReadU2()
		if err != nil {
			return fmt.Errorf("LineNumberTable entry %d: %w", i, err)
		}
		d.pending = append(d.pending, LineNumber{StartPC: start, Line: line})
	}
	return nil
}

func (d *Decoder) readLocalVariables(body []byte) error {
	r := NewBinaryReader(body)
	n, err := r.ReadU2()
	if err != nil {
		return fmt.Errorf("LocalVariableTable: %w", err)
	}
	for i := 0; i < int(n); i++ {
		// start_pc, length
		if err := r.Skip(4); err != nil {
			return fmt.Errorf("LocalVariableTable entry %d: %w", i, err)
		}
		nameIdx, err := r.ReadU2()
		if err != nil {
			return fmt.Errorf("LocalVariableTable entry %d: %w", i, err)
		}
		descIdx, err := r.ReadU2()
		if err != nil {
			return fmt.Errorf("LocalVariableTable entry %d: %w", i, err)
		}
		slot, err := r.ReadU2()
		if err != nil {
			return fmt.Errorf("LocalVariableTable entry %d: %w", i, err)
		}
		name, err := d.pool.utf8(nameIdx)
		if err != nil {
			return fmt.Errorf("LocalVariableTable entry %d: %w", i, err)
		}
		desc, err := d.pool.utf8(descIdx)
		if err != nil {
			return fmt.Errorf("LocalVariableTable entry %d: %w", i, err)
		}
		d.pending = append(d.pending, LocalVariable{Name: name, Descriptor: desc, Index: slot})
	}
	return nil
}
