package classfile

import (
	"fmt"
	"math"
)

type ConstantTag uint8

const (
	TagUtf8               ConstantTag = 1
	TagInteger            ConstantTag = 3
	TagFloat              ConstantTag = 4
	TagLong               ConstantTag = 5
	TagDouble             ConstantTag = 6
	TagClass              ConstantTag = 7
	TagString             ConstantTag = 8
	TagFieldref           ConstantTag = 9
	TagMethodref          ConstantTag = 10
	TagInterfaceMethodref ConstantTag = 11
	TagNameAndType        ConstantTag = 12
	TagMethodHandle       ConstantTag = 15
	TagMethodType         ConstantTag = 16
	TagDynamic            ConstantTag = 17
	TagInvokeDynamic      ConstantTag = 18
	TagModule             ConstantTag = 19
	TagPackage            ConstantTag = 20
)

func (t ConstantTag) String() string {
	switch t {
	case TagUtf8:
		return "Utf8"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	case TagLong:
		return "Long"
	case TagDouble:
		return "Double"
	case TagClass:
		return "Class"
	case TagString:
		return "String"
	case TagFieldref:
		return "Fieldref"
	case TagMethodref:
		return "Methodref"
	case TagInterfaceMethodref:
		return "InterfaceMethodref"
	case TagNameAndType:
		return "NameAndType"
	case TagMethodHandle:
		return "MethodHandle"
	case TagMethodType:
		return "MethodType"
	case TagDynamic:
		return "Dynamic"
	case TagInvokeDynamic:
		return "InvokeDynamic"
	case TagModule:
		return "Module"
	case TagPackage:
		return "Package"
	default:
		return fmt.Sprintf("ConstantTag(%d)", uint8(t))
	}
}

/*
constant pool entry layouts

Utf8                u2 length, [u1]* bytes
Integer, Float      u4
Long, Double        u8, occupies two slots
Class, String       u2 utf8 / name index
MethodType          u2 descriptor index
Module, Package     u2 name index
*ref                u2 class index, u2 name-and-type index
NameAndType         u2 name index, u2 descriptor index
MethodHandle        u1 reference kind, u2 reference index
Dynamic, InvokeDyn  u2 bootstrap method attr index, u2 name-and-type index
*/
type cpEntry struct {
	tag ConstantTag
	a   uint16
	b   uint16
	str string
	num uint64
}

type constantPool []cpEntry

func readConstantPool(br *BinaryReader) (constantPool, error) {
	count, err := br.ReadU2()
	if err != nil {
		return nil, fmt.Errorf("failed to read constant pool count: %w", err)
	}

	// slot 0 is unused
	pool := make(constantPool, count)
	for i := 1; i < int(count); i++ {
		tag, err := br.ReadU1()
		if err != nil {
			return nil, fmt.Errorf("failed to read tag of constant %d: %w", i, err)
		}

		e := cpEntry{tag: ConstantTag(tag)}
		switch e.tag {
		case TagUtf8:
			e.str, err = br.ReadUtf8String()
		case TagInteger, TagFloat:
			var v uint32
			v, err = br.ReadU4()
			e.num = uint64(v)
		case TagLong, TagDouble:
			e.num, err = br.ReadU8()
		case TagClass, TagString, TagMethodType, TagModule, TagPackage:
			e.a, err = br.ReadU2()
		case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType,
			TagDynamic, TagInvokeDynamic:
			if e.a, err = br.ReadU2(); err == nil {
				e.b, err = br.ReadU2()
			}
		case TagMethodHandle:
			var kind uint8
			if kind, err = br.ReadU1(); err == nil {
				e.a = uint16(kind)
				e.b, err = br.ReadU2()
			}
		default:
			return nil, fmt.Errorf("unknown constant pool tag %d at index %d", tag, i)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s constant %d: %w", e.tag, i, err)
		}

		pool[i] = e
		if e.tag == TagLong || e.tag == TagDouble {
			i++
		}
	}
	return pool, nil
}

func (p constantPool) entry(idx uint16, want ...ConstantTag) (cpEntry, error) {
	if idx == 0 || int(idx) >= len(p) {
		return cpEntry{}, fmt.Errorf("constant pool index %d out of range", idx)
	}
	e := p[idx]
	if len(want) == 0 {
		return e, nil
	}
	for _, t := range want {
		if e.tag == t {
			return e, nil
		}
	}
	return cpEntry{}, fmt.Errorf("constant %d is %s, expected %v", idx, e.tag, want)
}

func (p constantPool) utf8(idx uint16) (string, error) {
	e, err := p.entry(idx, TagUtf8)
	if err != nil {
		return "", err
	}
	return e.str, nil
}

func (p constantPool) className(idx uint16) (string, error) {
	e, err := p.entry(idx, TagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(e.a)
}

func (p constantPool) nameAndType(idx uint16) (string, string, error) {
	e, err := p.entry(idx, TagNameAndType)
	if err != nil {
		return "", "", err
	}
	name, err := p.utf8(e.a)
	if err != nil {
		return "", "", err
	}
	desc, err := p.utf8(e.b)
	if err != nil {
		return "", "", err
	}
	return name, desc, nil
}

type memberRef struct {
	owner      string
	name       string
	descriptor string
	iface      bool
}

func (p constantPool) memberRef(idx uint16) (memberRef, error) {
	e, err := p.entry(idx, TagFieldref, TagMethodref, TagInterfaceMethodref)
	if err != nil {
		return memberRef{}, err
	}
	owner, err := p.className(e.a)
	if err != nil {
		return memberRef{}, err
	}
	name, desc, err := p.nameAndType(e.b)
	if err != nil {
		return memberRef{}, err
	}
	return memberRef{owner: owner, name: name, descriptor: desc, iface: e.tag == TagInterfaceMethodref}, nil
}

func (p constantPool) handle(idx uint16) (Handle, error) {
	e, err := p.entry(idx, TagMethodHandle)
	if err != nil {
		return Handle{}, err
	}
	ref, err := p.memberRef(e.b)
	if err != nil {
		return Handle{}, fmt.Errorf("method handle %d: %w", idx, err)
	}
	return Handle{
		Kind:       HandleKind(e.a),
		Owner:      ref.owner,
		Name:       ref.name,
		Descriptor: ref.descriptor,
		Interface:  ref.iface,
	}, nil
}

// loadable resolves a constant usable by ldc or as a bootstrap argument
func (p constantPool) loadable(idx uint16) (any, error) {
	e, err := p.entry(idx)
	if err != nil {
		return nil, err
	}
	switch e.tag {
	case TagInteger:
		return int32(uint32(e.num)), nil
	case TagFloat:
		return math.Float32frombits(uint32(e.num)), nil
	case TagLong:
		return int64(e.num), nil
	case TagDouble:
		return math.Float64frombits(e.num), nil
	case TagString:
		return p.utf8(e.a)
	case TagClass:
		name, err := p.utf8(e.a)
		return ClassConstant{Name: name}, err
	case TagMethodType:
		desc, err := p.utf8(e.a)
		return MethodTypeConstant{Descriptor: desc}, err
	case TagMethodHandle:
		return p.handle(idx)
	case TagDynamic:
		name, desc, err := p.nameAndType(e.b)
		return DynamicConstant{Name: name, Descriptor: desc}, err
	default:
		return nil, fmt.Errorf("constant %d (%s) is not loadable", idx, e.tag)
	}
}
