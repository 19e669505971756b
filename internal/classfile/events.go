package classfile

// Event is one item of the decoded stream. Consumers type-switch over the
// concrete variants below.
type Event interface {
	event()
}

// ClassDecl is always the first event of a class
type ClassDecl struct {
	Major      uint16
	Minor      uint16
	Access     uint16
	Name       string // internal form, e.g. java/util/List
	SuperName  string // empty for java/lang/Object and module-info
	Interfaces []string
}

type SourceFile struct {
	Name string
}

type FieldDecl struct {
	Access     uint16
	Name       string
	Descriptor string
}

// MethodDecl opens a method. Its instruction and debug events follow, closed by MethodEnd.
type MethodDecl struct {
	Access     uint16
	Name       string
	Descriptor string
}

type MethodEnd struct{}

// ConstantLoad is emitted for ldc, ldc_w and ldc2_w.
// Value holds string, int32, float32, int64, float64, ClassConstant,
// MethodTypeConstant, Handle or DynamicConstant.
type ConstantLoad struct {
	Opcode uint8
	Value  any
}

// MethodInsn is one of invokevirtual, invokespecial, invokestatic or invokeinterface
type MethodInsn struct {
	Opcode     uint8
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

type InvokeDynamicInsn struct {
	Name          string
	Descriptor    string
	Bootstrap     Handle
	BootstrapArgs []any
}

type LineNumber struct {
	StartPC uint16
	Line    uint16
}

type LocalVariable struct {
	Name       string
	Descriptor string
	Index      uint16
}

func (ClassDecl) event()         {}
func (SourceFile) event()        {}
func (FieldDecl) event()         {}
func (MethodDecl) event()        {}
func (MethodEnd) event()         {}
func (ConstantLoad) event()      {}
func (MethodInsn) event()        {}
func (InvokeDynamicInsn) event() {}
func (LineNumber) event()        {}
func (LocalVariable) event()     {}

// Handle is a CONSTANT_MethodHandle resolved to its member reference
type Handle struct {
	Kind       HandleKind
	Owner      string
	Name       string
	Descriptor string
	Interface  bool
}

type HandleKind uint8

const (
	RefGetField         HandleKind = 1
	RefGetStatic        HandleKind = 2
	RefPutField         HandleKind = 3
	RefPutStatic        HandleKind = 4
	RefInvokeVirtual    HandleKind = 5
	RefInvokeStatic     HandleKind = 6
	RefInvokeSpecial    HandleKind = 7
	RefNewInvokeSpecial HandleKind = 8
	RefInvokeInterface  HandleKind = 9
)

// ClassConstant is a class literal pushed by ldc
type ClassConstant struct {
	Name string
}

type MethodTypeConstant struct {
	Descriptor string
}

type DynamicConstant struct {
	Name       string
	Descriptor string
}
