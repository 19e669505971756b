package classfile

import (
	"encoding/binary"
	"fmt"
)

const (
	OpLdc             uint8 = 0x12
	OpLdcW            uint8 = 0x13
	OpLdc2W           uint8 = 0x14
	OpTableSwitch     uint8 = 0xaa
	OpLookupSwitch    uint8 = 0xab
	OpInvokeVirtual   uint8 = 0xb6
	OpInvokeSpecial   uint8 = 0xb7
	OpInvokeStatic    uint8 = 0xb8
	OpInvokeInterface uint8 = 0xb9
	OpInvokeDynamic   uint8 = 0xba
	OpWide            uint8 = 0xc4
	OpIinc            uint8 = 0x84
)

// fixed instruction lengths including the opcode byte; 0 marks opcodes that are
// variable length or unassigned
var opcodeLength [256]uint8

func init() {
	set := func(length uint8, ranges ...[2]int) {
		for _, r := range ranges {
			for op := r[0]; op <= r[1]; op++ {
				opcodeLength[op] = length
			}
		}
	}

	set(1,
		[2]int{0x00, 0x0f}, [2]int{0x1a, 0x35}, [2]int{0x3b, 0x83}, [2]int{0x85, 0x98},
		[2]int{0xac, 0xb1}, [2]int{0xbe, 0xbf}, [2]int{0xc2, 0xc3}, [2]int{0xca, 0xca},
		[2]int{0xfe, 0xff},
	)
	set(2,
		[2]int{0x10, 0x10}, [2]int{0x12, 0x12}, [2]int{0x15, 0x19}, [2]int{0x36, 0x3a},
		[2]int{0xa9, 0xa9}, [2]int{0xbc, 0xbc},
	)
	set(3,
		[2]int{0x11, 0x11}, [2]int{0x13, 0x14}, [2]int{0x84, 0x84}, [2]int{0x99, 0xa8},
		[2]int{0xb2, 0xb8}, [2]int{0xbb, 0xbb}, [2]int{0xbd, 0xbd}, [2]int{0xc0, 0xc1},
		[2]int{0xc6, 0xc7},
	)
	set(4, [2]int{0xc5, 0xc5})
	set(5, [2]int{0xb9, 0xba}, [2]int{0xc8, 0xc9})
}

// instructionLength returns the byte length of the instruction at pc
func instructionLength(code []byte, pc int) (int, error) {
	op := code[pc]
	if n := opcodeLength[op]; n != 0 {
		return int(n), nil
	}

	switch op {
	case OpWide:
		if pc+1 >= len(code) {
			return 0, fmt.Errorf("truncated wide instruction at pc %d", pc)
		}
		if code[pc+1] == OpIinc {
			return 6, nil
		}
		return 4, nil

	case OpTableSwitch, OpLookupSwitch:
		// operands start at the next 4-byte boundary relative to the code start
		base := (pc + 4) &^ 3
		if base+8 > len(code) || (op == OpTableSwitch && base+12 > len(code)) {
			return 0, fmt.Errorf("truncated switch at pc %d", pc)
		}
		if op == OpTableSwitch {
			low := int32(binary.BigEndian.Uint32(code[base+4:]))
			high := int32(binary.BigEndian.Uint32(code[base+8:]))
			if high < low {
				return 0, fmt.Errorf("tableswitch at pc %d has high %d < low %d", pc, high, low)
			}
			return base + 12 + int(int64(high)-int64(low)+1)*4 - pc, nil
		}
		npairs := int32(binary.BigEndian.Uint32(code[base+4:]))
		if npairs < 0 {
			return 0, fmt.Errorf("lookupswitch at pc %d has %d pairs", pc, npairs)
		}
		return base + 8 + int(npairs)*8 - pc, nil
	}

	return 0, fmt.Errorf("unknown opcode 0x%02X at pc %d", op, pc)
}
