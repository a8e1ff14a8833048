package opcodes

type ParsedOpCode struct {
	OpValue byte

	Length int
	Data   []byte
}

func NewParsedOpCode(opValue byte, length int, data []byte) *ParsedOpCode {
	newData := make([]byte, len(data))
	copy(newData, data)
	return &ParsedOpCode{OpValue: opValue, Length: length, Data: newData}
}

// IsPush reports opcodes that only put data on the stack.
func (parsedOpCode *ParsedOpCode) IsPush() bool {
	return parsedOpCode.OpValue <= OP_16 && parsedOpCode.OpValue != OP_RESERVED
}

func (parsedOpCode *ParsedOpCode) CheckCompactDataPush() bool {
	dataLen := len(parsedOpCode.Data)
	opcode := parsedOpCode.OpValue
	if dataLen <= 75 {
		return int(opcode) == dataLen
	}
	if dataLen <= 255 {
		return opcode == OP_PUSHDATA1
	}
	if dataLen <= 65535 {
		return opcode == OP_PUSHDATA2
	}
	return opcode == OP_PUSHDATA4
}

func (parsedOpCode *ParsedOpCode) CheckMinimalDataPush() bool {
	data := parsedOpCode.Data
	opcode := parsedOpCode.OpValue
	switch len(data) {
	case 0:
		return opcode == OP_0
	case 1:
		if data[0] >= 1 && data[0] <= 16 {
			return opcode == OP_1+data[0]-1
		}
		if data[0] == 0x81 {
			return opcode == OP_1NEGATE
		}
	}
	return parsedOpCode.CheckCompactDataPush()
}
