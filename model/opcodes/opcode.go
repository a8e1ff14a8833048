package opcodes

import "strconv"

const (
	// push value
	OP_0         = 0x00
	OP_FALSE     = OP_0
	OP_PUSHDATA1 = 0x4c
	OP_PUSHDATA2 = 0x4d
	OP_PUSHDATA4 = 0x4e
	OP_1NEGATE   = 0x4f
	OP_RESERVED  = 0x50
	OP_1         = 0x51
	OP_TRUE      = OP_1
	OP_2         = 0x52
	OP_3         = 0x53
	OP_11        = 0x5b
	OP_16        = 0x60

	// control
	OP_NOP    = 0x61
	OP_VERIFY = 0x69
	OP_RETURN = 0x6a

	// stack ops
	OP_DROP = 0x75
	OP_DUP  = 0x76

	// bit logic
	OP_EQUAL       = 0x87
	OP_EQUALVERIFY = 0x88

	// crypto
	OP_HASH160             = 0xa9
	OP_CHECKSIG            = 0xac
	OP_CHECKSIGVERIFY      = 0xad
	OP_CHECKMULTISIG       = 0xae
	OP_CHECKMULTISIGVERIFY = 0xaf

	OP_INVALIDOPCODE = 0xff
)

var opcodeNames = map[byte]string{
	OP_0:                   "0",
	OP_PUSHDATA1:           "OP_PUSHDATA1",
	OP_PUSHDATA2:           "OP_PUSHDATA2",
	OP_PUSHDATA4:           "OP_PUSHDATA4",
	OP_1NEGATE:             "-1",
	OP_RESERVED:            "OP_RESERVED",
	OP_NOP:                 "OP_NOP",
	OP_VERIFY:              "OP_VERIFY",
	OP_RETURN:              "OP_RETURN",
	OP_DROP:                "OP_DROP",
	OP_DUP:                 "OP_DUP",
	OP_EQUAL:               "OP_EQUAL",
	OP_EQUALVERIFY:         "OP_EQUALVERIFY",
	OP_HASH160:             "OP_HASH160",
	OP_CHECKSIG:            "OP_CHECKSIG",
	OP_CHECKSIGVERIFY:      "OP_CHECKSIGVERIFY",
	OP_CHECKMULTISIG:       "OP_CHECKMULTISIG",
	OP_CHECKMULTISIGVERIFY: "OP_CHECKMULTISIGVERIFY",
	OP_INVALIDOPCODE:       "OP_INVALIDOPCODE",
}

func GetOpName(opCode byte) string {
	if name, ok := opcodeNames[opCode]; ok {
		return name
	}
	if opCode >= OP_1 && opCode <= OP_16 {
		return strconv.Itoa(int(opCode-OP_1) + 1)
	}
	return "OP_UNKNOWN"
}
