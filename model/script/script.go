package script

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/floweethehub/thehub-sub000/crypto"
	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/opcodes"
	"github.com/floweethehub/thehub-sub000/util"
	"github.com/pkg/errors"
)

const (
	MaxMessagePayload = 32 * 1024 * 1024

	// MaxPubKeysPerMultiSig :  maximum number of public keys per multiSig
	MaxPubKeysPerMultiSig = 20

	// LockTimeThreshold threshold for nLockTime: below this value it is interpreted as block number,
	// otherwise as UNIX timestamp. Threshold is Tue Nov 5 00:53:20 1985 UTC
	LockTimeThreshold = 500000000

	// SequenceFinal setting sequence to this value for every input in a transaction
	// disables nLockTime.
	SequenceFinal = 0xffffffff

	MaxScriptSize        = 10000
	MaxScriptElementSize = 520
)

const (
	// If this flag set, the input sequence is NOT interpreted as a relative lock-time.
	SequenceLockTimeDisableFlag = 1 << 31

	// If set the relative lock-time has units of 512 seconds, otherwise blocks.
	SequenceLockTimeTypeFlag = 1 << 22

	SequenceLockTimeMask = 0x0000ffff

	SequenceLockTimeGranularity = 9
)

// Script verification flags, only the ones honoured by the signature checks
// in this repository.
const (
	ScriptVerifyNone          = 0
	ScriptVerifyStrictEnc     = 1 << 1
	ScriptVerifyDersig        = 1 << 2
	ScriptVerifyLowS          = 1 << 3
	ScriptVerifySigPushOnly   = 1 << 5
	ScriptVerifyNullFail      = 1 << 14
	ScriptEnableSigHashForkID = 1 << 16
	ScriptEnableSchnorr       = 1 << 19

	StandardScriptVerifyFlags = ScriptVerifyStrictEnc | ScriptVerifyDersig | ScriptVerifyLowS |
		ScriptVerifySigPushOnly | ScriptVerifyNullFail | ScriptEnableSigHashForkID | ScriptEnableSchnorr
)

const p2pkhSize = 25

type Script struct {
	data          []byte
	ParsedOpCodes []opcodes.ParsedOpCode
	badOpCode     bool
}

func NewScriptRaw(bytes []byte) *Script {
	newBytes := make([]byte, len(bytes))
	copy(newBytes, bytes)
	s := Script{data: newBytes}
	// a script that fails to parse is still a valid output script
	s.convertOPS()
	return &s
}

func NewEmptyScript() *Script {
	return &Script{data: make([]byte, 0), ParsedOpCodes: make([]opcodes.ParsedOpCode, 0)}
}

// NewP2PKHScript builds OP_DUP OP_HASH160 <hash> OP_EQUALVERIFY OP_CHECKSIG.
func NewP2PKHScript(pubKeyHash []byte) *Script {
	data := make([]byte, 0, p2pkhSize)
	data = append(data, opcodes.OP_DUP, opcodes.OP_HASH160, util.Hash160Size)
	data = append(data, pubKeyHash...)
	data = append(data, opcodes.OP_EQUALVERIFY, opcodes.OP_CHECKSIG)
	return NewScriptRaw(data)
}

func (s *Script) SerializeSize() int {
	return util.VarIntSerializeSize(uint64(len(s.data))) + len(s.data)
}

func (s *Script) Serialize(writer io.Writer) error {
	return util.WriteVarBytes(writer, s.data)
}

func (s *Script) Unserialize(reader io.Reader) error {
	b, err := util.ReadVarBytes(reader, MaxMessagePayload, "script")
	if err != nil {
		return err
	}
	s.data = b
	s.convertOPS()
	return nil
}

func (s *Script) Bytes() []byte {
	return s.data
}

func (s *Script) Size() int {
	return len(s.data)
}

func (s *Script) IsEqual(other *Script) bool {
	return bytes.Equal(s.data, other.data)
}

func (s *Script) GetBadOpCode() bool {
	return s.badOpCode
}

func (s *Script) convertOPS() (err error) {
	s.ParsedOpCodes = make([]opcodes.ParsedOpCode, 0)
	scriptLen := len(s.data)

	i := 0
	for i < scriptLen {
		nSize := 0
		opcode := s.data[i]
		i++
		switch {
		case opcode < opcodes.OP_PUSHDATA1:
			nSize = int(opcode)
		case opcode == opcodes.OP_PUSHDATA1:
			if scriptLen-i < 1 {
				err = errors.New("OP_PUSHDATA1 has no enough data")
			} else {
				nSize = int(s.data[i])
				i++
			}
		case opcode == opcodes.OP_PUSHDATA2:
			if scriptLen-i < 2 {
				err = errors.New("OP_PUSHDATA2 has no enough data")
			} else {
				nSize = int(binary.LittleEndian.Uint16(s.data[i : i+2]))
				i += 2
			}
		case opcode == opcodes.OP_PUSHDATA4:
			if scriptLen-i < 4 {
				err = errors.New("OP_PUSHDATA4 has no enough data")
			} else {
				nSize = int(binary.LittleEndian.Uint32(s.data[i : i+4]))
				i += 4
			}
		}
		if err == nil && (nSize < 0 || scriptLen-i < nSize) {
			err = errors.New("push size is wrong")
		}
		if err != nil {
			break
		}
		s.ParsedOpCodes = append(s.ParsedOpCodes, *opcodes.NewParsedOpCode(opcode, nSize, s.data[i:i+nSize]))
		i += nSize
	}
	s.badOpCode = err != nil
	return
}

func (s *Script) IsPayToPubKeyHash() bool {
	return len(s.data) == p2pkhSize &&
		s.data[0] == opcodes.OP_DUP &&
		s.data[1] == opcodes.OP_HASH160 &&
		s.data[2] == util.Hash160Size &&
		s.data[23] == opcodes.OP_EQUALVERIFY &&
		s.data[24] == opcodes.OP_CHECKSIG
}

// ExtractPubKeyHash returns the hash160 a P2PKH script pays to.
func (s *Script) ExtractPubKeyHash() ([]byte, bool) {
	if !s.IsPayToPubKeyHash() {
		return nil, false
	}
	return s.data[3:23], true
}

func (s *Script) IsPayToScriptHash() bool {
	return len(s.data) == 23 &&
		s.data[0] == opcodes.OP_HASH160 &&
		s.data[1] == 0x14 &&
		s.data[22] == opcodes.OP_EQUAL
}

func (s *Script) IsUnspendable() bool {
	return (s.Size() > 0 && s.data[0] == opcodes.OP_RETURN) || s.Size() > MaxScriptSize
}

func (s *Script) IsPushOnly() bool {
	if s.badOpCode {
		return false
	}
	for _, ops := range s.ParsedOpCodes {
		if !ops.IsPush() {
			return false
		}
	}
	return true
}

// PushedData returns the payload of every push, nil if a non-push opcode or
// a malformed push is found.
func (s *Script) PushedData() [][]byte {
	if !s.IsPushOnly() {
		return nil
	}
	ret := make([][]byte, 0, len(s.ParsedOpCodes))
	for _, ops := range s.ParsedOpCodes {
		ret = append(ret, ops.Data)
	}
	return ret
}

func (s *Script) GetSigOpCount() int {
	n := 0
	for _, e := range s.ParsedOpCodes {
		switch e.OpValue {
		case opcodes.OP_CHECKSIG, opcodes.OP_CHECKSIGVERIFY:
			n++
		case opcodes.OP_CHECKMULTISIG, opcodes.OP_CHECKMULTISIGVERIFY:
			n += MaxPubKeysPerMultiSig
		}
	}
	return n
}

func (s *Script) PushOpCode(n int) error {
	if n < 0 || n > 0xff {
		return errors.Errorf("push op code %d out of range", n)
	}
	s.data = append(s.data, byte(n))
	return s.convertOPS()
}

func (s *Script) PushSingleData(data []byte) error {
	dataLen := len(data)
	if dataLen < opcodes.OP_PUSHDATA1 {
		s.data = append(s.data, byte(dataLen))
	} else if dataLen <= 0xff {
		s.data = append(s.data, opcodes.OP_PUSHDATA1, byte(dataLen))
	} else if dataLen <= 0xffff {
		s.data = append(s.data, opcodes.OP_PUSHDATA2)
		buf := make([]byte, 2)
		binary.LittleEndian.PutUint16(buf, uint16(dataLen))
		s.data = append(s.data, buf...)
	} else {
		s.data = append(s.data, opcodes.OP_PUSHDATA4)
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, uint32(dataLen))
		s.data = append(s.data, buf...)
	}
	s.data = append(s.data, data...)
	return s.convertOPS()
}

func (s *Script) PushMultData(data [][]byte) error {
	for _, e := range data {
		if err := s.PushSingleData(e); err != nil {
			return err
		}
	}
	return nil
}

// CheckSignatureEncoding validates a signature including its hash type byte.
// 65 byte signatures are schnorr and skip the DER rules.
func CheckSignatureEncoding(vchSig []byte, flags uint32) error {
	// Empty signature. Not strictly DER encoded, but allowed to provide a
	// compact way to provide an invalid signature for use with CHECK(MULTI)SIG
	vchSigLen := len(vchSig)
	if vchSigLen == 0 {
		return nil
	}
	isSchnorr := flags&ScriptEnableSchnorr != 0 && vchSigLen == crypto.SchnorrSigSize+1
	if !isSchnorr && (flags&(ScriptVerifyDersig|ScriptVerifyLowS|ScriptVerifyStrictEnc)) != 0 &&
		!crypto.IsValidSignatureEncoding(vchSig) {
		return errcode.New(errcode.ScriptErrSigDer)
	}

	if (flags & ScriptVerifyStrictEnc) != 0 {
		if !crypto.IsDefineHashtypeSignature(vchSig) {
			return errcode.New(errcode.ScriptErrSigHashType)
		}
		hashType := vchSig[vchSigLen-1]
		if flags&ScriptEnableSigHashForkID != 0 && hashType&crypto.SigHashForkID == 0 {
			return errcode.New(errcode.ScriptErrMustUseForkID)
		}
	}
	return nil
}

func CheckPubKeyEncoding(vchPubKey []byte, flags uint32) error {
	if flags&ScriptVerifyStrictEnc != 0 && !crypto.IsCompressedOrUncompressedPubKey(vchPubKey) {
		return errcode.New(errcode.ScriptErrPubKeyType)
	}
	return nil
}
