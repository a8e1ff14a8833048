// Package dsproof builds, checks and stores double spend proofs: compact
// evidence that two transactions spend the same output.
package dsproof

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/floweethehub/thehub-sub000/errcode"
	"github.com/floweethehub/thehub-sub000/model/outpoint"
	"github.com/floweethehub/thehub-sub000/model/script"
	"github.com/floweethehub/thehub-sub000/util"
)

// MaxPushDataSize bounds the single push data element of a spender.
const MaxPushDataSize = script.MaxScriptElementSize

// Spender carries what is needed to recompute the signature hash of one of
// the two conflicting inputs, without the transaction itself.
type Spender struct {
	TxVersion       uint32
	OutSequence     uint32
	LockTime        uint32
	HashPrevOutputs util.Hash
	HashSequence    util.Hash
	HashOutputs     util.Hash
	PushData        [][]byte
}

func (s *Spender) isEmpty() bool {
	return s.TxVersion == 0 && s.OutSequence == 0 && s.LockTime == 0 && s.HashPrevOutputs.IsNull() &&
		s.HashSequence.IsNull() && s.HashOutputs.IsNull() && len(s.PushData) == 0
}

func (s *Spender) serialize(w io.Writer) error {
	for _, v := range []uint32{s.TxVersion, s.OutSequence, s.LockTime} {
		if err := util.BinarySerializer.PutUint32(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, h := range []*util.Hash{&s.HashPrevOutputs, &s.HashSequence, &s.HashOutputs} {
		if err := h.Serialize(w); err != nil {
			return err
		}
	}
	if err := util.WriteVarInt(w, uint64(len(s.PushData))); err != nil {
		return err
	}
	for _, data := range s.PushData {
		if err := util.WriteVarBytes(w, data); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spender) unserialize(r io.Reader) (err error) {
	for _, v := range []*uint32{&s.TxVersion, &s.OutSequence, &s.LockTime} {
		if *v, err = util.BinarySerializer.Uint32(r, binary.LittleEndian); err != nil {
			return err
		}
	}
	for _, h := range []*util.Hash{&s.HashPrevOutputs, &s.HashSequence, &s.HashOutputs} {
		if err = h.Unserialize(r); err != nil {
			return err
		}
	}
	count, err := util.ReadVarInt(r)
	if err != nil {
		return err
	}
	if count > script.MaxScriptSize {
		return errors.Errorf("too many push data elements: %d", count)
	}
	s.PushData = make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		data, err := util.ReadVarBytes(r, script.MaxScriptSize, "pushData")
		if err != nil {
			return err
		}
		s.PushData = append(s.PushData, data)
	}
	return nil
}

// compareSpenders is the canonical order of the two spenders of a proof.
func compareSpenders(a, b *Spender) int {
	if c := bytes.Compare(a.HashOutputs[:], b.HashOutputs[:]); c != 0 {
		return c
	}
	if c := bytes.Compare(a.HashPrevOutputs[:], b.HashPrevOutputs[:]); c != 0 {
		return c
	}
	for i := 0; i < len(a.PushData) && i < len(b.PushData); i++ {
		if c := bytes.Compare(a.PushData[i], b.PushData[i]); c != 0 {
			return c
		}
	}
	return len(a.PushData) - len(b.PushData)
}

type DoubleSpendProof struct {
	prevTxID     util.Hash
	prevOutIndex uint32
	spender1     Spender
	spender2     Spender
}

func NewEmptyProof() *DoubleSpendProof {
	return &DoubleSpendProof{}
}

func (p *DoubleSpendProof) IsEmpty() bool {
	return p.prevTxID.IsNull() && p.prevOutIndex == 0 && p.spender1.isEmpty() && p.spender2.isEmpty()
}

func (p *DoubleSpendProof) PrevTxID() util.Hash {
	return p.prevTxID
}

func (p *DoubleSpendProof) PrevOutIndex() uint32 {
	return p.prevOutIndex
}

// OutPoint is the output both spenders claim.
func (p *DoubleSpendProof) OutPoint() *outpoint.OutPoint {
	return outpoint.NewOutPoint(p.prevTxID, p.prevOutIndex)
}

func (p *DoubleSpendProof) FirstSpender() *Spender {
	return &p.spender1
}

func (p *DoubleSpendProof) DoubleSpender() *Spender {
	return &p.spender2
}

func (p *DoubleSpendProof) Serialize(w io.Writer) error {
	if err := p.prevTxID.Serialize(w); err != nil {
		return err
	}
	if err := util.BinarySerializer.PutUint32(w, binary.LittleEndian, p.prevOutIndex); err != nil {
		return err
	}
	if err := p.spender1.serialize(w); err != nil {
		return err
	}
	return p.spender2.serialize(w)
}

func (p *DoubleSpendProof) Unserialize(r io.Reader) (err error) {
	if err = p.prevTxID.Unserialize(r); err != nil {
		return errors.Wrap(err, "dsproof prevTxId")
	}
	if p.prevOutIndex, err = util.BinarySerializer.Uint32(r, binary.LittleEndian); err != nil {
		return errors.Wrap(err, "dsproof prevOutIndex")
	}
	if err = p.spender1.unserialize(r); err != nil {
		return errors.Wrap(err, "dsproof spender1")
	}
	if err = p.spender2.unserialize(r); err != nil {
		return errors.Wrap(err, "dsproof spender2")
	}
	return nil
}

func (p *DoubleSpendProof) Bytes() []byte {
	var buf bytes.Buffer
	p.Serialize(&buf)
	return buf.Bytes()
}

// GetHash is the double sha256 of the serialized proof.
func (p *DoubleSpendProof) GetHash() util.Hash {
	return util.DoubleSha256Hash(p.Bytes())
}

// CheckSanity reports the structural problems of a proof: missing prevout,
// anything but one non-empty push per spender, oversized push data and
// spenders out of canonical order.
func (p *DoubleSpendProof) CheckSanity() error {
	if p.prevTxID.IsNull() {
		return errcode.NewWithDesc(errcode.DSProofMalformed, "DSProof prevTxId is null")
	}
	for _, s := range []*Spender{&p.spender1, &p.spender2} {
		if len(s.PushData) != 1 {
			return errcode.NewWithDesc(errcode.DSProofMalformed, "DSProof must contain exactly 1 pushData, got %d",
				len(s.PushData))
		}
		if len(s.PushData[0]) == 0 {
			return errcode.NewWithDesc(errcode.DSProofMalformed, "DSProof pushData is empty")
		}
		if len(s.PushData[0]) > MaxPushDataSize {
			return errcode.NewWithDesc(errcode.DSProofMalformed, "DSProof pushData exceeds %d bytes",
				MaxPushDataSize)
		}
	}
	if compareSpenders(&p.spender1, &p.spender2) >= 0 {
		return errcode.NewWithDesc(errcode.DSProofMalformed, "DSProof spenders are not in canonical order")
	}
	return nil
}

func (p *DoubleSpendProof) String() string {
	return fmt.Sprintf("DoubleSpendProof(prevout %s:%d, hash %s)", p.prevTxID.String(), p.prevOutIndex,
		p.GetHash().String())
}
