package outpoint

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/floweethehub/thehub-sub000/util"
)

const SerializeSize = util.Hash256Size + 4

type OutPoint struct {
	Hash  util.Hash
	Index uint32
}

func NewOutPoint(hash util.Hash, index uint32) *OutPoint {
	return &OutPoint{
		Hash:  hash,
		Index: index,
	}
}

func (outPoint *OutPoint) Serialize(writer io.Writer) error {
	if _, err := writer.Write(outPoint.Hash[:]); err != nil {
		return err
	}
	return util.BinarySerializer.PutUint32(writer, binary.LittleEndian, outPoint.Index)
}

func (outPoint *OutPoint) Unserialize(reader io.Reader) (err error) {
	if _, err = io.ReadFull(reader, outPoint.Hash[:]); err != nil {
		return
	}
	outPoint.Index, err = util.BinarySerializer.Uint32(reader, binary.LittleEndian)
	return
}

func (outPoint OutPoint) String() string {
	return fmt.Sprintf("OutPoint ( hash:%s index: %d)", outPoint.Hash.String(), outPoint.Index)
}

// IsNull reports the coinbase prevout marker.
func (outPoint *OutPoint) IsNull() bool {
	if outPoint == nil {
		return true
	}
	return outPoint.Index == math.MaxUint32 && outPoint.Hash.IsNull()
}

// CheapHash buckets outpoints by the first bytes of their transaction id.
func (outPoint *OutPoint) CheapHash() uint64 {
	return outPoint.Hash.CheapHash()
}
