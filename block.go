package leechbit

import (
	"encoding/binary"
	"io"
)

// Block is one sub-piece request/response unit: the begin offset and
// length of a slice of a single piece.
type Block struct {
	PieceIndex  uint32
	BeginOffset uint32
	Length      uint32
}

func (b Block) payload() []byte {
	bs := make([]byte, 0, 12)
	bs = binary.BigEndian.AppendUint32(bs, b.PieceIndex)
	bs = binary.BigEndian.AppendUint32(bs, b.BeginOffset)
	bs = binary.BigEndian.AppendUint32(bs, b.Length)
	return bs
}

func (b Block) writeRequest(w io.Writer) error {
	return WriteMessage(w, RequestMessage, b.payload())
}

func (b Block) writeCancel(w io.Writer) error {
	return WriteMessage(w, CancelMessage, b.payload())
}
