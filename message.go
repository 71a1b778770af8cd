package leechbit

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MessageID identifies the type of a post-handshake peer wire message.
// See spec §4.4 / https://wiki.theory.org/BitTorrentSpecification#Messages
type MessageID byte

const (
	ChokeMessage         MessageID = 0
	UnchokeMessage       MessageID = 1
	InterestedMessage    MessageID = 2
	NotInterestedMessage MessageID = 3
	HaveMessage          MessageID = 4
	BitfieldMessage      MessageID = 5
	RequestMessage       MessageID = 6
	PieceMessage         MessageID = 7
	CancelMessage        MessageID = 8
)

// Message is a single post-handshake wire message. A keep-alive is
// represented as a nil *Message, never as a Message with a zero ID.
type Message struct {
	Type    MessageID
	Payload []byte
}

// WriteMessage writes one length-prefixed message: a 4-byte big-endian
// length followed by the id byte and payload.
func WriteMessage(w io.Writer, id MessageID, payload []byte) error {
	length := uint32(1 + len(payload))
	buf := make([]byte, 0, 4+length)
	buf = binary.BigEndian.AppendUint32(buf, length)
	buf = append(buf, byte(id))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// ReadMessage reads exactly 4+N bytes off r and returns the decoded
// message, or (nil, nil) for a keep-alive (N == 0).
func ReadMessage(r io.Reader) (*Message, error) {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length == 0 {
		return nil, nil
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return &Message{Type: MessageID(payload[0]), Payload: payload[1:]}, nil
}

func (m *Message) String() string {
	if m == nil {
		return "keep-alive"
	}
	return fmt.Sprintf("{type: %d, len: %d}", m.Type, len(m.Payload))
}
