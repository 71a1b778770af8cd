package leechbit

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// SessionState enumerates the lifecycle of a single peer connection:
// Disconnected -> TcpConnected -> HandshakeSent -> HandshakeAck ->
// BitfieldReceived -> InterestSent -> Unchoked -> Downloading ->
// Unchoked -> ... -> Closed. Closed is reachable from any state on a
// fatal error.
type SessionState int

const (
	Disconnected SessionState = iota
	TcpConnected
	HandshakeSent
	HandshakeAck
	BitfieldReceived
	InterestSent
	Unchoked
	Downloading
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case TcpConnected:
		return "tcp-connected"
	case HandshakeSent:
		return "handshake-sent"
	case HandshakeAck:
		return "handshake-ack"
	case BitfieldReceived:
		return "bitfield-received"
	case InterestSent:
		return "interest-sent"
	case Unchoked:
		return "unchoked"
	case Downloading:
		return "downloading"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	protocolString  = "BitTorrent protocol"
	handshakeLen    = 1 + len(protocolString) + 8 + 20 + 20
	peerReadTimeout = 30 * time.Second
	dialRetryDelay  = 500 * time.Millisecond
	dialMaxTries    = 3
)

type PeerSessionErrorKind int

const (
	HandshakeMismatch PeerSessionErrorKind = iota
	ConnectionLost
	ChokedError
	PieceCorrupt
	ProtocolViolation
)

type PeerSessionError struct {
	Kind       PeerSessionErrorKind
	PieceIndex int
	Msg        string
}

func (e *PeerSessionError) Error() string {
	return e.Msg
}

func newPeerErr(kind PeerSessionErrorKind, msg string) error {
	return &PeerSessionError{Kind: kind, Msg: msg}
}

// PeerSession owns one TCP connection to one peer and drives it,
// blocking, through the handshake, choke/interest negotiation, and
// per-piece download pipeline. Nothing about a session is safe for
// concurrent use; the orchestrator holds one at a time.
type PeerSession struct {
	info    PeerInfo
	meta    Metainfo
	localID PeerID

	conn         net.Conn
	state        SessionState
	peerBitfield Bitfield
	stopClose    func() bool

	// Trace, if set, wraps the dialed connection for diagnostic
	// byte-level logging (see internal.Eavesdropper). Left nil in
	// production use.
	Trace func(net.Conn) net.Conn
}

func NewPeerSession(info PeerInfo, meta Metainfo, localID PeerID) *PeerSession {
	return &PeerSession{
		info:    info,
		meta:    meta,
		localID: localID,
		state:   Disconnected,
	}
}

func (s *PeerSession) State() SessionState { return s.state }

// Connect dials the peer, performs the handshake, and negotiates
// interest, leaving the session Unchoked and ready for DownloadPiece.
// Cancelling ctx closes the underlying socket, which unblocks any
// in-flight read or write and surfaces as ConnectionLost.
func (s *PeerSession) Connect(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			s.state = Closed
		}
	}()

	addr := net.JoinHostPort(s.info.IP.String(), strconv.Itoa(s.info.Port))
	var conn net.Conn
	err = RetryWithExpBackoff(ctx, func(ctx context.Context) error {
		var dialErr error
		conn, dialErr = (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		return dialErr
	}, dialRetryDelay, dialMaxTries)
	if err != nil {
		return fmt.Errorf("dial peer %s: %w", addr, err)
	}
	if s.Trace != nil {
		conn = s.Trace(conn)
	}
	s.conn = conn
	s.stopClose = context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	s.state = TcpConnected

	if err := s.handshake(); err != nil {
		return err
	}
	s.state = HandshakeAck

	if err := s.awaitBitfieldOrProceed(); err != nil {
		return err
	}

	if err := s.sendMessage(InterestedMessage, nil); err != nil {
		return err
	}
	s.state = InterestSent

	if err := s.awaitUnchoke(); err != nil {
		return err
	}
	s.state = Unchoked
	return nil
}

func (s *PeerSession) handshake() error {
	infoHash := s.meta.InfoHashRaw()

	msg := make([]byte, 0, handshakeLen)
	msg = append(msg, byte(len(protocolString)))
	msg = append(msg, protocolString...)
	msg = append(msg, make([]byte, 8)...)
	msg = append(msg, infoHash[:]...)
	msg = append(msg, s.localID.Bytes()...)

	if _, err := s.conn.Write(msg); err != nil {
		return newPeerErr(ConnectionLost, "sending handshake: "+err.Error())
	}
	s.state = HandshakeSent

	resp := make([]byte, handshakeLen)
	if _, err := io.ReadFull(s.conn, resp); err != nil {
		return newPeerErr(ConnectionLost, "reading handshake: "+err.Error())
	}

	if !bytes.Equal(msg[1:1+len(protocolString)], resp[1:1+len(protocolString)]) {
		return newPeerErr(ProtocolViolation, "peer advertised an unrecognized protocol string")
	}
	if !bytes.Equal(infoHash[:], resp[28:48]) {
		return newPeerErr(HandshakeMismatch, "peer's info-hash does not match ours")
	}
	// Peer's advertised id (resp[48:68]) is captured but never trusted
	// for any decision.
	return nil
}

// awaitBitfieldOrProceed reads messages until the peer's initial
// bitfield arrives, or — leniently — any other non-choke message,
// which is accepted as a proceed signal since a bitfield is optional
// on the wire.
func (s *PeerSession) awaitBitfieldOrProceed() error {
	for {
		msg, err := s.readMessage()
		if err != nil {
			return err
		}
		if msg == nil {
			continue // keep-alive
		}
		if msg.Type == ChokeMessage {
			continue
		}
		if msg.Type == BitfieldMessage {
			bf := Bitfield(append([]byte{}, msg.Payload...))
			if bf.Validate(s.meta.NumPieces()) == nil {
				s.peerBitfield = bf
			}
		}
		s.state = BitfieldReceived
		return nil
	}
}

func (s *PeerSession) awaitUnchoke() error {
	for {
		msg, err := s.readMessage()
		if err != nil {
			return err
		}
		if msg == nil {
			continue
		}
		if msg.Type == UnchokeMessage {
			return nil
		}
		// choke and every other id are silently accepted while waiting.
	}
}

// DownloadPiece runs the block request/response pipeline for piece
// index and returns its verified payload. Every missing block is
// requested up front; replies may arrive in any order and are placed
// by the begin offset they carry.
func (s *PeerSession) DownloadPiece(ctx context.Context, index int) ([]byte, error) {
	s.state = Downloading
	piece := NewPiece(s.meta, index)

	for _, b := range piece.MissingBlocks() {
		if err := b.writeRequest(s.conn); err != nil {
			return nil, newPeerErr(ConnectionLost, "sending block request: "+err.Error())
		}
	}

	for len(piece.MissingBlocks()) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msg, err := s.readMessage()
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue // keep-alive
		}

		switch msg.Type {
		case ChokeMessage:
			return nil, &PeerSessionError{Kind: ChokedError, PieceIndex: index, Msg: "peer choked mid-download"}
		case PieceMessage:
			s.applyPieceMessage(piece, msg.Payload)
		default:
			// unchoke, have, (not)interested, cancel, and any
			// unrecognized id are silently discarded here.
		}
	}

	if !piece.Valid() {
		return nil, &PeerSessionError{Kind: PieceCorrupt, PieceIndex: index, Msg: fmt.Sprintf("piece %d failed SHA-1 verification", index)}
	}
	s.state = Unchoked
	return piece.Payload(), nil
}

func (s *PeerSession) applyPieceMessage(piece *Piece, payload []byte) {
	if len(payload) < 8 {
		return
	}
	recvIndex := binary.BigEndian.Uint32(payload[0:4])
	recvBegin := binary.BigEndian.Uint32(payload[4:8])
	blockBytes := payload[8:]
	if recvIndex != piece.Index || recvBegin >= piece.Size {
		return
	}

	idx := int(recvBegin / piece.BlockSize)
	if idx < 0 || idx >= piece.NumBlocks() {
		return
	}
	expected := piece.block(idx)
	if expected.BeginOffset != recvBegin || expected.Length != uint32(len(blockBytes)) {
		return
	}
	piece.AddBlockPayload(expected, blockBytes)
}

func (s *PeerSession) sendMessage(id MessageID, payload []byte) error {
	if err := WriteMessage(s.conn, id, payload); err != nil {
		return newPeerErr(ConnectionLost, "writing message: "+err.Error())
	}
	return nil
}

func (s *PeerSession) readMessage() (*Message, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(peerReadTimeout)); err != nil {
		return nil, newPeerErr(ConnectionLost, "setting read deadline: "+err.Error())
	}
	msg, err := ReadMessage(s.conn)
	if err != nil {
		return nil, newPeerErr(ConnectionLost, "reading from peer: "+err.Error())
	}
	return msg, nil
}

// Close tears down the connection from any state. Safe to call more
// than once.
func (s *PeerSession) Close() error {
	s.state = Closed
	if s.stopClose != nil {
		s.stopClose()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
