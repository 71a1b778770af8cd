package leechbit

import (
	"bytes"
	"math/rand"
)

const peerIDLen = 20

type PeerID [peerIDLen]byte

func PeerIDFromString(s string) PeerID {
	p := *new(PeerID)
	copy(p[:], s)
	return p
}

// RandPeerID generates a fresh local peer id: an Azureus-style client
// tag followed by random bytes, matching the convention most peers on
// the swarm expect even though this client does not identify itself
// by a registered two-letter code.
func RandPeerID() PeerID {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := bytes.NewBufferString("-LB0001-")
	for i := b.Len(); i < peerIDLen; i++ {
		b.WriteByte(chars[rand.Intn(len(chars))])
	}
	return PeerIDFromString(b.String())
}

func (i PeerID) Bytes() []byte {
	return i[:]
}

func (i PeerID) String() string {
	return string(i[:])
}
