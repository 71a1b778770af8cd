package leechbit

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/dpearce/leechbit/bencoding"
)

const peerRecordLen = 6 // 4 bytes IPv4 + 2 bytes big-endian port

type TrackerErrorKind int

const (
	HttpFailure TrackerErrorKind = iota
	TrackerRejected
	MalformedPeers
)

type TrackerError struct {
	Kind TrackerErrorKind
	Msg  string
}

func (e *TrackerError) Error() string {
	return e.Msg
}

func newTrackerErr(kind TrackerErrorKind, msg string) error {
	return &TrackerError{Kind: kind, Msg: msg}
}

// PeerInfo is one entry of a tracker's compact peer list.
type PeerInfo struct {
	IP   net.IP
	Port int
}

func (p PeerInfo) String() string {
	return fmt.Sprintf("%s:%d", p.IP.String(), p.Port)
}

// TrackerClient announces a single torrent to its tracker and parses
// the compact peer list (BEP 23) from the response.
//
// See: https://www.bittorrent.org/beps/bep_0003.html#trackers
type TrackerClient struct {
	client *http.Client
	meta   Metainfo
	peerID PeerID
	port   int
}

func NewTrackerClient(client *http.Client, meta Metainfo, peerID PeerID, port int) *TrackerClient {
	return &TrackerClient{
		client: client,
		meta:   meta,
		peerID: peerID,
		port:   port,
	}
}

// Announce issues one GET against the torrent's tracker and returns
// the peers it reports, in the order the compact blob lists them.
func (c *TrackerClient) Announce(ctx context.Context) ([]PeerInfo, error) {
	req, err := c.buildRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("building tracker request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newTrackerErr(HttpFailure, "tracker request failed: "+err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, newTrackerErr(HttpFailure, fmt.Sprintf("tracker responded with HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tracker response: %w", err)
	}
	decoded, err := bencoding.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("parsing tracker response: %w", err)
	}
	dict, ok := decoded.(map[string]any)
	if !ok {
		return nil, newTrackerErr(MalformedPeers, "tracker response is not a dictionary")
	}

	if reason, ok := dict["failure reason"].(string); ok {
		return nil, newTrackerErr(TrackerRejected, "tracker rejected announce: "+reason)
	}

	peersBlob, ok := dict["peers"].(string)
	if !ok {
		return nil, newTrackerErr(MalformedPeers, "tracker response missing compact peers string")
	}
	return parseCompactPeers(peersBlob)
}

func (c *TrackerClient) buildRequest(ctx context.Context) (*http.Request, error) {
	query := strings.Join([]string{
		"info_hash=" + percentEncodeBytes(c.infoHash()),
		"peer_id=" + percentEncodeBytes(c.peerID.Bytes()),
		"port=" + strconv.Itoa(c.port),
		"uploaded=0",
		"downloaded=0",
		"left=" + strconv.Itoa(c.meta.TotalLength()),
		"compact=1",
	}, "&")

	u := *c.meta.TrackerURL()
	u.RawQuery = query
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}

func (c *TrackerClient) infoHash() []byte {
	h := c.meta.InfoHashRaw()
	return h[:]
}

// percentEncodeBytes encodes raw bytes byte-by-byte: unreserved
// characters pass through, everything else becomes a lowercase %HH
// escape. This is hand-rolled rather than routed through
// net/url.Values because that type escapes space as '+' and does not
// give byte-exact control over arbitrary 20-byte binary fields like
// info_hash and peer_id.
func percentEncodeBytes(b []byte) string {
	const hextab = "0123456789abcdef"
	var sb strings.Builder
	for _, c := range b {
		if isUnreservedByte(c) {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('%')
			sb.WriteByte(hextab[c>>4])
			sb.WriteByte(hextab[c&0x0f])
		}
	}
	return sb.String()
}

func isUnreservedByte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '.' || c == '_' || c == '~' || c == '-':
		return true
	default:
		return false
	}
}

func parseCompactPeers(blob string) ([]PeerInfo, error) {
	if len(blob)%peerRecordLen != 0 {
		return nil, newTrackerErr(MalformedPeers, "compact peers length is not a multiple of 6")
	}
	n := len(blob) / peerRecordLen
	peers := make([]PeerInfo, n)
	for i := 0; i < n; i++ {
		rec := blob[i*peerRecordLen : (i+1)*peerRecordLen]
		peers[i] = PeerInfo{
			IP:   net.IPv4(rec[0], rec[1], rec[2], rec[3]),
			Port: int(rec[4])<<8 | int(rec[5]),
		}
	}
	return peers, nil
}

// encodeCompactPeers is the inverse of parseCompactPeers, used by
// tests to check the round-trip property.
func encodeCompactPeers(peers []PeerInfo) string {
	var sb strings.Builder
	for _, p := range peers {
		ip4 := p.IP.To4()
		sb.Write(ip4)
		sb.WriteByte(byte(p.Port >> 8))
		sb.WriteByte(byte(p.Port))
	}
	return sb.String()
}
