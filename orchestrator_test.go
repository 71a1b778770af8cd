package leechbit

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/dpearce/leechbit/bencoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnePeer accepts a single connection on ln and plays a
// minimal, well-behaved remote peer for one single-piece torrent:
// handshake, bitfield, unchoke on interest, then answer every block
// request in full before closing.
func serveOnePeer(t *testing.T, ln net.Listener, infoHash [sha1.Size]byte, content []byte, blockSize int) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		hs := make([]byte, handshakeLen)
		if _, err := io.ReadFull(conn, hs); err != nil {
			return
		}
		resp := make([]byte, 0, handshakeLen)
		resp = append(resp, byte(len(protocolString)))
		resp = append(resp, protocolString...)
		resp = append(resp, make([]byte, 8)...)
		resp = append(resp, infoHash[:]...)
		resp = append(resp, RandPeerID().Bytes()...)
		if _, err := conn.Write(resp); err != nil {
			return
		}

		if err := WriteMessage(conn, BitfieldMessage, []byte{0x00}); err != nil {
			return
		}
		if _, err := ReadMessage(conn); err != nil { // interested
			return
		}
		if err := WriteMessage(conn, UnchokeMessage, nil); err != nil {
			return
		}

		numBlocks := (len(content) + blockSize - 1) / blockSize
		for i := 0; i < numBlocks; i++ {
			req, err := ReadMessage(conn)
			if err != nil || req == nil {
				return
			}
			begin := binary.BigEndian.Uint32(req.Payload[4:8])
			length := binary.BigEndian.Uint32(req.Payload[8:12])
			payload := make([]byte, 0, 8+length)
			payload = binary.BigEndian.AppendUint32(payload, 0)
			payload = binary.BigEndian.AppendUint32(payload, begin)
			payload = append(payload, content[begin:begin+length]...)
			if err := WriteMessage(conn, PieceMessage, payload); err != nil {
				return
			}
		}
	}()
}

func TestDownload_EndToEnd(t *testing.T) {
	content := []byte("the quick brown fox jumps over the lazy dog while thirty-two bytes of padding follow after it")
	pieceLength := len(content)
	hash := sha1.Sum(content)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	trackerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, portStr, _ := net.SplitHostPort(ln.Addr().String())
		port, _ := strconv.Atoi(portStr)
		ipParts := net.ParseIP(host).To4()
		peersBlob := append([]byte{}, ipParts...)
		peersBlob = append(peersBlob, byte(port>>8), byte(port))
		resp := map[string]any{"interval": 900, "peers": string(peersBlob)}
		w.Write(bencoding.Encode(resp))
	}))
	defer trackerSrv.Close()

	raw := buildMetainfo(trackerSrv.URL, "sample.bin", pieceLength, len(content), hash[:])
	meta, err := ParseMetainfo(bytes.NewReader(raw))
	require.NoError(t, err)

	serveOnePeer(t, ln, meta.InfoHashRaw(), content, DefaultBlockSize)

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	err = Download(context.Background(), meta, DownloadOptions{
		Destination: dest,
		LocalPeerID: RandPeerID(),
		LocalPort:   6881,
		HTTPClient:  trackerSrv.Client(),
	})
	require.NoError(t, err)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestDownload_NoPeers(t *testing.T) {
	trackerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"interval": 900, "peers": ""}
		w.Write(bencoding.Encode(resp))
	}))
	defer trackerSrv.Close()

	pieces := make([]byte, sha1.Size)
	raw := buildMetainfo(trackerSrv.URL, "x", 5, 5, pieces)
	meta, err := ParseMetainfo(bytes.NewReader(raw))
	require.NoError(t, err)

	err = Download(context.Background(), meta, DownloadOptions{
		Destination: filepath.Join(t.TempDir(), "out.bin"),
		LocalPeerID: RandPeerID(),
		LocalPort:   6881,
		HTTPClient:  trackerSrv.Client(),
	})
	require.Error(t, err)
	var orchErr *OrchestratorError
	require.ErrorAs(t, err, &orchErr)
	assert.Equal(t, NoPeersAvailable, orchErr.Kind)
}
