package leechbit

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dpearce/leechbit/bencoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompactPeers(t *testing.T) {
	blob := string([]byte{10, 0, 0, 1, 0x1A, 0xE1})
	peers, err := parseCompactPeers(blob)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "10.0.0.1:6881", peers[0].String())
}

func TestParseCompactPeers_RoundTrip(t *testing.T) {
	blob := string([]byte{
		10, 0, 0, 1, 0x1A, 0xE1,
		192, 168, 1, 2, 0x00, 0x50,
	})
	peers, err := parseCompactPeers(blob)
	require.NoError(t, err)
	assert.Equal(t, blob, encodeCompactPeers(peers))
}

func TestParseCompactPeers_Malformed(t *testing.T) {
	_, err := parseCompactPeers(string([]byte{1, 2, 3}))
	require.Error(t, err)
	var trackerErr *TrackerError
	require.ErrorAs(t, err, &trackerErr)
	assert.Equal(t, MalformedPeers, trackerErr.Kind)
}

func TestPercentEncodeBytes(t *testing.T) {
	raw := []byte{'a', 'B', '0', '-', '.', '_', '~', 0x00, 0xff, ' '}
	assert.Equal(t, "aB0-._~%00%ff%20", percentEncodeBytes(raw))
}

func TestTrackerClient_Announce(t *testing.T) {
	pieces := make([]byte, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("compact"))
		resp := map[string]any{
			"interval": 900,
			"peers":    string([]byte{127, 0, 0, 1, 0x1A, 0xE1}),
		}
		w.Write(bencoding.Encode(resp))
	}))
	defer srv.Close()

	raw := buildMetainfo(srv.URL, "x", 5, 5, pieces)
	meta, err := ParseMetainfo(bytes.NewReader(raw))
	require.NoError(t, err)

	tc := NewTrackerClient(srv.Client(), meta, RandPeerID(), 6881)
	peers, err := tc.Announce(context.Background())
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, "127.0.0.1:6881", peers[0].String())
}

func TestTrackerClient_Announce_Rejected(t *testing.T) {
	pieces := make([]byte, 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"failure reason": "torrent not found"}
		w.Write(bencoding.Encode(resp))
	}))
	defer srv.Close()

	raw := buildMetainfo(srv.URL, "x", 5, 5, pieces)
	meta, err := ParseMetainfo(bytes.NewReader(raw))
	require.NoError(t, err)

	tc := NewTrackerClient(srv.Client(), meta, RandPeerID(), 6881)
	_, err = tc.Announce(context.Background())
	require.Error(t, err)
	var trackerErr *TrackerError
	require.ErrorAs(t, err, &trackerErr)
	assert.Equal(t, TrackerRejected, trackerErr.Kind)
}
