package leechbit

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/dustin/go-humanize"
)

type OrchestratorErrorKind int

const (
	NoPeersAvailable OrchestratorErrorKind = iota
)

type OrchestratorError struct {
	Kind OrchestratorErrorKind
	Msg  string
}

func (e *OrchestratorError) Error() string { return e.Msg }

// DownloadOptions configures a single end-to-end download run.
type DownloadOptions struct {
	// Destination is the path the assembled file is written to.
	Destination string

	LocalPeerID PeerID
	LocalPort   int

	// HTTPClient is used for the tracker announce; defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Trace, if set, wraps the peer connection for diagnostic
	// byte-level logging.
	Trace func(net.Conn) net.Conn

	// Progress, if set, is called after each piece is verified.
	Progress func(piece, total int)
}

// Download drives one torrent to completion: it announces to the
// tracker, connects to the first peer offered, and downloads every
// piece in order over that single connection, writing the assembled
// file once all pieces verify. There is no retry across peers and no
// concurrency between pieces — the first failure aborts the run.
func Download(ctx context.Context, meta Metainfo, opts DownloadOptions) error {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	tc := NewTrackerClient(client, meta, opts.LocalPeerID, opts.LocalPort)
	peers, err := tc.Announce(ctx)
	if err != nil {
		return fmt.Errorf("announcing to tracker: %w", err)
	}
	if len(peers) == 0 {
		return &OrchestratorError{Kind: NoPeersAvailable, Msg: "tracker returned no peers"}
	}

	peer := peers[0]
	session := NewPeerSession(peer, meta, opts.LocalPeerID)
	session.Trace = opts.Trace
	if err := session.Connect(ctx); err != nil {
		return fmt.Errorf("connecting to peer %s: %w", peer.String(), err)
	}
	defer session.Close()

	buf := make([]byte, 0, meta.TotalLength())
	for i := 0; i < meta.NumPieces(); i++ {
		payload, err := session.DownloadPiece(ctx, i)
		if err != nil {
			return fmt.Errorf("downloading piece %d: %w", i, err)
		}
		buf = append(buf, payload...)
		if opts.Progress != nil {
			opts.Progress(i+1, meta.NumPieces())
		}
	}

	if err := os.WriteFile(opts.Destination, buf, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.Destination, err)
	}
	log.Printf("downloaded %s (%s) from %s to %s", meta.Name(), humanize.Bytes(uint64(len(buf))), peer.String(), opts.Destination)
	return nil
}
