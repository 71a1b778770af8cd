package leechbit

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"

	"github.com/dpearce/leechbit/bencoding"
)

// maxMetainfoSize bounds how much of a torrent descriptor ParseMetainfo
// will read into memory. Single-file .torrent descriptors are tiny;
// anything past this is almost certainly not a metainfo file.
const maxMetainfoSize = 10 * 1024 * 1024

type MetainfoErrorKind int

const (
	MissingKey MetainfoErrorKind = iota
	WrongType
	InconsistentPieceCount
	NonPositiveLength
	TooLarge
)

type MetainfoError struct {
	Kind MetainfoErrorKind
	Msg  string
}

func (e *MetainfoError) Error() string {
	return e.Msg
}

func newMetaErr(kind MetainfoErrorKind, msg string) error {
	return &MetainfoError{Kind: kind, Msg: msg}
}

// Metainfo is the parsed, validated contents of a single-file torrent
// descriptor. It is immutable once returned by ParseMetainfo.
type Metainfo struct {
	trackerURL  *url.URL
	name        string
	pieceLength int
	totalLength int
	hashes      [][sha1.Size]byte
	infoHashRaw [sha1.Size]byte
	infoHashHex string
}

func ParseMetainfo(raw io.Reader) (Metainfo, error) {
	data, err := io.ReadAll(io.LimitReader(raw, maxMetainfoSize+1))
	if err != nil {
		return Metainfo{}, fmt.Errorf("reading metainfo: %w", err)
	}
	if len(data) > maxMetainfoSize {
		return Metainfo{}, newMetaErr(TooLarge, "metainfo file exceeds maximum accepted size")
	}

	decoded, err := bencoding.Decode(data)
	if err != nil {
		return Metainfo{}, fmt.Errorf("bencoding: %w", err)
	}
	dict, ok := decoded.(map[string]any)
	if !ok {
		return Metainfo{}, newMetaErr(WrongType, "top-level value is not a dictionary")
	}

	var meta Metainfo
	rawURL, ok := dict["announce"].(string)
	if !ok {
		return Metainfo{}, newMetaErr(MissingKey, "missing announce url")
	}
	meta.trackerURL, err = url.Parse(rawURL)
	if err != nil {
		return Metainfo{}, fmt.Errorf("invalid announce url: %w", err)
	}

	info, ok := dict["info"].(map[string]any)
	if !ok || info == nil {
		return Metainfo{}, newMetaErr(MissingKey, "missing info dictionary")
	}

	// The info-hash is SHA-1 of the canonical re-encoding of the info
	// sub-dictionary exactly as decoded, before any fields are pulled
	// out of it.
	meta.infoHashRaw = sha1.Sum(bencoding.Encode(info))
	meta.infoHashHex = hex.EncodeToString(meta.infoHashRaw[:])

	meta.name, ok = info["name"].(string)
	if !ok {
		return Metainfo{}, newMetaErr(MissingKey, "missing info.name")
	}

	meta.pieceLength, ok = info["piece length"].(int)
	if !ok {
		return Metainfo{}, newMetaErr(MissingKey, "missing info.piece length")
	}
	if meta.pieceLength <= 0 {
		return Metainfo{}, newMetaErr(NonPositiveLength, "info.piece length must be positive")
	}

	meta.totalLength, ok = info["length"].(int)
	if !ok {
		return Metainfo{}, newMetaErr(MissingKey, "missing info.length (multi-file torrents are not supported)")
	}
	if meta.totalLength <= 0 {
		return Metainfo{}, newMetaErr(NonPositiveLength, "info.length must be positive")
	}

	hashes, ok := info["pieces"].(string)
	if !ok {
		return Metainfo{}, newMetaErr(MissingKey, "missing info.pieces")
	}
	if len(hashes)%sha1.Size != 0 {
		return Metainfo{}, newMetaErr(InconsistentPieceCount, "info.pieces length is not a multiple of 20")
	}
	numPieces := (meta.totalLength + meta.pieceLength - 1) / meta.pieceLength
	if len(hashes) != numPieces*sha1.Size {
		return Metainfo{}, newMetaErr(InconsistentPieceCount, "info.pieces length does not match piece count implied by length/piece length")
	}

	meta.hashes = make([][sha1.Size]byte, numPieces)
	for i := range meta.hashes {
		copy(meta.hashes[i][:], hashes[i*sha1.Size:(i+1)*sha1.Size])
	}

	return meta, nil
}

func (m Metainfo) TrackerURL() *url.URL { return m.trackerURL }
func (m Metainfo) Name() string         { return m.name }
func (m Metainfo) PieceLength() int     { return m.pieceLength }
func (m Metainfo) TotalLength() int     { return m.totalLength }
func (m Metainfo) NumPieces() int       { return len(m.hashes) }

func (m Metainfo) InfoHashRaw() [sha1.Size]byte { return m.infoHashRaw }
func (m Metainfo) InfoHashHex() string          { return m.infoHashHex }

// PieceSize returns the size in bytes of piece i. Every piece is
// PieceLength() bytes except possibly the last, whose size is
// length mod pieceLength, falling back to pieceLength when that
// remainder is zero (a piece is never zero-length).
func (m Metainfo) PieceSize(i int) int {
	if i < m.NumPieces()-1 {
		return m.pieceLength
	}
	last := m.totalLength % m.pieceLength
	if last == 0 {
		last = m.pieceLength
	}
	return last
}

// HashOf returns the expected SHA-1 digest of piece i.
func (m Metainfo) HashOf(i int) [sha1.Size]byte {
	return m.hashes[i]
}
