package internal

import (
	"log"
	"net"
)

// defaultPrintLimit bounds how many bytes of a single Read or Write
// are logged in full before the remainder is elided. PrintLimit == -1
// disables eliding entirely; PrintLimit == 0 falls back to this
// default.
const defaultPrintLimit = 50

// Eavesdropper wraps a net.Conn and logs every byte moved across it.
// It is wired in behind the CLI's -debug flag for diagnosing peer
// wire issues, never enabled by default.
type Eavesdropper struct {
	net.Conn
	PrintLimit int
}

func NewEavesdropper(conn net.Conn, printLimit int) Eavesdropper {
	return Eavesdropper{Conn: conn, PrintLimit: printLimit}
}

func (e Eavesdropper) Read(buf []byte) (n int, err error) {
	n, err = e.Conn.Read(buf)
	e.logTransfer("Read", buf[:n])
	return n, err
}

func (e Eavesdropper) Write(buf []byte) (n int, err error) {
	n, err = e.Conn.Write(buf)
	e.logTransfer("Wrote", buf[:n])
	return n, err
}

func (e Eavesdropper) logTransfer(verb string, data []byte) {
	limit := e.PrintLimit
	if limit == 0 {
		limit = defaultPrintLimit
	}
	if limit == -1 || len(data) <= limit {
		log.Printf("%s raw bytes: %v", verb, data)
		return
	}
	log.Printf("%s raw bytes: %v [%d more bytes elided...]", verb, data[:limit], len(data)-limit)
}
