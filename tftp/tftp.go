package tftp

import (
	"io"
	"log"
	"net"
	"strings"
	"time"

	tftp "github.com/pin/tftp/v3"

	"media-share-server/mount"
)

// serveFile streams name from the mount table into rf. TFTP clients send
// paths with or without a leading slash; both resolve the same way.
func serveFile(mounts *mount.Table, name string, rf io.ReaderFrom) error {
	f, fi, err := mounts.OpenRegular(strings.TrimSpace(name))
	if err != nil {
		return err
	}
	defer f.Close()
	if t, ok := rf.(tftp.OutgoingTransfer); ok {
		t.SetSize(fi.Size())
	}
	_, err = rf.ReadFrom(f)
	return err
}

// NewServer builds a read-only TFTP server over the mount table. Uploads are refused.
func NewServer(mounts *mount.Table, logger *log.Logger) *tftp.Server {
	readHandler := func(filename string, rf io.ReaderFrom) error {
		err := serveFile(mounts, filename, rf)
		if logger != nil {
			if err != nil {
				logger.Printf("RRQ %q failed: %v", filename, err)
			} else {
				logger.Printf("RRQ %q sent", filename)
			}
		}
		return err
	}
	srv := tftp.NewServer(readHandler, nil)
	srv.SetTimeout(5 * time.Second)
	return srv
}

// StartTFTPServer listens on addr and serves the mount table in the background.
func StartTFTPServer(addr string, mounts *mount.Table, logger *log.Logger) (*tftp.Server, error) {
	if addr == "" {
		addr = ":69"
	}
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}
	srv := NewServer(mounts, logger)
	go func() {
		if logger != nil {
			logger.Printf("TFTP server listening on %s, %d mount points", conn.LocalAddr(), mounts.Len())
		}
		if err := srv.Serve(conn); err != nil && logger != nil {
			logger.Printf("TFTP server error: %v", err)
		}
	}()
	return srv, nil
}
