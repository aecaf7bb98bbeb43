package nfs

import (
	"errors"
	"log"
	"net"

	"github.com/go-git/go-billy/v5"
	gonfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"
)

// handleCacheSize bounds the file handle cache of the export.
const handleCacheSize = 1024

// NewHandler exports fs without authentication. Callers pass a read-only
// filesystem; go-nfs reports write attempts back to the client as errors.
func NewHandler(fs billy.Filesystem) gonfs.Handler {
	return nfshelper.NewCachingHandler(nfshelper.NewNullAuthHandler(fs), handleCacheSize)
}

// StartNFSD serves fs over NFSv3 on TCP in the background.
func StartNFSD(addr string, fs billy.Filesystem, logger *log.Logger) (net.Listener, error) {
	if addr == "" {
		addr = ":2049"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	handler := NewHandler(fs)
	go func() {
		if logger != nil {
			logger.Printf("nfsd v3 listening on %s", ln.Addr())
		}
		if err := gonfs.Serve(ln, handler); err != nil && !errors.Is(err, net.ErrClosed) && logger != nil {
			logger.Printf("nfsd serve error: %v", err)
		}
	}()
	return ln, nil
}
