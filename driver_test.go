package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "media-share-server/http"
)

func TestRunFramesServesAndStops(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "index.html", []byte("hello"), 0o644))

	srv := httpx.New(httpx.Config{})
	srv.AddFilesystem("mem", fs)
	require.NoError(t, srv.Start())
	port := srv.Port()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runFrames(ctx, srv, 5*time.Millisecond, time.Second)
		close(done)
	}()

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("GET / HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\nhello", string(resp))

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		require.FailNow(t, "runFrames did not return")
	}
	assert.Equal(t, httpx.StateStopped, srv.State())
}
