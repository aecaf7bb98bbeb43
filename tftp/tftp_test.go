package tftp

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	tftp "github.com/pin/tftp/v3"

	"media-share-server/mount"
)

func testTable(t *testing.T) *mount.Table {
	t.Helper()
	fs := memfs.New()
	if err := util.WriteFile(fs, "boot/kernel.img", []byte("kernel"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl := mount.NewTable()
	tbl.Add("sd", fs)
	return tbl
}

func TestServeFile(t *testing.T) {
	tbl := testTable(t)
	for _, name := range []string{"boot/kernel.img", "/boot/kernel.img", " boot/kernel.img "} {
		var buf bytes.Buffer
		if err := serveFile(tbl, name, &buf); err != nil {
			t.Fatalf("serveFile(%q) error: %v", name, err)
		}
		if got := buf.String(); got != "kernel" {
			t.Fatalf("serveFile(%q) got=%q want=%q", name, got, "kernel")
		}
	}
}

func TestServeFileMissing(t *testing.T) {
	var buf bytes.Buffer
	err := serveFile(testTable(t), "boot", &buf)
	if !errors.Is(err, mount.ErrNotFound) {
		t.Fatalf("serveFile(dir) err=%v want ErrNotFound", err)
	}
}

func TestTransferOverUDP(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(testTable(t), nil)
	go srv.Serve(conn)
	defer srv.Shutdown()

	c, err := tftp.NewClient(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	c.SetTimeout(2 * time.Second)

	wt, err := c.Receive("/boot/kernel.img", "octet")
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		t.Fatalf("write to: %v", err)
	}
	if got := buf.String(); got != "kernel" {
		t.Fatalf("transfer got=%q want=%q", got, "kernel")
	}

	if wt, err := c.Receive("/nope", "octet"); err == nil {
		if _, err := wt.WriteTo(&buf); err == nil {
			t.Fatalf("expected error for missing file")
		}
	}
}
