package httpx

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memWith(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, data := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(data), 0o644))
	}
	return fs
}

func respondTo(t *testing.T, s *Server, raw string) (int, string) {
	t.Helper()
	req, err := ParseRequest([]byte(raw))
	require.NoError(t, err)
	var out bytes.Buffer
	code, err := s.respond(&out, req)
	require.NoError(t, err)
	return code, out.String()
}

func newMemServer(t *testing.T) *Server {
	s := New(Config{})
	s.AddFilesystem("a", memWith(t, map[string]string{
		"index.html":  "<h1>album</h1>",
		"shared.txt":  "from a",
		"album/1.jpg": "jpeg-1",
	}))
	s.AddFilesystem("b", memWith(t, map[string]string{
		"shared.txt": "from b",
		"only-b.txt": "b only",
	}))
	return s
}

func TestRespondGetRootIsIndex(t *testing.T) {
	s := newMemServer(t)
	code, root := respondTo(t, s, "GET / HTTP/1.0\r\n\r\n")
	assert.Equal(t, http.StatusOK, code)
	_, index := respondTo(t, s, "GET /index.html HTTP/1.0\r\n\r\n")
	assert.Equal(t, index, root)
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\n<h1>album</h1>", root)
}

func TestRespondGetMountPriority(t *testing.T) {
	s := newMemServer(t)
	_, body := respondTo(t, s, "GET /shared.txt HTTP/1.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\nfrom a", body)

	_, body = respondTo(t, s, "GET /only-b.txt?dl=1 HTTP/1.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\nb only", body)

	_, body = respondTo(t, s, "GET /album/1.jpg HTTP/1.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\njpeg-1", body)
}

func TestRespondGetLargeFileStreamsEveryByte(t *testing.T) {
	big := strings.Repeat("0123456789abcdef", 3*chunkSize/16+7)
	s := New(Config{})
	s.AddFilesystem("a", memWith(t, map[string]string{"big.bin": big}))

	_, body := respondTo(t, s, "GET /big.bin HTTP/1.0\r\n\r\n")
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\n"+big, body)
}

func TestRespondGetNotFound(t *testing.T) {
	s := newMemServer(t)
	for _, p := range []string{"/missing", "/album", "/../index.html/x", "/" + strings.Repeat("p", 300), "index.html", "http://host/index.html", "*"} {
		code, body := respondTo(t, s, "GET "+p+" HTTP/1.0\r\n\r\n")
		assert.Equal(t, http.StatusNotFound, code, p)
		assert.Equal(t, "HTTP/1.0 404 Not Found\r\n\r\n", body, p)
	}
}

func TestRespondGetNoMounts(t *testing.T) {
	code, body := respondTo(t, New(Config{}), "GET / HTTP/1.0\r\n\r\n")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "HTTP/1.0 404 Not Found\r\n\r\n", body)
}

func TestRespondPostEcho(t *testing.T) {
	s := newMemServer(t)
	code, body := respondTo(t, s, "POST /upload?name=a.txt HTTP/1.0\r\nContent-Length: 7\r\n\r\npayload")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "HTTP/1.0 200 OK\r\n\r\nPOST : /upload q's name=a.txt prot HTTP/1.0 rest payload", body)
}

func TestRespondUnsupportedMethods(t *testing.T) {
	s := newMemServer(t)
	for _, m := range []string{"PUT", "DELETE", "HEAD", "get"} {
		code, body := respondTo(t, s, m+" /index.html HTTP/1.0\r\n\r\n")
		assert.Equal(t, http.StatusNotImplemented, code, m)
		assert.Equal(t, "HTTP/1.0 501 Method Not Implemented\r\n\r\n", body, m)
	}
	for _, raw := range []string{"OPTIONS * HTTP/1.0\r\n\r\n", "PUT relative HTTP/1.0\r\n\r\n"} {
		code, _ := respondTo(t, s, raw)
		assert.Equal(t, http.StatusNotImplemented, code, raw)
	}
}

func TestWriteStatusSingleLine(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusBadRequest, http.StatusNotFound, http.StatusNotImplemented} {
		var out bytes.Buffer
		require.NoError(t, writeStatus(&out, code))
		assert.Equal(t, 1, strings.Count(out.String(), "HTTP/1.0"))
		assert.True(t, strings.HasSuffix(out.String(), "\r\n\r\n"))
	}
}
