package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	requestBufSize = 8 << 10
	maxHeaders     = 16
)

var (
	ErrMalformedRequest = errors.New("malformed request")
	errPeerClosed       = errors.New("peer closed before sending a request")
)

// Field is one header line as received.
type Field struct {
	Name  string
	Value string
}

// Header keeps fields in arrival order. Duplicates are kept; lookups return
// the first match and ignore case.
type Header []Field

func (h Header) Lookup(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

func (h Header) Get(name string) string {
	v, _ := h.Lookup(name)
	return v
}

// Request is a parsed request. It is owned by the connection being served and
// dropped once the response is written.
type Request struct {
	Method string
	URI    string
	Path   string
	Query  string
	Proto  string
	Header Header
	Body   []byte
}

// headerEnd returns the length of the head and the offset of the body, or
// -1, -1 if the blank line has not been received yet. Bare LF is accepted.
func headerEnd(b []byte) (int, int) {
	crlf := bytes.Index(b, []byte("\r\n\r\n"))
	lf := bytes.Index(b, []byte("\n\n"))
	switch {
	case crlf < 0 && lf < 0:
		return -1, -1
	case lf < 0 || (crlf >= 0 && crlf < lf):
		return crlf, crlf + 4
	default:
		return lf, lf + 2
	}
}

// splitHead returns the head lines with leading blank lines dropped.
func splitHead(head []byte) []string {
	lines := strings.Split(string(head), "\n")
	for len(lines) > 0 && strings.TrimSuffix(lines[0], "\r") == "" {
		lines = lines[1:]
	}
	return lines
}

// parseHeader collects up to maxHeaders "name: value" lines. Lines without a
// colon or with an empty name are skipped.
func parseHeader(lines []string) Header {
	var h Header
	for _, line := range lines {
		if len(h) == maxHeaders {
			break
		}
		name, value, ok := strings.Cut(strings.TrimSuffix(line, "\r"), ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			continue
		}
		h = append(h, Field{Name: name, Value: strings.TrimLeft(value, " \t")})
	}
	return h
}

// contentLength reports a usable Content-Length. A missing, negative or
// non-numeric value counts as absent.
func contentLength(h Header) (int, bool) {
	v, ok := h.Lookup("Content-Length")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// declaredLength is the body length readRequest should wait for. It sees the
// same headers ParseRequest keeps.
func declaredLength(head []byte) int {
	lines := splitHead(head)
	if len(lines) < 2 {
		return 0
	}
	n, _ := contentLength(parseHeader(lines[1:]))
	return n
}

// readRequest reads at most requestBufSize bytes under a single deadline. It
// stops once the head and the declared body are in, the buffer is full, or the
// deadline fires after some bytes arrived.
func readRequest(conn net.Conn, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}
	buf := make([]byte, requestBufSize)
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err != nil {
			if n > 0 {
				break
			}
			if errors.Is(err, io.EOF) {
				return nil, errPeerClosed
			}
			return nil, err
		}
		if head, body := headerEnd(buf[:n]); head >= 0 {
			if n >= body+declaredLength(buf[:head]) {
				break
			}
		}
	}
	return buf[:n], nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRequest, fmt.Sprintf(format, args...))
}

// ParseRequest parses a request captured by readRequest. Tokens are sliced
// out of buf with explicit bounds. Only a request line with fewer than three
// tokens is rejected; odd headers are skipped and the path is checked by the
// method that uses it.
func ParseRequest(buf []byte) (*Request, error) {
	var head, rest []byte
	if h, body := headerEnd(buf); h >= 0 {
		head, rest = buf[:h], buf[body:]
	} else {
		head = buf
	}

	lines := splitHead(head)
	if len(lines) == 0 {
		return nil, malformed("empty request")
	}
	parts := strings.Fields(lines[0])
	if len(parts) < 3 {
		return nil, malformed("request line %q", strings.TrimSpace(lines[0]))
	}
	req := &Request{Method: parts[0], URI: parts[1], Proto: parts[2]}
	req.Path, req.Query, _ = strings.Cut(req.URI, "?")
	req.Header = parseHeader(lines[1:])

	req.Body = rest
	if n, ok := contentLength(req.Header); ok && n < len(rest) {
		req.Body = rest[:n]
	}
	return req, nil
}
