package httpx

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const chunkSize = 8 << 10

var statusText = map[int]string{
	http.StatusOK:             "OK",
	http.StatusBadRequest:     "Bad Request",
	http.StatusNotFound:       "Not Found",
	http.StatusNotImplemented: "Method Not Implemented",
}

// writeStatus emits the status line and the blank line. No headers follow;
// the body ends when the connection closes.
func writeStatus(w io.Writer, code int) error {
	_, err := fmt.Fprintf(w, "HTTP/1.0 %d %s\r\n\r\n", code, statusText[code])
	return err
}

// deadlineWriter refreshes the write deadline before every chunk so a stalled
// client cannot hold the frame loop.
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
		return 0, err
	}
	return w.conn.Write(p)
}

func (s *Server) serveConn(id string, conn net.Conn) {
	raw, err := readRequest(conn, s.cfg.RecvTimeout)
	if err != nil {
		s.debugf("[%s] read: %v", id, err)
		return
	}
	w := &deadlineWriter{conn: conn, timeout: s.cfg.WriteTimeout}

	req, err := ParseRequest(raw)
	if err != nil {
		s.debugf("[%s] %v", id, err)
		if err := writeStatus(w, http.StatusBadRequest); err != nil {
			s.debugf("[%s] write: %v", id, err)
		}
		return
	}
	code, err := s.respond(w, req)
	s.debugf("[%s] %s %s -> %d", id, req.Method, req.URI, code)
	if err != nil {
		s.debugf("[%s] write: %v", id, err)
	}
}

// respond writes exactly one response for req and returns its status code.
func (s *Server) respond(w io.Writer, req *Request) (int, error) {
	switch req.Method {
	case http.MethodGet:
		return s.serveFile(w, req)
	case http.MethodPost:
		return http.StatusOK, serveEcho(w, req)
	default:
		return http.StatusNotImplemented, writeStatus(w, http.StatusNotImplemented)
	}
}

func (s *Server) serveFile(w io.Writer, req *Request) (int, error) {
	p := req.Path
	if p == "/" {
		p = "/index.html"
	}
	if !strings.HasPrefix(p, "/") {
		// absolute-form or "*" never names a file under a mount
		return http.StatusNotFound, writeStatus(w, http.StatusNotFound)
	}
	f, _, err := s.mounts.OpenRegular(p)
	if err != nil {
		s.debugf("get %s: %v", p, err)
		return http.StatusNotFound, writeStatus(w, http.StatusNotFound)
	}
	defer f.Close()

	if err := writeStatus(w, http.StatusOK); err != nil {
		return http.StatusOK, err
	}
	buf := make([]byte, chunkSize)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return http.StatusOK, err
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return http.StatusOK, nil
			}
			return http.StatusOK, rerr
		}
	}
}

// serveEcho answers POST with a diagnostic dump of what was received.
func serveEcho(w io.Writer, req *Request) error {
	if err := writeStatus(w, http.StatusOK); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s : %s q's %s prot %s rest %s", req.Method, req.Path, req.Query, req.Proto, req.Body)
	return err
}
