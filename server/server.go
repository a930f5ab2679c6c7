// Package server implements the TCP listener and per-connection command
// loop (§6, §10.3), grounded on original_source/src/serverv2/server.rs's
// accept()/accept_loop() split and on the teacher's repl/repl.go for the
// shape of a line-oriented read loop (there: stdin; here: a socket).
package server

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/dkvs/hashdb/engine"
	"github.com/dkvs/hashdb/pager"
	"github.com/dkvs/hashdb/protocol"
	"go.uber.org/zap"
)

// requestReadTimeout bounds how long a connection's goroutine will wait
// for the next request line before the connection is dropped, per §5's
// note that a stalled client should not pin a goroutine forever.
const requestReadTimeout = 5 * time.Minute

// Server accepts connections on one address and dispatches requests to an
// Engine.
type Server struct {
	addr   string
	engine *engine.Engine
	pages  *pager.Manager
	log    *zap.SugaredLogger
}

// New creates a Server. Call Serve to start accepting connections.
func New(addr string, e *engine.Engine, pages *pager.Manager, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{addr: addr, engine: e, pages: pages, log: log}
}

// Serve binds addr and runs the accept loop. It returns an error if the
// bind fails; otherwise it does not return, since the listener it creates
// is not exposed for a caller to close (ServeListener takes a caller-owned
// listener and returns nil once that listener is closed).
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.addr, err)
	}
	defer ln.Close()
	return s.ServeListener(ln)
}

// ServeListener runs the accept loop against an already-bound listener.
// Exposed separately from Serve so tests can bind an ephemeral port
// (":0") and learn the real address before connecting.
func (s *Server) ServeListener(ln net.Listener) error {
	s.log.Infow("listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warnw("accept failed", "error", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	writer := bufio.NewWriter(conn)

	for {
		conn.SetReadDeadline(time.Now().Add(requestReadTimeout))
		if !scanner.Scan() {
			return
		}
		resp, closeConn := s.dispatch(scanner.Text())
		if resp != "" {
			if _, err := writer.WriteString(resp); err != nil {
				s.log.Warnw("write failed", "error", err)
				return
			}
			if err := writer.Flush(); err != nil {
				s.log.Warnw("flush failed", "error", err)
				return
			}
		}
		if closeConn {
			return
		}
	}
}

// dispatch parses one request line and returns the response line to send
// (or "" for the empty no-op, §4.8) along with whether the connection must
// be closed after the response is written. §7 states a Protocol error
// closes the connection rather than letting the client retry on it.
func (s *Server) dispatch(line string) (resp string, closeConn bool) {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		return protocol.FormatErr(err.Error()), true
	}

	switch req.Verb {
	case protocol.None:
		return "", false
	case protocol.Get:
		value, err := s.engine.Get([]byte(req.Key))
		if err != nil {
			if errors.Is(err, engine.ErrNotFound) {
				return protocol.FormatNotFound(), false
			}
			if errors.Is(err, pager.ErrNoFreeFrame) {
				return protocol.FormatErr("busy"), false
			}
			s.log.Errorw("get failed", "key", req.Key, "error", err)
			return protocol.FormatErr(err.Error()), false
		}
		return protocol.FormatOKValue(string(value)), false
	case protocol.Set:
		if err := s.engine.Put([]byte(req.Key), []byte(req.Value)); err != nil {
			if errors.Is(err, pager.ErrEntryTooLarge) {
				return protocol.FormatErr("entry too large"), false
			}
			s.log.Errorw("put failed", "key", req.Key, "error", err)
			return protocol.FormatErr(err.Error()), false
		}
		return protocol.FormatOK(), false
	case protocol.Del:
		if err := s.engine.Delete([]byte(req.Key)); err != nil {
			s.log.Errorw("delete failed", "key", req.Key, "error", err)
			return protocol.FormatErr(err.Error()), false
		}
		return protocol.FormatOK(), false
	default:
		return protocol.FormatErr("unsupported request"), false
	}
}
