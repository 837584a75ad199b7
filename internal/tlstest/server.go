package tlstest

import (
	"crypto/tls"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
)

// Server is a local TCP listener that optionally runs a TLS server
// handshake and then echoes every byte back.
type Server struct {
	Addr string

	// Accepted counts TCP connections; Handshakes counts completed
	// server handshakes.
	Accepted   atomic.Int64
	Handshakes atomic.Int64

	ln  net.Listener
	cfg *tls.Config
	wg  sync.WaitGroup

	mu    sync.Mutex
	conns []net.Conn
}

// NewServer starts an echo server.  With a nil cfg the server speaks
// plain TCP.  The server is closed when the test ends.
func NewServer(t testing.TB, cfg *tls.Config) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{Addr: ln.Addr().String(), ln: ln, cfg: cfg}

	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Close stops the listener and every open connection.
func (s *Server) Close() {
	s.ln.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.Accepted.Add(1)
		s.mu.Lock()
		s.conns = append(s.conns, c)
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(c)
		}()
	}
}

func (s *Server) handle(c net.Conn) {
	defer c.Close()
	var rw io.ReadWriter = c
	if s.cfg != nil {
		tc := tls.Server(c, s.cfg)
		if err := tc.Handshake(); err != nil {
			return
		}
		s.Handshakes.Add(1)
		rw = tc
	}
	io.Copy(rw, rw) //nolint:errcheck
}
