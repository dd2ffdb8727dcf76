package netplay

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Server accepts TCP connections and creates Sessions.
// New/dead sessions are communicated to the game loop via channels.
type Server struct {
	listener net.Listener
	nextID   atomic.Uint64
	newConns chan *Session
	deadCh   chan uint64 // session IDs of dead sessions
	opts     Options
	log      *zap.Logger
	closeCh  chan struct{}
	wg       sync.WaitGroup
}

func NewServer(bindAddr string, opts Options, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", bindAddr, err)
	}
	s := &Server{
		listener: ln,
		newConns: make(chan *Session, 8),
		deadCh:   make(chan uint64, 8),
		opts:     opts,
		log:      log.With(zap.String("component", "netplay")),
		closeCh:  make(chan struct{}),
	}
	return s, nil
}

// AcceptLoop runs in its own goroutine. It accepts connections, starts
// sessions and pushes them onto the newConns channel.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}

		id := s.nextID.Add(1)
		sess := NewSession(conn, id, s.opts, s.log)
		sess.Start()
		s.watch(sess)

		s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))

		select {
		case s.newConns <- sess:
		default:
			s.log.Warn("connection queue full, rejecting")
			sess.Close()
		}
	}
}

// watch reports sess on the dead channel once it closes.
func (s *Server) watch(sess *Session) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-sess.Done():
			sess.Wait()
			s.NotifyDead(sess.ID)
		case <-s.closeCh:
			sess.Close()
			sess.Wait()
		}
	}()
}

// NewSessions returns the channel of newly connected sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// NotifyDead reports a dead session ID to the game loop.
func (s *Server) NotifyDead(sessionID uint64) {
	select {
	case s.deadCh <- sessionID:
	default:
	}
}

// DeadSessions returns the channel of dead session IDs.
func (s *Server) DeadSessions() <-chan uint64 {
	return s.deadCh
}

// Shutdown stops accepting connections, closes every session and waits
// for their goroutines to exit.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.listener.Close()
	s.wg.Wait()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Dial connects to a server and starts a session for the connection.
func Dial(ctx context.Context, addr string, opts Options, log *zap.Logger) (*Session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	sess := NewSession(conn, 0, opts, log.With(zap.String("component", "netplay")))
	sess.Start()
	return sess, nil
}
