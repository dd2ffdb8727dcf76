package netplay

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/glovebox/server/internal/netplay/packet"
)

// Options sizes session queues and bounds socket I/O.
type Options struct {
	InQueueSize      int
	OutQueueSize     int
	PacketsPerSecond int // 0 = unlimited
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// DefaultOptions returns the queue sizes and timeouts used when a config
// leaves them unset.
func DefaultOptions() Options {
	return Options{
		InQueueSize:  128,
		OutQueueSize: 256,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Session represents a single connection. Network I/O runs in dedicated
// goroutines; match state is accessed only from the game loop.
type Session struct {
	ID   uint64
	conn net.Conn

	state atomic.Int32 // packet.SessionState stored as int32

	InQueue  chan []byte // game loop reads payloads from here
	OutQueue chan []byte // writer goroutine reads from here

	IP string

	outBuf [][]byte // buffered payloads, flushed by the game loop

	opts      Options
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	wg        sync.WaitGroup

	// Per-second packet rate limiter (readLoop goroutine only, no lock needed)
	pktCount   int
	pktResetAt int64

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, opts Options, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		conn:     conn,
		InQueue:  make(chan []byte, opts.InQueueSize),
		OutQueue: make(chan []byte, opts.OutQueueSize),
		IP:       conn.RemoteAddr().String(),
		opts:     opts,
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateJoining))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the reader and writer goroutines.
func (s *Session) Start() {
	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
}

// Send encodes msg and buffers it. Nothing reaches the socket until
// FlushOutput. Game loop only.
func (s *Session) Send(msg packet.Message) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, packet.Encode(msg))
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop
// goroutine. A full OutQueue disconnects the session.
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow connection")
			s.Close()
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down. Safe to call from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done is closed once the session starts closing.
func (s *Session) Done() <-chan struct{} {
	return s.closeCh
}

// Wait blocks until both I/O goroutines have returned.
func (s *Session) Wait() {
	s.wg.Wait()
}

// readLoop reads frames from the connection and pushes them onto InQueue.
func (s *Session) readLoop() {
	defer s.wg.Done()
	defer s.Close()

	for {
		if s.opts.ReadTimeout > 0 {
			s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		}
		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}

		if s.opts.PacketsPerSecond > 0 {
			now := time.Now().Unix()
			if now != s.pktResetAt {
				s.pktCount = 0
				s.pktResetAt = now
			}
			s.pktCount++
			if s.pktCount > s.opts.PacketsPerSecond {
				s.log.Warn("packet rate exceeded, disconnecting", zap.Int("pps", s.pktCount))
				return
			}
		}

		// Inputs must not be dropped: a lost PlayerInput stalls validation
		// until the next one arrives. Block until there is room instead.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop writes every payload queued on OutQueue as one frame.
func (s *Session) writeLoop() {
	defer s.wg.Done()
	defer s.Close()

	for {
		select {
		case data := <-s.OutQueue:
			if !s.writeOnePacket(data) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeOnePacket(data []byte) bool {
	s.log.Debug("TX", zap.Uint8("op", data[0]), zap.Int("len", len(data)))

	if s.opts.WriteTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	}
	if err := WriteFrame(s.conn, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("write error", zap.Error(err))
		}
		return false
	}
	return true
}
