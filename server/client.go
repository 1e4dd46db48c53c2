package server

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rascol/lpximage/proto"
)

// clientConn is one connected debug client's server-side bookkeeping
// (spec §3's "Client state"): the socket, its write serialization
// lock, a count of frames written to it, and a count of commands read
// from it.
type clientConn struct {
	conn   net.Conn
	wmu    sync.Mutex
	framesSent  atomic.Int64
	commandsSeen atomic.Int64
	closed atomic.Bool
}

func newClientConn(conn net.Conn) *clientConn {
	return &clientConn{conn: conn}
}

// writeFrame serializes writers to this client's socket; concurrent
// broadcast of one frame and a reader closing the connection must not
// interleave partial writes.
func (c *clientConn) writeFrame(f proto.Frame) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := proto.WriteFrame(c.conn, f); err != nil {
		return err
	}
	c.framesSent.Add(1)
	return nil
}

func (c *clientConn) close() {
	if c.closed.CompareAndSwap(false, true) {
		c.conn.Close()
	}
}

// readCommands runs as the per-client command reader task: it blocks
// on cmdType with a 100ms deadline (so it notices shutdown promptly),
// dispatches valid commands to onCommand, and closes the connection on
// any unknown cmdType or read failure (spec §4.G's no-resync policy).
func (c *clientConn) readCommands(running *atomic.Bool, onCommand func(proto.Command)) {
	defer c.close()
	for running.Load() && !c.closed.Load() {
		c.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		cmdType, err := proto.ReadCmdType(c.conn)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return
		}
		if !proto.IsCommandType(cmdType) {
			return
		}
		cmd, err := proto.ReadCommand(c.conn)
		if err != nil {
			return
		}
		c.commandsSeen.Add(1)
		onCommand(cmd)
	}
}

// clientSet is the server's registry of connected clients, guarded by
// a single mutex held only while inserting/removing entries (spec §5).
type clientSet struct {
	mu      sync.Mutex
	clients map[*clientConn]struct{}
}

func newClientSet() *clientSet {
	return &clientSet{clients: make(map[*clientConn]struct{})}
}

func (s *clientSet) add(c *clientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *clientSet) remove(c *clientConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

func (s *clientSet) snapshot() []*clientConn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*clientConn, 0, len(s.clients))
	for c := range s.clients {
		out = append(out, c)
	}
	return out
}

func (s *clientSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *clientSet) closeAll() {
	for _, c := range s.snapshot() {
		c.close()
	}
}
