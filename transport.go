package atem

import (
	"net"
	"time"

	"github.com/pkg/errors"
)

// ErrNilConn is returned by newTransport when given a nil net.Conn.
var ErrNilConn = errors.New("atem: expected a non-nil net.Conn")

// transport is a connected datagram socket: every Write goes to the peer
// set up at dial time, every Read returns one whole datagram. It also
// counts bytes in both directions, the way the teacher's Reader/Writer
// wrap a stream socket to expose ReadBytes()/WrittenBytes().
type transport struct {
	conn      net.Conn
	readBytes  uint64
	writtenBytes uint64
}

// newTransport wraps an already-connected UDP socket. Production callers
// get one from dialUDP; tests substitute a net.Pipe or in-memory net.Conn.
func newTransport(conn net.Conn) (*transport, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	return &transport{conn: conn}, nil
}

// dialUDP opens a UDP socket connected to addr (host:port).
func dialUDP(addr string) (*transport, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "atem: dial")
	}
	return newTransport(conn)
}

// ReadDatagram blocks until the next datagram arrives, deadline, or error,
// and returns it as a freshly allocated slice sized to what was read.
func (t *transport) ReadDatagram(buf []byte, deadline time.Time) ([]byte, error) {
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, errors.Wrap(err, "atem: set read deadline")
	}
	n, err := t.conn.Read(buf)
	if n > 0 {
		t.readBytes += uint64(n)
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

// WriteDatagram sends one complete datagram.
func (t *transport) WriteDatagram(data []byte) error {
	n, err := t.conn.Write(data)
	if n > 0 {
		t.writtenBytes += uint64(n)
	}
	if err != nil {
		return errors.Wrap(err, "atem: write datagram")
	}
	return nil
}

// ReadBytes returns the total bytes read since the transport was created.
func (t *transport) ReadBytes() uint64 { return t.readBytes }

// WrittenBytes returns the total bytes written since the transport was
// created.
func (t *transport) WrittenBytes() uint64 { return t.writtenBytes }

// Close releases the underlying socket.
func (t *transport) Close() error { return t.conn.Close() }
