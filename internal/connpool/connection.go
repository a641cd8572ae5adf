package connpool

import (
	"bufio"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/fanoutsearch/internal/resp"
	"github.com/dreamware/fanoutsearch/internal/topology"
)

// State is one of the five legal Connection states.
type State int

const (
	Disconnected State = iota
	Connecting
	ReAuth
	Connected
	Freeing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case ReAuth:
		return "reauth"
	case Connected:
		return "connected"
	case Freeing:
		return "freeing"
	default:
		return "unknown"
	}
}

// ErrNotConnected is the transient error send() returns when state is not
// Connected: sends are non-blocking, and in any other state send returns
// this error without touching the wire.
var ErrNotConnected = errors.New("connection: not connected")

const (
	backoffConnecting = 250 * time.Millisecond
	backoffReAuth      = 1000 * time.Millisecond
)

// ReplyFunc is invoked exactly once per sent Command, on the owning
// IORuntime's reactor thread (via the Schedule callback supplied at
// construction), with the decoded reply or a non-nil error if the
// connection dropped before the reply arrived.
type ReplyFunc func(reply resp.Reply, err error, privdata interface{})

// Opts configures a Connection. TLSConfig is resolved by the host at
// connect time ("configuration callback") — here it is
// supplied directly since this module owns no global config singleton.
type Opts struct {
	Endpoint  topology.Endpoint
	TLSConfig *tls.Config
	Logger    *zap.Logger
	// Schedule delivers fn onto the owning IORuntime's WorkQueue. All
	// ReplyFunc invocations and state-change notifications are routed
	// through this so a Connection never calls back off-thread.
	Schedule func(fn func())
}

type pendingSend struct {
	cmd      *resp.Command
	reply    ReplyFunc
	privdata interface{}
}

// Connection is a single asynchronous link to one shard. It exists
// conceptually on one IORuntime's loop — only that runtime's goroutines
// may call Send or observe State.
type Connection struct {
	opts   Opts
	logger *zap.Logger

	mu                 sync.Mutex
	state              State
	protocolNegotiated int
	conn               net.Conn
	stopped            bool

	sendCh  chan *pendingSend
	inFlight []*pendingSend
	inFlightMu sync.Mutex

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a Connection and immediately starts its connect loop. The
// connection begins in Disconnected and transitions to Connecting on the
// first control-loop tick.
func New(opts Opts) *Connection {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	c := &Connection{
		opts:    opts,
		logger:  opts.Logger.With(zap.String("endpoint", opts.Endpoint.String())),
		state:   Disconnected,
		sendCh:  make(chan *pendingSend, 256),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go c.controlLoop()
	return c
}

// State returns the connection's current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Send enqueues cmd for transmission iff the connection is Connected;
// otherwise it returns ErrNotConnected without touching the wire. on_reply
// is invoked exactly once, on the owning runtime's thread, once the reply
// arrives or the connection drops.
func (c *Connection) Send(cmd *resp.Command, reply ReplyFunc, privdata interface{}) error {
	if c.State() != Connected {
		return ErrNotConnected
	}
	ps := &pendingSend{cmd: cmd, reply: reply, privdata: privdata}
	select {
	case c.sendCh <- ps:
		return nil
	default:
		return ErrNotConnected
	}
}

// Stop requests the terminal Freeing transition. The control loop
// processes it on its next tick, detaches the socket, and fails any
// in-flight sends.
func (c *Connection) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()
	close(c.stopCh)
	<-c.doneCh
}

// controlLoop drives the dial-retry state machine. It mirrors
// redisconn.Connection's createConnection loop: dial, optionally
// authenticate, wrap in TLS, then hand off to writer/reader goroutines
// until the socket errors, at which point it loops back to Connecting
// after the state's backoff.
func (c *Connection) controlLoop() {
	defer close(c.doneCh)
	for {
		select {
		case <-c.stopCh:
			c.setState(Freeing)
			c.failAllInFlight(errors.New("connection: stopping"))
			return
		default:
		}

		c.setState(Connecting)
		conn, err := c.dial()
		if err != nil {
			c.logger.Debug("dial failed, backing off", zap.Error(err))
			if c.sleepOrStop(backoffConnecting) {
				c.setState(Freeing)
				return
			}
			continue
		}

		if c.opts.Endpoint.AuthToken != "" {
			c.setState(ReAuth)
			if err := c.authenticate(conn); err != nil {
				conn.Close()
				c.logger.Debug("auth failed, backing off", zap.Error(err))
				if c.sleepOrStop(backoffReAuth) {
					c.setState(Freeing)
					return
				}
				continue
			}
		}

		if c.opts.TLSConfig != nil {
			tconn := tls.Client(conn, c.opts.TLSConfig)
			if err := tconn.Handshake(); err != nil {
				conn.Close()
				c.logger.Debug("tls handshake failed, backing off", zap.Error(err))
				if c.sleepOrStop(backoffConnecting) {
					c.setState(Freeing)
					return
				}
				continue
			}
			conn = tconn
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.setState(Connected)

		c.runSession(conn) // blocks until the session drops
		c.failAllInFlight(errors.New("connection: dropped"))

		select {
		case <-c.stopCh:
			c.setState(Freeing)
			return
		default:
		}
	}
}

func (c *Connection) sleepOrStop(d time.Duration) (stopped bool) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-c.stopCh:
		return true
	}
}

func (c *Connection) dial() (net.Conn, error) {
	if c.opts.Endpoint.UnixSocket != "" {
		return net.DialTimeout("unix", c.opts.Endpoint.UnixSocket, 5*time.Second)
	}
	return net.DialTimeout("tcp", c.opts.Endpoint.String(), 5*time.Second)
}

func (c *Connection) authenticate(conn net.Conn) error {
	auth := resp.New("AUTH", []byte(c.opts.Endpoint.AuthToken))
	if err := resp.Encode(conn, auth); err != nil {
		return err
	}
	r := bufio.NewReader(conn)
	reply, err := resp.Decode(r, 2)
	if err != nil {
		return err
	}
	if msg, isErr := resp.IsError(reply); isErr {
		return errors.New(msg)
	}
	return nil
}

// runSession owns the writer and reader goroutines for one live socket.
// It returns when either side observes an error, at which point the
// caller re-enters the dial-retry loop.
func (c *Connection) runSession(conn net.Conn) {
	sessionErr := make(chan error, 2)
	sessionDone := make(chan struct{})

	go c.writer(conn, sessionErr, sessionDone)
	go c.reader(conn, sessionErr, sessionDone)

	<-sessionErr
	close(sessionDone)
	conn.Close()
}

func (c *Connection) writer(conn net.Conn, errCh chan<- error, done <-chan struct{}) {
	w := bufio.NewWriter(conn)
	for {
		select {
		case ps := <-c.sendCh:
			// Queue before writing so a reply can never arrive ahead of its
			// pendingSend; a HELLO gets its own reply-less entry so its
			// reply is consumed in FIFO order too.
			sendsHello := ps.cmd.ProtocolVersion != 0 && ps.cmd.ProtocolVersion != c.protocolNegotiated
			c.inFlightMu.Lock()
			if sendsHello {
				c.inFlight = append(c.inFlight, &pendingSend{cmd: ps.cmd})
			}
			c.inFlight = append(c.inFlight, ps)
			c.inFlightMu.Unlock()
			c.negotiateProtocol(w, ps.cmd)
			if err := resp.Encode(w, ps.cmd); err != nil {
				errCh <- err
				return
			}
			if len(c.sendCh) == 0 {
				if err := w.Flush(); err != nil {
					errCh <- err
					return
				}
			}
		case <-done:
			return
		case <-c.stopCh:
			errCh <- errors.New("connection: stop requested")
			return
		}
	}
}

// negotiateProtocol issues a protocol-hello if cmd asks for a different
// RESP version than currently negotiated.
func (c *Connection) negotiateProtocol(w *bufio.Writer, cmd *resp.Command) {
	if cmd.ProtocolVersion == 0 || cmd.ProtocolVersion == c.protocolNegotiated {
		return
	}
	hello := resp.New("HELLO", []byte(strconv.Itoa(cmd.ProtocolVersion)))
	_ = resp.Encode(w, hello)
	c.protocolNegotiated = cmd.ProtocolVersion
}

func (c *Connection) reader(conn net.Conn, errCh chan<- error, done <-chan struct{}) {
	r := bufio.NewReader(conn)
	for {
		reply, err := resp.Decode(r, c.protocolNegotiated)
		if err != nil {
			select {
			case errCh <- err:
			default:
			}
			return
		}
		ps := c.popInFlight()
		if ps == nil {
			continue // unsolicited push (pub/sub, out of scope here)
		}
		c.deliver(ps, reply, nil)
	}
}

func (c *Connection) popInFlight() *pendingSend {
	c.inFlightMu.Lock()
	defer c.inFlightMu.Unlock()
	if len(c.inFlight) == 0 {
		return nil
	}
	ps := c.inFlight[0]
	c.inFlight = c.inFlight[1:]
	return ps
}

func (c *Connection) failAllInFlight(err error) {
	c.inFlightMu.Lock()
	pending := c.inFlight
	c.inFlight = nil
	c.inFlightMu.Unlock()
	for _, ps := range pending {
		c.deliver(ps, nil, err)
	}
}

func (c *Connection) deliver(ps *pendingSend, reply resp.Reply, err error) {
	if ps.reply == nil {
		return
	}
	if c.opts.Schedule != nil {
		c.opts.Schedule(func() { ps.reply(reply, err, ps.privdata) })
		return
	}
	ps.reply(reply, err, ps.privdata)
}
