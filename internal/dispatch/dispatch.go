// Package dispatch implements C5, the connection dispatcher (spec.md
// §4.4-4.5): the accept loop, per-connection intent handling, and the
// bidirectional forwarder with its 60-second read-timeout/half-close/
// peer-reset semantics.
//
// Grounded primarily on other_examples' itzg/mc-router connector.go
// (pumpConnections/pumpFrames: per-direction goroutines, deadline resets on
// every read, WaitGroup-joined completion, logrus structured fields) and on
// original_source/proxy.py's forward_sync (60s timeout-as-EOF, errno 32
// silent return). Session IDs follow mc-router's use of google/uuid; the
// dispatcher owns PlayerCount as an atomic int32, exposed to
// internal/backend only through the PlayerCounter callback (spec.md §3
// Ownership).
package dispatch

import (
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gekware/minecraft-server-hibernation/internal/backend"
	"github.com/gekware/minecraft-server-hibernation/internal/handshake"
	"github.com/gekware/minecraft-server-hibernation/internal/meter"
	"github.com/gekware/minecraft-server-hibernation/internal/respond"
)

const (
	copyBufferSize = 1024
	readTimeout    = 60 * time.Second
)

// Dispatcher is C5. It owns PlayerCount and wires C2/C3/C4/C1 together.
type Dispatcher struct {
	ServerHost string
	ServerPort int

	Controller  *backend.Controller
	Synthesizer *respond.Synthesizer
	Meter       *meter.Meter

	// OnVersionLearned, if set, is called whenever a bridged session's first
	// backend buffer carries a version/protocol pair, changed or not
	// (spec.md §4.3); wired by cmd/msh to config.Store.UpdateServerVersion,
	// which skips the write when the pair is unchanged.
	OnVersionLearned func(name string, protocol int)

	players int32

	log *logrus.Entry
}

// New constructs a Dispatcher.
func New(serverHost string, serverPort int, ctrl *backend.Controller, synth *respond.Synthesizer, m *meter.Meter) *Dispatcher {
	return &Dispatcher{
		ServerHost:  serverHost,
		ServerPort:  serverPort,
		Controller:  ctrl,
		Synthesizer: synth,
		Meter:       m,
		log:         logrus.WithField("component", "dispatch"),
	}
}

// PlayerCount satisfies backend.PlayerCounter.
func (d *Dispatcher) PlayerCount() int {
	return int(atomic.LoadInt32(&d.players))
}

// Serve runs the accept loop until the listener is closed. Per spec.md
// §4.4 "Accept loop resilience", a panic or error handling one connection
// never stops the loop.
func (d *Dispatcher) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if isTemporary(err) {
				d.log.WithError(err).Warn("temporary accept error")
				continue
			}
			return err
		}
		go d.handleWithRecover(conn)
	}
}

func (d *Dispatcher) handleWithRecover(conn net.Conn) {
	defer func() {
		if r := recover(); r != nil {
			d.log.WithField("panic", r).Error("recovered from panic handling connection")
		}
	}()
	d.handle(conn)
}

// handle implements spec.md §4.4's per-accept decision tree.
func (d *Dispatcher) handle(conn net.Conn) {
	if d.Controller.Status() == backend.Online {
		d.bridge(conn)
		return
	}

	res, err := handshake.Classify(conn)
	if err != nil {
		conn.Close()
		return
	}

	switch res.Intent {
	case handshake.Login:
		triggeredStart := d.Controller.Status() == backend.Offline
		if triggeredStart {
			d.Controller.RequestStart()
		}

		var msg string
		if triggeredStart {
			msg = "Server start command issued. Please wait... Time left: " + strconv.Itoa(d.Controller.TimeUntilUp()) + "s"
		} else {
			msg = "Server is starting. Please wait... Time left: " + strconv.Itoa(d.Controller.TimeUntilUp()) + "s"
		}
		pkt := respond.Text(msg)
		conn.Write(pkt)
		closeWrite(conn)
		conn.Close()

	case handshake.Status:
		desc := "Server status:\n"
		if d.Controller.Status() == backend.Starting {
			desc += "WARMING UP"
		} else {
			desc += "HIBERNATING"
		}
		pkt := d.Synthesizer.Info(desc)
		conn.Write(pkt)

		nonce, err := handshake.ReadPingNonce(conn)
		if err == nil && len(nonce) > 0 {
			conn.Write(nonce)
		}
		conn.Close()

	default: // Unknown
		conn.Close()
	}
}

// bridge implements spec.md §4.4 step 1 and §4.5: dial upstream, spawn the
// two copiers, notify join/leave exactly once.
func (d *Dispatcher) bridge(client net.Conn) {
	upstream, err := net.DialTimeout("tcp", net.JoinHostPort(d.ServerHost, strconv.Itoa(d.ServerPort)), 10*time.Second)
	if err != nil {
		d.log.WithError(err).Debug("upstream unreachable while ONLINE")
		client.Close()
		return
	}

	sessionID := uuid.New().String()
	log := d.log.WithField("session", sessionID)

	atomic.AddInt32(&d.players, 1)
	now := int(atomic.LoadInt32(&d.players))
	d.Controller.NotifyPlayerJoined(now)

	var wg sync.WaitGroup
	wg.Add(2)

	firstBuf := &firstBufferCapture{}

	go func() {
		defer wg.Done()
		d.pump(client, upstream, log.WithField("dir", "c->s"), nil)
	}()
	go func() {
		defer wg.Done()
		d.pump(upstream, client, log.WithField("dir", "s->c"), firstBuf)
	}()

	wg.Wait()
	client.Close()
	upstream.Close()

	if firstBuf.captured != nil && d.Synthesizer != nil {
		if name, protocol, learned := d.Synthesizer.LearnFromBackendBuffer(firstBuf.captured); learned && d.OnVersionLearned != nil {
			d.OnVersionLearned(name, protocol)
		}
	}

	left := atomic.AddInt32(&d.players, -1)
	d.Controller.NotifyPlayerLeft(int(left))
}

// firstBufferCapture records the first server-to-client buffer for the
// synthesizer's version-learning scan (spec.md §4.3), without altering what
// gets forwarded to the client.
type firstBufferCapture struct {
	captured []byte
}

// pump is one direction of the bidirectional forwarder (spec.md §4.5): 1024
// byte reads, 60s read timeout treated as EOF, half-close on EOF, silent
// return on peer reset, log-and-return on any other error. capture, if
// non-nil, records the first successful read verbatim.
func (d *Dispatcher) pump(src, dst net.Conn, log *logrus.Entry, capture *firstBufferCapture) {
	buf := make([]byte, copyBufferSize)
	first := true
	for {
		src.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := src.Read(buf)
		if n > 0 {
			if capture != nil && first {
				capture.captured = append([]byte(nil), buf[:n]...)
			}
			first = false

			if _, werr := dst.Write(buf[:n]); werr != nil {
				if !isPeerReset(werr) {
					log.WithError(werr).Debug("write error")
				}
				halfClose(dst)
				return
			}
			if d.Meter != nil {
				d.Meter.Record(n)
			}
		}
		if err != nil {
			if err == io.EOF || isTimeout(err) {
				halfClose(dst)
				return
			}
			if isPeerReset(err) {
				halfClose(dst)
				return
			}
			log.WithError(err).Debug("read error")
			halfClose(dst)
			return
		}
	}
}

// halfClose indicates no more writes are coming on dst, per spec.md §4.5.
// Most net.Conn implementations (notably *net.TCPConn) satisfy an optional
// CloseWrite; when one doesn't, a full Close is the closest fallback.
func halfClose(conn net.Conn) {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := conn.(closeWriter); ok {
		cw.CloseWrite()
		return
	}
	conn.Close()
}

func closeWrite(conn net.Conn) {
	halfClose(conn)
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	te, ok := err.(timeout)
	return ok && te.Timeout()
}

func isPeerReset(err error) bool {
	return isConnReset(err)
}

func isTemporary(err error) bool {
	type temporary interface{ Temporary() bool }
	te, ok := err.(temporary)
	return ok && te.Temporary()
}

