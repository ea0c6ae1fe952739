// Package query implements the supplemental GameSpy4 Query protocol
// responder (SPEC_FULL.md "Supplemented features" §1): a second UDP
// listener answering the same handshake/base-stats/full-stats requests
// tools like dynmap and server-list aggregators send.
//
// Adapted from the teacher's lib/conn/conn-query.go: the three request
// shapes (7/11/15 bytes), the handshake/base/full response byte layouts,
// and the "hardcoded 0 players" stance while hibernating are unchanged.
// What's replaced is the challenge library — the teacher's manual
// time.Timer slice with reverse-iteration expiry becomes a
// github.com/patrickmn/go-cache TTL map (SPEC_FULL.md names this upgrade
// explicitly), and the stat fields are sourced from backend.Controller and
// the dispatcher's live player count instead of package-level config
// globals.
package query

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/gekware/minecraft-server-hibernation/internal/backend"
)

// StatusSource supplies the live fields the query responses report.
type StatusSource interface {
	Status() backend.Status
	PlayerCount() int
}

// Responder answers Query protocol requests on its own UDP port.
type Responder struct {
	Host       string
	Port       int
	HostPort   int // the TCP proxy port reported in hostport fields
	MOTD       string
	ServerName string

	Source StatusSource

	challenges *cache.Cache
	log        *logrus.Entry
}

// New constructs a Responder. Issued challenges expire after one hour,
// mirroring the teacher's one-hour timer per issued challenge.
func New(host string, port, tcpHostPort int, motd, serverName string, source StatusSource) *Responder {
	return &Responder{
		Host:       host,
		Port:       port,
		HostPort:   tcpHostPort,
		MOTD:       motd,
		ServerName: serverName,
		Source:     source,
		challenges: cache.New(time.Hour, 10*time.Minute),
		log:        logrus.WithField("component", "query"),
	}
}

// Serve listens on Host:Port and answers requests. It returns an error only
// if the listen fails; read errors are logged and the loop continues.
func (r *Responder) Serve() error {
	conn, err := net.ListenPacket("udp", net.JoinHostPort(r.Host, strconv.Itoa(r.Port)))
	if err != nil {
		return err
	}
	defer conn.Close()

	r.log.WithField("addr", conn.LocalAddr()).Info("listening for query requests")

	buf := make([]byte, 1024)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			r.log.WithError(err).Error("query socket read error")
			continue
		}
		r.handle(conn, addr, append([]byte(nil), buf[:n]...))
	}
}

func (r *Responder) handle(conn net.PacketConn, addr net.Addr, req []byte) {
	switch len(req) {
	case 7: // handshake
		sessionID := req[3:7]
		challenge := r.genChallenge()

		res := bytes.NewBuffer([]byte{9})
		res.Write(sessionID)
		res.WriteString(fmt.Sprintf("%d", challenge) + "\x00")

		if _, err := conn.WriteTo(res.Bytes(), addr); err != nil {
			r.log.WithError(err).Debug("query handshake write error")
		}

	case 11, 15: // base / full stats
		sessionID := req[3:7]
		challenge := req[7:11]

		if !r.validChallenge(binary.BigEndian.Uint32(challenge)) {
			r.log.Debug("query stats request with unknown or expired challenge")
			return
		}

		var resp []byte
		if len(req) == 11 {
			resp = r.statRespBase(sessionID)
		} else {
			resp = r.statRespFull(sessionID)
		}
		if _, err := conn.WriteTo(resp, addr); err != nil {
			r.log.WithError(err).Debug("query stats write error")
		}

	default:
		r.log.Debug("unexpected query request length")
	}
}

func (r *Responder) statRespBase(sessionID []byte) []byte {
	players, maxPlayers := r.playerFields()

	var buf bytes.Buffer
	buf.WriteByte(0)
	buf.Write(sessionID)
	buf.WriteString(r.MOTD + "\x00")
	buf.WriteString("SMP\x00")
	buf.WriteString("world\x00")
	buf.WriteString(players + "\x00")
	buf.WriteString(maxPlayers + "\x00")
	buf.Write(append(reverseBytes(big.NewInt(int64(r.HostPort)).Bytes()), 0))
	buf.WriteString(outboundIPv4() + "\x00")
	return buf.Bytes()
}

func (r *Responder) statRespFull(sessionID []byte) []byte {
	players, maxPlayers := r.playerFields()

	var buf bytes.Buffer
	buf.WriteByte(0)
	buf.Write(sessionID)
	buf.WriteString("splitnum\x00\x80\x00")

	buf.WriteString(fmt.Sprintf("hostname\x00%s\x00", r.MOTD))
	buf.WriteString("gametype\x00SMP\x00")
	buf.WriteString("game_id\x00MINECRAFT\x00")
	buf.WriteString(fmt.Sprintf("version\x00%s\x00", r.ServerName))
	buf.WriteString(fmt.Sprintf("plugins\x00%s\x00", r.ServerName))
	buf.WriteString("map\x00world\x00")
	buf.WriteString("numplayers\x00" + players + "\x00")
	buf.WriteString("maxplayers\x00" + maxPlayers + "\x00")
	buf.WriteString(fmt.Sprintf("hostport\x00%d\x00", r.HostPort))
	buf.WriteString(fmt.Sprintf("hostip\x00%s\x00", outboundIPv4()))
	buf.WriteByte(0)

	buf.WriteString("\x01player_\x00\x00")
	buf.WriteString("\x00")

	return buf.Bytes()
}

// playerFields reports live counts once ONLINE, else the teacher's
// hardcoded "hibernating" values (SPEC_FULL.md "Open questions resolved").
func (r *Responder) playerFields() (players, maxPlayers string) {
	if r.Source == nil || r.Source.Status() != backend.Online {
		return "0", "20"
	}
	return strconv.Itoa(r.Source.PlayerCount()), "20"
}

func (r *Responder) genChallenge() uint32 {
	c := uint32(rand.Int31n(9_999_999-1_000_000+1) + 1_000_000)
	r.challenges.SetDefault(strconv.FormatUint(uint64(c), 10), struct{}{})
	return c
}

func (r *Responder) validChallenge(c uint32) bool {
	_, found := r.challenges.Get(strconv.FormatUint(uint64(c), 10))
	return found
}

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// outboundIPv4 finds the local address used to reach the network, the same
// trick the teacher's lib/utility.GetOutboundIP4 uses (a dial to a public
// address that need not actually connect, since UDP dial is connectionless
// local-route resolution).
func outboundIPv4() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "0.0.0.0"
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}
