// Package respond implements C4, the response synthesizer (spec.md §4.3):
// building the TEXT loadscreen message shown during STARTING and the INFO
// server-list-ping payload shown while OFFLINE/STARTING, plus the
// version/protocol learning cache fed by live handshakes with the real
// backend.
//
// Grounded on original_source/py-version/minecraft-server-hibernation.py's
// buildMessage/mountHeader (header framing, legacy-colour substitution) and
// on the teacher's lib/conn packet helpers for Go-side byte-slice
// construction. The learned version/protocol cache uses
// github.com/patrickmn/go-cache the way internal/query uses it for query
// challenges; the learned entry is stored without expiration, so it stays
// until a later backend buffer replaces it.
package respond

import (
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	textConst = 0
	infoConst = 11264
)

// Synthesizer builds TEXT/INFO packets and tracks the live-learned server
// version and protocol number (spec.md §4.3 "Version/protocol learning").
type Synthesizer struct {
	learned *cache.Cache

	fallbackVersionName string
	fallbackProtocol    int
	favicon             string // data:image/png;base64,... or ""
}

const learnedKey = "version"

type learnedVersion struct {
	name     string
	protocol int
}

// New constructs a Synthesizer seeded with configured fallback version
// fields (spec.md §6 serverVersionName/serverProtocol), used until a live
// handshake teaches it better ones.
func New(fallbackVersionName string, fallbackProtocol int, favicon string) *Synthesizer {
	return &Synthesizer{
		learned:              cache.New(cache.NoExpiration, time.Hour),
		fallbackVersionName: fallbackVersionName,
		fallbackProtocol:    fallbackProtocol,
		favicon:              favicon,
	}
}

// LearnFromBackendBuffer scans the first server-to-client buffer of a
// bridged session for the version/protocol substrings (spec.md §4.3) and
// remembers them for future INFO responses, returning whether a pair was
// found (even one equal to the pair already held) so the caller
// (internal/dispatch) can trigger config.Store.UpdateServerVersion.
func (s *Synthesizer) LearnFromBackendBuffer(buf []byte) (name string, protocol int, learned bool) {
	text := string(buf)
	const nameMarker = `"version":{"name":"`
	const protoMarker = `,"protocol":`

	ni := strings.Index(text, nameMarker)
	if ni < 0 {
		return "", 0, false
	}
	nameStart := ni + len(nameMarker)
	nameEnd := strings.IndexByte(text[nameStart:], '"')
	if nameEnd < 0 {
		return "", 0, false
	}
	name = text[nameStart : nameStart+nameEnd]

	pi := strings.Index(text, protoMarker)
	if pi < 0 {
		return "", 0, false
	}
	protoStart := pi + len(protoMarker)
	rest := text[protoStart:]
	end := strings.IndexAny(rest, ",}")
	if end < 0 {
		return "", 0, false
	}
	protocol, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return "", 0, false
	}

	s.learned.Set(learnedKey, learnedVersion{name: name, protocol: protocol}, cache.NoExpiration)
	return name, protocol, true
}

// versionProtocol returns the learned pair if present, else the configured
// fallback.
func (s *Synthesizer) versionProtocol() (string, int) {
	if v, ok := s.learned.Get(learnedKey); ok {
		lv := v.(learnedVersion)
		return lv.name, lv.protocol
	}
	return s.fallbackVersionName, s.fallbackProtocol
}

// Text builds the loadscreen TEXT packet (spec.md §4.3).
func Text(message string) []byte {
	payload := `{"text":"` + jsonEscape(message) + `"}`
	return mountHeader([]byte(payload), textConst)
}

// Info builds the server-list-ping INFO packet (spec.md §4.3).
func (s *Synthesizer) Info(description string) []byte {
	adapted := adaptLegacyColors(description)
	name, protocol := s.versionProtocol()

	payload := `{"description":{"text":"` + jsonEscape(adapted) + `"},` +
		`"version":{"name":"` + jsonEscape(name) + `","protocol":` + strconv.Itoa(protocol) + `},` +
		`"favicon":"` + s.favicon + `"}`

	return mountHeader([]byte(payload), infoConst)
}

// adaptLegacyColors performs the exact substitution order spec.md §4.3 and
// the original buildMessage require: "\n" -> "&r\\n" first, then "&" ->
// 0xA7. Doing "\n" first means the "&r" it inserts is rewritten too, so
// each line break becomes the 0xA7 "r" reset code followed by "\n".
func adaptLegacyColors(s string) string {
	s = strings.ReplaceAll(s, "\n", "&r\\n")
	return strings.ReplaceAll(s, "&", "\xA7")
}

// jsonEscape escapes the characters that would otherwise break the
// hand-built JSON string literal. Full JSON marshaling is avoided here to
// match the teacher/original's string-concatenation construction, but
// quotes and backslashes introduced by player-supplied text must still be
// neutralized.
func jsonEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// mountHeader implements the exact header scheme of spec.md §4.3 / the
// original mountHeader: header3 (length of payload+const), header2 (single
// zero byte), header1 (length of header2+header3+payload+const), each
// prepended in turn, so the packet reads header1, header2, header3, payload.
func mountHeader(payload []byte, constant int) []byte {
	header3 := encodeVarInt(len(payload) + constant)
	inner := append(header3, payload...)

	header2 := []byte{0x00}
	inner = append(header2, inner...)

	header1 := encodeVarInt(len(inner) + constant)
	return append(header1, inner...)
}
