package respond

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVarIntRoundTrip(t *testing.T) {
	cases := []struct {
		n        int
		wantLen  int
	}{
		{0, 1},
		{1, 1},
		{254, 1},
		{255, 1},
		{255 * 255, 2},
	}
	for _, c := range cases {
		got := encodeVarInt(c.n)
		assert.Len(t, got, c.wantLen, "encoding %d", c.n)

		// decode back: little-endian sum of byte[i] * 256^i
		var v int
		for i, b := range got {
			v += int(b) << (8 * i)
		}
		assert.Equal(t, c.n, v)
	}
}

func TestTextPacketFraming(t *testing.T) {
	pkt := Text("hello")
	require.NotEmpty(t, pkt)

	// header2 (the 0x00 packet id byte) must appear right after header1.
	// header1 is 1 byte for small messages, so pkt[1] should be 0x00.
	assert.Equal(t, byte(0x00), pkt[1])
}

func TestAdaptLegacyColors(t *testing.T) {
	out := adaptLegacyColors("line one\nline two & more")
	assert.Contains(t, out, "\xA7r\\n")
	assert.Contains(t, out, "\xA7")
	assert.NotContains(t, out, "&\n")
}

func TestLearnFromBackendBuffer(t *testing.T) {
	s := New("1.20.4", 765, "")

	buf := []byte(`{"description":{"text":"hi"},"players":{"max":20,"online":0},"version":{"name":"1.20.1","protocol":763},"favicon":""}`)
	name, protocol, learned := s.LearnFromBackendBuffer(buf)

	require.True(t, learned)
	assert.Equal(t, "1.20.1", name)
	assert.Equal(t, 763, protocol)

	gotName, gotProtocol := s.versionProtocol()
	assert.Equal(t, "1.20.1", gotName)
	assert.Equal(t, 763, gotProtocol)
}

func TestLearnFromBackendBufferNoMatch(t *testing.T) {
	s := New("1.20.4", 765, "")
	_, _, learned := s.LearnFromBackendBuffer([]byte("garbage"))
	assert.False(t, learned)

	name, protocol := s.versionProtocol()
	assert.Equal(t, "1.20.4", name)
	assert.Equal(t, 765, protocol)
}

func TestInfoUsesFallbackUntilLearned(t *testing.T) {
	s := New("1.20.4", 765, "")
	pkt := s.Info("Server status:\nHIBERNATING")
	assert.NotEmpty(t, pkt)
	assert.Contains(t, string(pkt), `"version":{"name":"1.20.4","protocol":765}`)
}
