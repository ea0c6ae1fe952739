package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gekware/minecraft-server-hibernation/internal/backend"
)

type stubSource struct {
	status  backend.Status
	players int
}

func (s stubSource) Status() backend.Status { return s.status }
func (s stubSource) PlayerCount() int        { return s.players }

func TestChallengeRoundTrip(t *testing.T) {
	r := New("127.0.0.1", 0, 25565, "msh", "1.20.4", stubSource{status: backend.Offline})

	c := r.genChallenge()
	assert.True(t, r.validChallenge(c))
	assert.False(t, r.validChallenge(c+1))
}

func TestPlayerFieldsHibernating(t *testing.T) {
	r := New("127.0.0.1", 0, 25565, "msh", "1.20.4", stubSource{status: backend.Offline, players: 4})

	players, max := r.playerFields()
	assert.Equal(t, "0", players)
	assert.Equal(t, "20", max)
}

func TestPlayerFieldsOnlineReportsLiveCount(t *testing.T) {
	r := New("127.0.0.1", 0, 25565, "msh", "1.20.4", stubSource{status: backend.Online, players: 4})

	players, _ := r.playerFields()
	assert.Equal(t, "4", players)
}

func TestStatRespBaseIncludesSessionID(t *testing.T) {
	r := New("127.0.0.1", 0, 25565, "msh", "1.20.4", stubSource{status: backend.Offline})

	resp := r.statRespBase([]byte{1, 2, 3, 4})
	assert.Equal(t, byte(0), resp[0])
	assert.Equal(t, []byte{1, 2, 3, 4}, resp[1:5])
}
