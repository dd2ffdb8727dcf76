package spectate

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/glovebox/server/internal/gameplay"
	"github.com/glovebox/server/internal/match"
)

func newMatch(t *testing.T) *match.GameManager {
	t.Helper()
	tuning := gameplay.DefaultTuning()
	gm := match.NewGameManager(zaptest.NewLogger(t), &tuning, nil)
	gm.Spawn(0)
	gm.Spawn(1)
	return gm
}

func countKinds(s Snapshot) map[string]int {
	out := make(map[string]int)
	for _, e := range s.Entities {
		out[e.Kind]++
	}
	return out
}

func TestCapture(t *testing.T) {
	gm := newMatch(t)

	s := Capture(gm)
	assert.Nil(t, s.Winner)
	assert.Equal(t, map[string]int{"player": 2, "glove": 4}, countKinds(s))

	pos, rot := gm.Tuning().SpawnPoint(1)
	for _, e := range s.Entities {
		if e.Kind == "player" && e.Player == 1 {
			assert.Equal(t, pos.X, e.X)
			assert.Equal(t, pos.Y, e.Y)
			assert.Equal(t, rot, e.Rotation)
		}
	}

	gm.WinGame(1)
	s = Capture(gm)
	require.NotNil(t, s.Winner)
	assert.Equal(t, 1, *s.Winner)
	assert.Equal(t, map[string]int{"player": 2, "glove": 4, "effect": 2}, countKinds(s))

	effects := map[string]bool{}
	for _, e := range s.Entities {
		if e.Kind == "effect" {
			effects[e.Effect] = true
		}
	}
	assert.Equal(t, map[string]bool{"trophy": true, "skull": true}, effects)
}

func TestHubPublishesSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	gm := newMatch(t)
	require.NoError(t, hub.Publish(Capture(gm)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)

	var got Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, Capture(gm), got)
}

func TestHubForgetsClosedSpectators(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	// Publishing with nobody listening is fine.
	assert.NoError(t, hub.Publish(Snapshot{Frame: 3}))
}

func TestHubCloseDisconnectsSpectators(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	hub := NewHub(zaptest.NewLogger(t))
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.ClientCount())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
