package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/glovebox/server/internal/gameplay"
)

func newEngine(t *testing.T, script string) (*Engine, error) {
	t.Helper()
	tuning := gameplay.DefaultTuning()
	path := ""
	if script != "" {
		path = filepath.Join(t.TempDir(), "hit.lua")
		require.NoError(t, os.WriteFile(path, []byte(script), 0o644))
	}
	e, err := NewEngine(path, &tuning, zaptest.NewLogger(t))
	if err == nil {
		t.Cleanup(e.Close)
	}
	return e, err
}

func TestBuiltinScriptMatchesStandardRules(t *testing.T) {
	e, err := newEngine(t, "")
	require.NoError(t, err)
	tuning := gameplay.DefaultTuning()
	std := gameplay.StandardRules{Tuning: &tuning}

	for _, d := range []float32{0, 30, 95.5, 240} {
		want, _ := std.PlayerHit(d)
		got, err := e.PlayerHit(d)
		require.NoError(t, err)
		assert.InDelta(t, want.KnockbackMod, got.KnockbackMod, 1e-5, "damage %v", d)
		assert.Equal(t, want.Damage, got.Damage)
	}
}

func TestCustomScript(t *testing.T) {
	e, err := newEngine(t, `
function calc_player_hit(d)
    return { knockback = math.min(10, 1 + d / 10), damage = tuning.glove_damage / 2 }
end`)
	require.NoError(t, err)

	got, err := e.PlayerHit(200)
	require.NoError(t, err)
	assert.Equal(t, gameplay.Hit{KnockbackMod: 10, Damage: 15}, got)
}

func TestScriptSandbox(t *testing.T) {
	e, err := newEngine(t, `
function calc_player_hit(d)
    return { knockback = (math.random == nil and os == nil and io == nil) and 1 or 0, damage = 0 }
end`)
	require.NoError(t, err)
	got, err := e.PlayerHit(0)
	require.NoError(t, err)
	assert.Equal(t, float32(1), got.KnockbackMod)
}

func TestBrokenScripts(t *testing.T) {
	_, err := newEngine(t, "function oops(")
	assert.Error(t, err, "syntax error")

	_, err = newEngine(t, "x = 1")
	assert.Error(t, err, "missing function")

	calls := map[string]string{
		"non-table":       "function calc_player_hit(d) return 3 end",
		"runtime error":   "function calc_player_hit(d) error('nope') end",
		"negative damage": "function calc_player_hit(d) return { knockback = 1, damage = -1 } end",
		"infinite":        "function calc_player_hit(d) return { knockback = 1/0, damage = 1 } end",
	}
	for name, script := range calls {
		e, err := newEngine(t, script)
		require.NoError(t, err, name)
		_, err = e.PlayerHit(10)
		assert.Error(t, err, name)
	}
}
