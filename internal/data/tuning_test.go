package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glovebox/server/internal/core/geom"
	"github.com/glovebox/server/internal/gameplay"
)

func TestShippedTuningMatchesDefaults(t *testing.T) {
	got, err := LoadTuning("../../data/yaml/tuning.yaml")
	require.NoError(t, err)
	assert.Equal(t, gameplay.DefaultTuning(), *got)
}

func TestParseTuningOverlays(t *testing.T) {
	got, err := ParseTuning([]byte(`
player_max_speed: 6
spawn_positions:
  - {x: -1, y: 0}
  - {x: 1, y: 0}
`))
	require.NoError(t, err)
	assert.Equal(t, float32(6), got.PlayerMaxSpeed)
	assert.Equal(t, geom.V(1, 0), got.SpawnPositions[1])
	assert.Equal(t, gameplay.DefaultTuning().GloveDamage, got.GloveDamage)
}

func TestParseTuningEmptyDocument(t *testing.T) {
	got, err := ParseTuning(nil)
	require.NoError(t, err)
	assert.Equal(t, gameplay.DefaultTuning(), *got)
}

func TestParseTuningRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":        "player_max_sped: 6\n",
		"ideal beyond max":   "glove_ideal_dist: 2\n",
		"zero period":        "fixed_period: 0\n",
		"window over buffer": "max_inputs: 300\n",
		"not a mapping":      "- 1\n",
	}
	for name, doc := range tests {
		_, err := ParseTuning([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadTuningMissingFile(t *testing.T) {
	_, err := LoadTuning("does-not-exist.yaml")
	assert.Error(t, err)
}
