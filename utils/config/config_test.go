package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/gridroute-sim/utils/config"
	"gopkg.in/yaml.v2"
)

const sample = `
input:
  uri: ""
  map:
    db: ""
    col: ""
    file: data/map.yaml
control:
  step:
    start: 0
    total: 100
    interval: 0.1
  route:
    step: 8
    avoid_walls: false
output:
  event_db: out/events.db
`

func TestRuntimeConfigDefaults(t *testing.T) {
	rc := config.NewRuntimeConfig(config.Config{})
	assert.Equal(t, 15, rc.C.Route.Step)
	assert.Equal(t, 1, rc.C.Route.SnapRadius)
	assert.InDelta(t, 0.15, rc.C.Route.WalkSpeed, 1e-9)
	assert.True(t, rc.AvoidWalls())
}

func TestConfigUnmarshalStrict(t *testing.T) {
	var c config.Config
	require.NoError(t, yaml.UnmarshalStrict([]byte(sample), &c))
	assert.Equal(t, "data/map.yaml", c.Input.Map.File)
	assert.Nil(t, c.Input.Agent)
	assert.Equal(t, int32(100), c.Control.Step.Total)
	assert.Equal(t, "out/events.db", c.Output.EventDB)

	rc := config.NewRuntimeConfig(c)
	assert.Equal(t, 8, rc.C.Route.Step)
	assert.False(t, rc.AvoidWalls())
}

func TestConfigUnknownField(t *testing.T) {
	var c config.Config
	err := yaml.UnmarshalStrict([]byte("control:\n  unknown: 1\n"), &c)
	assert.Error(t, err)
}
