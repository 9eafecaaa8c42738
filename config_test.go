package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ttpr0/go-isometrics/graph"
)

func TestReadConfig(t *testing.T) {
	config, err := ReadConfig("./config.yaml")
	require.NoError(t, err)

	assert.Len(t, config.Cities, 18)
	assert.Equal(t, []float64{15}, config.TravelTimes)
	assert.Equal(t, []TimeWindow{{Start: 25200, End: 28800}}, config.TimeWindows)
	assert.Equal(t, OVERPASS, config.Source)
	assert.Equal(t, 180*time.Second, config.RequestTimeout)
	assert.Contains(t, config.Modes, graph.WALK)
	assert.Len(t, config.Exclusions, 9)

	dresden := config.Cities["dresden"]
	assert.Greater(t, dresden.Area, 0.0)
	bound := dresden.Bound()
	assert.Less(t, bound.Min[0], bound.Max[0])
	assert.Less(t, bound.Min[1], bound.Max[1])
	assert.Equal(t, "dresden", dresden.Region("dresden").Name)

	names, err := config.SelectCities(nil)
	require.NoError(t, err)
	assert.Equal(t, 18, names.Length())
	assert.IsNonDecreasing(t, []string(names))
}

func _WriteConfig(t *testing.T, content string) string {
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))
	return file
}

func TestReadConfigDefaults(t *testing.T) {
	file := _WriteConfig(t, `
source: pbf
cities:
  leipzig:
    area: 297
    bounding-box: [12.23, 51.23, 12.54, 51.45]
`)
	config, err := ReadConfig(file)
	require.NoError(t, err)
	assert.Equal(t, PBF, config.Source)
	assert.Equal(t, 100.0, config.PointsPerSqkm)
	assert.Equal(t, DefaultConfig().Modes, config.Modes)
	assert.True(t, config.RequireBoundary)
}

func TestReadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"inverted bbox", `
cities:
  a:
    area: 1
    bounding-box: [13.5, 52.3, 13.0, 52.6]
`},
		{"bbox out of range", `
cities:
  a:
    area: 1
    bounding-box: [13.0, 52.3, 190.0, 52.6]
`},
		{"inverted window", `
time-windows:
  - start: 28800
    end: 25200
cities:
  a:
    area: 1
    bounding-box: [13.0, 52.3, 13.5, 52.6]
`},
		{"negative travel time", `
travel-times: [-5]
cities:
  a:
    area: 1
    bounding-box: [13.0, 52.3, 13.5, 52.6]
`},
		{"unknown mode", `
modes: [walk, ferry]
cities:
  a:
    area: 1
    bounding-box: [13.0, 52.3, 13.5, 52.6]
`},
		{"access mode", `
modes: [walk, access]
cities:
  a:
    area: 1
    bounding-box: [13.0, 52.3, 13.5, 52.6]
`},
		{"unknown source", `
source: ftp
cities:
  a:
    area: 1
    bounding-box: [13.0, 52.3, 13.5, 52.6]
`},
		{"no cities", `
points-per-sqkm: 10
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadConfig(_WriteConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSelectCities(t *testing.T) {
	config := DefaultConfig()
	config.Cities["b"] = CityConfig{Area: 1}
	config.Cities["a"] = CityConfig{Area: 1}

	names, err := config.SelectCities([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, []string(names))

	_, err = config.SelectCities([]string{"c"})
	assert.Error(t, err)
}
