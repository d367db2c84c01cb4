package regolith

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/internal/channel"
	"github.com/InnovativeDigitalSolution/NASA-ow-simulator/pkg/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedOpening(p core.Position3D) OpeningLocator {
	return func() (core.Position3D, bool) { return p, true }
}

func newTestAccumulator(threshold float64, opening OpeningLocator) (*Accumulator, *channel.Buffered[SpawnRequest]) {
	requests := channel.NewBuffered[SpawnRequest](16)
	acc := NewAccumulator(AccumulatorConfig{
		SpawnThreshold:  threshold,
		DefaultPushback: core.Position3D{X: -1},
	}, opening, requests, discardLogger())
	return acc, requests
}

func drain(ch *channel.Buffered[SpawnRequest]) []SpawnRequest {
	var out []SpawnRequest
	for ch.Len() > 0 {
		out = append(out, <-ch.Receive())
	}
	return out
}

func TestAccumulator_ThresholdCrossing(t *testing.T) {
	// Threshold 10; deltas 3, 4, 5 spawn on the third event (12 >= 10),
	// then a delta of 2 leaves the total at 2 with no spawn.
	acc, requests := newTestAccumulator(10.0, fixedOpening(core.Position3D{}))

	for _, delta := range []float64{3, 4} {
		require.NoError(t, acc.OnTerrainModified(core.TerrainModified{
			VolumeDelta: delta,
			Center:      core.Position3D{X: 1},
		}))
		assert.Zero(t, requests.Len())
	}

	require.NoError(t, acc.OnTerrainModified(core.TerrainModified{
		VolumeDelta: 5,
		Center:      core.Position3D{X: 1},
	}))

	reqs := drain(requests)
	require.Len(t, reqs, 1)
	assert.InDelta(t, 12.0, reqs[0].VolumeDisplaced, 1e-12)
	assert.Zero(t, acc.VolumeDisplaced())

	require.NoError(t, acc.OnTerrainModified(core.TerrainModified{
		VolumeDelta: 2,
		Center:      core.Position3D{X: 1},
	}))
	assert.Zero(t, requests.Len())
	assert.InDelta(t, 2.0, acc.VolumeDisplaced(), 1e-12)
}

func TestAccumulator_SingleSpawnPerEvent(t *testing.T) {
	// A delta several times the threshold still yields exactly one spawn.
	acc, requests := newTestAccumulator(1.0, fixedOpening(core.Position3D{}))

	require.NoError(t, acc.OnTerrainModified(core.TerrainModified{
		VolumeDelta: 7.5,
		Center:      core.Position3D{Y: 2},
	}))

	assert.Len(t, drain(requests), 1)
	assert.Zero(t, acc.VolumeDisplaced())
}

func TestAccumulator_NegativeDeltaRejected(t *testing.T) {
	acc, requests := newTestAccumulator(10.0, fixedOpening(core.Position3D{}))

	require.NoError(t, acc.OnTerrainModified(core.TerrainModified{
		VolumeDelta: 4,
		Center:      core.Position3D{X: 1},
	}))

	err := acc.OnTerrainModified(core.TerrainModified{VolumeDelta: -1})
	assert.ErrorIs(t, err, ErrNegativeVolume)
	assert.InDelta(t, 4.0, acc.VolumeDisplaced(), 1e-12)
	assert.Zero(t, requests.Len())
}

func TestAccumulator_DirectionFromOpeningToCenter(t *testing.T) {
	opening := core.Position3D{X: 1, Y: 1, Z: 0}
	acc, requests := newTestAccumulator(1.0, fixedOpening(opening))

	require.NoError(t, acc.OnTerrainModified(core.TerrainModified{
		VolumeDelta: 2,
		Center:      core.Position3D{X: 4, Y: 5, Z: 0},
	}))

	reqs := drain(requests)
	require.Len(t, reqs, 1)
	dir := reqs[0].Direction

	// (3,4,0) normalized
	assert.InDelta(t, 0.6, dir.X, 1e-9)
	assert.InDelta(t, 0.8, dir.Y, 1e-9)
	assert.InDelta(t, 0.0, dir.Z, 1e-9)

	length := math.Sqrt(dir.X*dir.X + dir.Y*dir.Y + dir.Z*dir.Z)
	assert.InDelta(t, 1.0, length, 1e-9)
}

func TestAccumulator_DegenerateDirectionUsesDefault(t *testing.T) {
	opening := core.Position3D{X: 2, Y: 3, Z: 1}
	acc, requests := newTestAccumulator(1.0, fixedOpening(opening))

	// Modification center exactly at the opening.
	require.NoError(t, acc.OnTerrainModified(core.TerrainModified{
		VolumeDelta: 2,
		Center:      opening,
	}))

	reqs := drain(requests)
	require.Len(t, reqs, 1)
	assert.Equal(t, core.Position3D{X: -1}, reqs[0].Direction)
}

func TestAccumulator_UnknownOpeningUsesDefault(t *testing.T) {
	acc, requests := newTestAccumulator(1.0, func() (core.Position3D, bool) {
		return core.Position3D{}, false
	})

	require.NoError(t, acc.OnTerrainModified(core.TerrainModified{
		VolumeDelta: 2,
		Center:      core.Position3D{X: 9},
	}))

	reqs := drain(requests)
	require.Len(t, reqs, 1)
	assert.Equal(t, core.Position3D{X: -1}, reqs[0].Direction)
}

func TestAccumulator_ZeroDeltaAccumulates(t *testing.T) {
	acc, requests := newTestAccumulator(10.0, fixedOpening(core.Position3D{}))

	require.NoError(t, acc.OnTerrainModified(core.TerrainModified{VolumeDelta: 0}))
	assert.Zero(t, acc.VolumeDisplaced())
	assert.Zero(t, requests.Len())
}
