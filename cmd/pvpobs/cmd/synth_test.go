package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/pvpobserver/pkg/engine"
	"github.com/ssargent/pvpobserver/pkg/loader"
	"github.com/ssargent/pvpobserver/pkg/match"
)

func synthStore(t *testing.T, opts synthOptions) []byte {
	t.Helper()
	if opts.Start.IsZero() {
		opts.Start = time.Date(2025, 12, 7, 6, 0, 0, 0, time.UTC)
	}
	store, err := buildSyntheticStore(opts)
	require.NoError(t, err)
	return store
}

func TestBuildSyntheticStore_Recovers(t *testing.T) {
	store := synthStore(t, synthOptions{Matches: 12, Players: 8, Seed: 7})

	res := engine.New(engine.Config{}).Parse(store)
	assert.True(t, res.Header.Recognized)
	assert.False(t, res.Stats.BinaryFallback)

	matches := res.Matches()
	require.Len(t, matches, 12)
	assert.Equal(t, 12*8, res.Stats.Players)

	start := time.Date(2025, 12, 7, 6, 0, 0, 0, time.UTC)
	for i, m := range matches {
		assert.True(t, m.StartTime.Equal(start.Add(time.Duration(i)*17*time.Minute)), "match %d", i)
		assert.Equal(t, match.SourceDocument, m.Source)
		for _, p := range m.Players {
			assert.NotEmpty(t, p.Name)
			assert.NotEmpty(t, p.Server)
			assert.GreaterOrEqual(t, p.Damage, int64(200000))
		}
	}
}

func TestBuildSyntheticStore_Deterministic(t *testing.T) {
	a := synthStore(t, synthOptions{Matches: 5, Players: 4, Seed: 3})
	b := synthStore(t, synthOptions{Matches: 5, Players: 4, Seed: 3})
	c := synthStore(t, synthOptions{Matches: 5, Players: 4, Seed: 4})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestBuildSyntheticStore_Corrupt(t *testing.T) {
	store := synthStore(t, synthOptions{Matches: 10, Players: 6, Seed: 11, Corrupt: 3})

	var res *engine.Result
	require.NotPanics(t, func() {
		res = engine.New(engine.Config{}).Parse(store)
	})
	assert.NotEmpty(t, res.Matches())
	assert.LessOrEqual(t, len(res.Matches()), 10)
}

func TestBuildSyntheticStore_InvalidOptions(t *testing.T) {
	for _, opts := range []synthOptions{
		{Matches: -1, Players: 4},
		{Matches: 1, Players: 0},
		{Matches: 1, Players: 73},
	} {
		_, err := buildSyntheticStore(opts)
		assert.Error(t, err, "%+v", opts)
	}
}

func TestCompressStore_RoundTrip(t *testing.T) {
	store := synthStore(t, synthOptions{Matches: 3, Players: 4, Seed: 1})

	for _, kind := range []loader.Compression{
		loader.CompressionGzip,
		loader.CompressionZstd,
		loader.CompressionLZ4,
		loader.CompressionSnappy,
		loader.CompressionS2,
	} {
		t.Run(string(kind), func(t *testing.T) {
			packed, err := compressStore(store, kind)
			require.NoError(t, err)
			assert.NotEqual(t, store, packed)

			out, detected, err := loader.Decompress(packed, 1<<26)
			require.NoError(t, err)
			assert.Equal(t, kind, detected)
			assert.Equal(t, store, out)
		})
	}

	same, err := compressStore(store, loader.CompressionNone)
	require.NoError(t, err)
	assert.Equal(t, store, same)

	_, err = compressStore(store, "brotli")
	assert.Error(t, err)
}
