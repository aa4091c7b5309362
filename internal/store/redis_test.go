package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/marine-conditions/internal/weather"
)

func newTestTier(t *testing.T) (*RedisTier, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	tier, err := NewRedisTierFromURL(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tier.Close() })
	return tier, mr
}

func TestRedisTierRoundTrip(t *testing.T) {
	tier, mr := newTestTier(t)
	ctx := context.Background()

	sunrise := "2026-10-19 06:39 NZDT"
	in := testResult("Piha")
	in.Days[0].Bucket.Sunrise = &sunrise
	in.Days[0].Bucket.HighTides = []weather.TideEvent{{Time: "2026-10-19 09:15 NZDT", HeightM: 2.35}}
	in.Metadata.FailedCalls = []string{"swell-hourly"}

	tier.Save(ctx, "k1", in, time.Minute)
	assert.True(t, mr.Exists("forecast:k1"))
	assert.Equal(t, time.Minute, mr.TTL("forecast:k1"))

	out, remaining, ok := tier.Load(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, time.Minute, remaining)
	assert.Equal(t, "Piha", out.DisplayName)
	require.NotNil(t, out.Days[0].Bucket.Sunrise)
	assert.Equal(t, sunrise, *out.Days[0].Bucket.Sunrise)
	assert.Equal(t, 2.35, out.Days[0].Bucket.HighTides[0].HeightM)
	assert.Equal(t, []string{"swell-hourly"}, out.Metadata.FailedCalls)
}

func TestRedisTierMiss(t *testing.T) {
	tier, mr := newTestTier(t)

	_, _, ok := tier.Load(context.Background(), "absent")
	assert.False(t, ok)

	require.NoError(t, mr.Set("forecast:garbage", "not gob"))
	mr.SetTTL("forecast:garbage", time.Minute)
	_, _, ok = tier.Load(context.Background(), "garbage")
	assert.False(t, ok)
}

func TestRedisTierExpires(t *testing.T) {
	tier, mr := newTestTier(t)
	ctx := context.Background()

	tier.Save(ctx, "k1", testResult("Piha"), time.Minute)
	mr.FastForward(time.Minute)

	_, _, ok := tier.Load(ctx, "k1")
	assert.False(t, ok)
}

func TestForecastCacheUsesTier(t *testing.T) {
	tier, _ := newTestTier(t)
	ctx := context.Background()

	// Another instance computed and shared the result.
	other := NewForecastCache(time.Minute, 0).WithTier(tier)
	_, err := other.GetOrCompute(ctx, testKey(-36.95), func(context.Context) (*weather.ForecastResult, error) {
		return testResult("Piha"), nil
	})
	require.NoError(t, err)

	c := NewForecastCache(time.Minute, 0).WithTier(tier)
	res, err := c.GetOrCompute(ctx, testKey(-36.95), func(context.Context) (*weather.ForecastResult, error) {
		t.Error("computed despite a shared entry")
		return nil, errors.New("unexpected computation")
	})
	require.NoError(t, err)
	assert.Equal(t, "Piha", res.DisplayName)
	assert.EqualValues(t, 0, c.Stats().Computations)
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestNewRedisTierFromURLErrors(t *testing.T) {
	_, err := NewRedisTierFromURL(context.Background(), "not-a-url")
	assert.Error(t, err)

	_, err = NewRedisTierFromURL(context.Background(), "redis://127.0.0.1:1")
	assert.Error(t, err)
}

func TestTierEntryKeepsItsAge(t *testing.T) {
	tier, mr := newTestTier(t)
	ctx := context.Background()

	a, _ := newTestCache(time.Minute, 0)
	a.WithTier(tier)
	_, err := a.GetOrCompute(ctx, testKey(-36.95), func(context.Context) (*weather.ForecastResult, error) {
		return testResult("Piha"), nil
	})
	require.NoError(t, err)

	// A second instance loads the shared entry one second before it expires.
	mr.FastForward(59 * time.Second)
	b, clockB := newTestCache(time.Minute, 0)
	clockB.Advance(59 * time.Second)
	b.WithTier(tier)

	var computed int
	compute := func(context.Context) (*weather.ForecastResult, error) {
		computed++
		return testResult("Piha, recomputed"), nil
	}

	res, err := b.GetOrCompute(ctx, testKey(-36.95), compute)
	require.NoError(t, err)
	assert.Equal(t, "Piha", res.DisplayName)
	assert.Equal(t, 0, computed)

	mr.FastForward(time.Second)
	clockB.Advance(time.Second)

	_, err = b.Get(testKey(-36.95).String())
	assert.ErrorIs(t, err, ErrNotFound)

	res, err = b.GetOrCompute(ctx, testKey(-36.95), compute)
	require.NoError(t, err)
	assert.Equal(t, "Piha, recomputed", res.DisplayName)
	assert.Equal(t, 1, computed)
}
