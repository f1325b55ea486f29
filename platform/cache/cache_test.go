package cache

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote stores JSON strings the way the redis tier does.
type fakeRemote struct {
	mu   sync.Mutex
	data map[string]string
	fail bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: map[string]string{}}
}

func (f *fakeRemote) GetCache(key string) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok
}

func (f *fakeRemote) SetCache(key string, value interface{}, _ time.Duration) error {
	if f.fail {
		return errors.New("remote down")
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(b)
	return nil
}

func (f *fakeRemote) DelCache(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

type settings struct {
	Model string `json:"model"`
	Max   int    `json:"max"`
}

func TestL1OnlyRoundTrip(t *testing.T) {
	cs := NewCacheService(InitL1Cache(), nil)
	tc := NewTypedCache[settings](cs)

	require.NoError(t, tc.Set("k", settings{Model: "m", Max: 3}, time.Minute))
	got, ok, err := tc.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, settings{Model: "m", Max: 3}, got)

	require.NoError(t, tc.Delete("k"))
	_, ok, err = tc.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoteValuesAreDecoded(t *testing.T) {
	l1 := InitL1Cache()
	remote := newFakeRemote()
	cs := NewCacheService(l1, remote)
	tc := NewTypedCache[settings](cs)

	require.NoError(t, tc.Set("k", settings{Model: "m", Max: 7}, time.Minute))
	l1.Del("k")

	got, ok, err := tc.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, settings{Model: "m", Max: 7}, got)
}

func TestRemoteFailureSkipsL1(t *testing.T) {
	remote := newFakeRemote()
	remote.fail = true
	cs := NewCacheService(InitL1Cache(), remote)

	assert.Error(t, cs.SetCache("k", 1, time.Minute))
	_, ok := cs.GetCache("k")
	assert.False(t, ok)
}

func TestCorruptRemoteValue(t *testing.T) {
	remote := newFakeRemote()
	remote.data["k"] = "{not json"
	tc := NewTypedCache[settings](NewCacheService(InitL1Cache(), remote))

	_, ok, err := tc.Get("k")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestGetOrLoadCallsLoaderOnce(t *testing.T) {
	tc := NewTypedCache[settings](NewCacheService(InitL1Cache(), nil))
	var calls int32
	load := func() (settings, error) {
		atomic.AddInt32(&calls, 1)
		return settings{Model: "loaded"}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := tc.GetOrLoad("k", time.Minute, load)
		require.NoError(t, err)
		assert.Equal(t, "loaded", got.Model)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	tc := NewTypedCache[settings](NewCacheService(InitL1Cache(), nil))
	boom := errors.New("boom")

	_, err := tc.GetOrLoad("k", time.Minute, func() (settings, error) { return settings{}, boom })
	assert.ErrorIs(t, err, boom)

	got, err := tc.GetOrLoad("k", time.Minute, func() (settings, error) { return settings{Max: 1}, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, got.Max)
}
