package redis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/testutil"
	"github.com/turtacn/ReactEA/pkg/errors"
)

type hitCounter struct {
	mu         sync.Mutex
	hits, miss int
}

func (h *hitCounter) RecordCacheLookup(hit bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if hit {
		h.hits++
	} else {
		h.miss++
	}
}

func countingReactor(calls *int32, products []string, err error) chem.ReactorFunc {
	return func(context.Context, []*chem.Compound, *chem.ReactionRule) ([]string, error) {
		atomic.AddInt32(calls, 1)
		return products, err
	}
}

func TestCachingReactor_CachesProducts(t *testing.T) {
	client, _ := newTestClient(t)
	var calls int32
	rec := &hitCounter{}
	r := NewCachingReactor(countingReactor(&calls, []string{"CC=O"}, nil), NewRedisCache(client, nil), time.Hour, rec, nil)

	reactants := []*chem.Compound{chem.NewCompound("c1", "CCO")}
	rule := &chem.ReactionRule{ID: "R1", SMARTS: "[C:1][OH]>>[C:1]=O"}
	for i := 0; i < 3; i++ {
		products, err := r.React(context.Background(), reactants, rule)
		require.NoError(t, err)
		assert.Equal(t, []string{"CC=O"}, products)
	}
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, 2, rec.hits)
	assert.Equal(t, 1, rec.miss)
}

func TestCachingReactor_CachesEmptyResults(t *testing.T) {
	client, _ := newTestClient(t)
	var calls int32
	r := NewCachingReactor(countingReactor(&calls, nil, nil), NewRedisCache(client, nil), time.Hour, nil, nil)

	reactants := []*chem.Compound{chem.NewCompound("c1", "CCO")}
	rule := &chem.ReactionRule{ID: "R1", SMARTS: "N>>O"}
	for i := 0; i < 2; i++ {
		products, err := r.React(context.Background(), reactants, rule)
		require.NoError(t, err)
		assert.Empty(t, products)
	}
	assert.Equal(t, int32(1), calls)
}

func TestCachingReactor_DoesNotCacheErrors(t *testing.T) {
	client, _ := newTestClient(t)
	var calls int32
	boom := errors.New(errors.ErrCodeReactionFailed, "boom")
	r := NewCachingReactor(countingReactor(&calls, nil, boom), NewRedisCache(client, nil), time.Hour, nil, nil)

	reactants := []*chem.Compound{chem.NewCompound("c1", "CCO")}
	rule := &chem.ReactionRule{ID: "R1", SMARTS: "N>>O"}
	for i := 0; i < 2; i++ {
		_, err := r.React(context.Background(), reactants, rule)
		assert.ErrorIs(t, err, boom)
	}
	assert.Equal(t, int32(2), calls)
}

func TestCachingReactor_FallsThroughWhenCacheDown(t *testing.T) {
	client, mr := newTestClient(t)
	mr.Close()

	var calls int32
	r := NewCachingReactor(countingReactor(&calls, []string{"CC=O"}, nil), NewRedisCache(client, nil), time.Hour, nil, nil)
	products, err := r.React(context.Background(), []*chem.Compound{chem.NewCompound("c1", "CCO")}, &chem.ReactionRule{ID: "R1", SMARTS: "x>>y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CC=O"}, products)
	assert.Equal(t, int32(1), calls)
}

// stubCache answers every Get with getErr and accepts every Set.
type stubCache struct {
	getErr error
	sets   int
}

func (c *stubCache) Get(context.Context, string, interface{}) error { return c.getErr }

func (c *stubCache) Set(context.Context, string, interface{}, time.Duration) error {
	c.sets++
	return nil
}

func (c *stubCache) Delete(context.Context, ...string) error { return nil }

func (c *stubCache) DeleteByPrefix(context.Context, string) (int64, error) { return 0, nil }

func (c *stubCache) Ping(context.Context) error { return nil }

func TestCachingReactor_WrappedMissIsNotAFailure(t *testing.T) {
	for _, tc := range []struct {
		name    string
		getErr  error
		warning bool
	}{
		{"bare miss", ErrCacheMiss, false},
		{"wrapped miss", errors.Wrap(ErrCacheMiss, errors.ErrCodeNotFound, "lookup rxn"), false},
		{"backend failure", errors.New(errors.CodeInternal, "connection reset"), true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var calls int32
			rec := &hitCounter{}
			logger := testutil.NewMockLogger()
			cache := &stubCache{getErr: tc.getErr}
			r := NewCachingReactor(countingReactor(&calls, []string{"CC=O"}, nil), cache, time.Hour, rec, logger)

			products, err := r.React(context.Background(), []*chem.Compound{chem.NewCompound("c1", "CCO")}, &chem.ReactionRule{ID: "R1", SMARTS: "x>>y"})
			require.NoError(t, err)
			assert.Equal(t, []string{"CC=O"}, products)
			assert.Equal(t, int32(1), calls)
			assert.Equal(t, 1, rec.miss)
			assert.Equal(t, 1, cache.sets)
			assert.Equal(t, tc.warning, logger.HasMessage("warn", "reaction cache lookup failed"))
		})
	}
}

func TestReactionKey(t *testing.T) {
	rule := &chem.ReactionRule{ID: "R1", SMARTS: "x>>y"}
	a := []*chem.Compound{chem.NewCompound("1", "CCO"), chem.NewCompound("2", "O")}
	b := []*chem.Compound{chem.NewCompound("2", "O"), chem.NewCompound("1", "CCO")}

	assert.Equal(t, ReactionKey(a, rule), ReactionKey(a, rule))
	assert.NotEqual(t, ReactionKey(a, rule), ReactionKey(b, rule))
	assert.NotEqual(t, ReactionKey(a, rule), ReactionKey(a, &chem.ReactionRule{ID: "R2", SMARTS: "x>>y"}))
	assert.Contains(t, ReactionKey(a, rule), "rxn:")
}
