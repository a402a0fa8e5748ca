package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/turtacn/ReactEA/internal/domain/chem"
	"github.com/turtacn/ReactEA/internal/infrastructure/monitoring/logging"
	"golang.org/x/sync/singleflight"
)

// CacheRecorder observes reaction cache lookups.
type CacheRecorder interface {
	RecordCacheLookup(hit bool)
}

// CachingReactor memoizes the products of a Reactor per rule and reactant
// list. Empty product lists are cached too; reactor errors are not. Cache
// failures fall through to the wrapped reactor.
type CachingReactor struct {
	inner    chem.Reactor
	cache    Cache
	ttl      time.Duration
	recorder CacheRecorder
	logger   logging.Logger
	group    singleflight.Group
}

func NewCachingReactor(inner chem.Reactor, cache Cache, ttl time.Duration, recorder CacheRecorder, log logging.Logger) *CachingReactor {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &CachingReactor{inner: inner, cache: cache, ttl: ttl, recorder: recorder, logger: log.Named("reaction_cache")}
}

// ReactionKey identifies a reaction by rule ID, rule text and the ordered
// reactant structures.
func ReactionKey(reactants []*chem.Compound, rule *chem.ReactionRule) string {
	h := sha256.New()
	h.Write([]byte(rule.ID))
	h.Write([]byte{0})
	h.Write([]byte(rule.SMARTS))
	for _, r := range reactants {
		h.Write([]byte{0})
		h.Write([]byte(r.SMILES))
	}
	return "rxn:" + hex.EncodeToString(h.Sum(nil))
}

func (r *CachingReactor) React(ctx context.Context, reactants []*chem.Compound, rule *chem.ReactionRule) ([]string, error) {
	if rule == nil {
		return r.inner.React(ctx, reactants, rule)
	}
	key := ReactionKey(reactants, rule)

	var products []string
	err := r.cache.Get(ctx, key, &products)
	if err == nil {
		r.record(true)
		return products, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn("reaction cache lookup failed", logging.String("rule_id", rule.ID), logging.Err(err))
	}
	r.record(false)

	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		out, err := r.inner.React(ctx, reactants, rule)
		if err != nil {
			return nil, err
		}
		if out == nil {
			out = []string{}
		}
		if setErr := r.cache.Set(ctx, key, out, r.ttl); setErr != nil {
			r.logger.Warn("failed to cache reaction products",
				logging.String("rule_id", rule.ID),
				logging.String("reactants", joinSMILES(reactants)),
				logging.Err(setErr))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	// singleflight shares the slice between callers.
	return append([]string(nil), v.([]string)...), nil
}

func (r *CachingReactor) record(hit bool) {
	if r.recorder != nil {
		r.recorder.RecordCacheLookup(hit)
	}
}

func joinSMILES(cs []*chem.Compound) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.SMILES
	}
	return strings.Join(parts, ".")
}

var _ chem.Reactor = (*CachingReactor)(nil)
