package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/turtacn/ReactEA/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	cache Cache
	ctx   context.Context
}

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (s *CacheTestSuite) SetupTest() {
	client, _ := newTestClient(s.T())
	s.cache = NewRedisCache(client, nil, WithPrefix("test:"), WithDefaultTTL(time.Hour))
	s.ctx = context.Background()
}

func (s *CacheTestSuite) TestSetThenGet() {
	s.Require().NoError(s.cache.Set(s.ctx, "a", entry{Name: "x", Count: 2}, 0))

	var got entry
	s.Require().NoError(s.cache.Get(s.ctx, "a", &got))
	s.Equal(entry{Name: "x", Count: 2}, got)
}

func (s *CacheTestSuite) TestGet_Miss() {
	var got entry
	err := s.cache.Get(s.ctx, "missing", &got)
	s.ErrorIs(err, ErrCacheMiss)
	s.True(errors.IsNotFound(err))
}

func (s *CacheTestSuite) TestSet_Unserializable() {
	err := s.cache.Set(s.ctx, "bad", make(chan int), 0)
	s.True(errors.IsCode(err, errors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestDeleteByPrefix() {
	for _, k := range []string{"rxn:1", "rxn:2", "other"} {
		s.Require().NoError(s.cache.Set(s.ctx, k, 1, time.Minute))
	}
	n, err := s.cache.DeleteByPrefix(s.ctx, "rxn:")
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	var v int
	s.ErrorIs(s.cache.Get(s.ctx, "rxn:1", &v), ErrCacheMiss)
	s.NoError(s.cache.Get(s.ctx, "other", &v))
	s.NoError(s.cache.Delete(s.ctx, "other"))
	s.NoError(s.cache.Delete(s.ctx))
}

func (s *CacheTestSuite) TestPing() {
	s.NoError(s.cache.Ping(s.ctx))
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestJitterTTL(t *testing.T) {
	c := &redisCache{}
	for i := 0; i < 100; i++ {
		got := c.jitterTTL(time.Hour)
		if got < 54*time.Minute || got > 66*time.Minute {
			t.Fatalf("jittered ttl %v out of range", got)
		}
	}
	if c.jitterTTL(0) != 0 {
		t.Fatal("zero ttl must stay zero")
	}
}
