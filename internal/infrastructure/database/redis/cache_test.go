package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	apperrors "github.com/turtacn/MetaboScope/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	s.cache = NewRedisCache(NewClientFromUniversal(db, nil), nil, WithPrefix("test:"))
}

func (s *CacheTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

type compartment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	val := compartment{ID: "m", Name: "mitochondrion"}
	data, _ := json.Marshal(val)
	s.mock.ExpectGet("test:k1").SetVal(string(data))

	var dest compartment
	s.NoError(s.cache.Get(context.Background(), "k1", &dest))
	s.Equal(val, dest)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:k1").RedisNil()

	var dest compartment
	err := s.cache.Get(context.Background(), "k1", &dest)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func (s *CacheTestSuite) TestGet_BackendError() {
	s.mock.ExpectGet("test:k1").SetErr(errors.New("READONLY"))

	var dest compartment
	err := s.cache.Get(context.Background(), "k1", &dest)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestGet_CorruptValue() {
	s.mock.ExpectGet("test:k1").SetVal("{")

	var dest compartment
	err := s.cache.Get(context.Background(), "k1", &dest)
	s.True(apperrors.IsCode(err, apperrors.ErrCodeSerialization))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:k1", "test:k2").SetVal(1)

	n, err := s.cache.Delete(context.Background(), "k1", "k2")
	s.NoError(err)
	s.Equal(int64(1), n)
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:k1").SetVal(1)

	ok, err := s.cache.Exists(context.Background(), "k1")
	s.NoError(err)
	s.True(ok)
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Mode: "standalone", Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCache_SetAppliesJitteredTTL(t *testing.T) {
	mr, client := newMiniredisClient(t)
	cache := NewRedisCache(client, nil)

	require.NoError(t, cache.Set(context.Background(), "k", compartment{ID: "c"}, time.Hour))

	ttl := mr.TTL("metaboscope:k")
	assert.GreaterOrEqual(t, ttl, 54*time.Minute)
	assert.LessOrEqual(t, ttl, 66*time.Minute)
}

func TestCache_GetOrSetLoadsOnce(t *testing.T) {
	_, client := newMiniredisClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()

	var calls int32
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(20 * time.Millisecond)
		return compartment{ID: "e", Name: "extracellular"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var dest compartment
			assert.NoError(t, cache.GetOrSet(ctx, "e", &dest, time.Minute, loader))
			assert.Equal(t, "extracellular", dest.Name)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))

	before := atomic.LoadInt32(&calls)
	var dest compartment
	require.NoError(t, cache.GetOrSet(ctx, "e", &dest, time.Minute, loader))
	assert.Equal(t, before, atomic.LoadInt32(&calls), "cached value served without loading")
}

func TestCache_GetOrSetLoaderError(t *testing.T) {
	_, client := newMiniredisClient(t)
	cache := NewRedisCache(client, nil)

	var dest compartment
	err := cache.GetOrSet(context.Background(), "x", &dest, 0, func(context.Context) (interface{}, error) {
		return nil, errors.New("upstream down")
	})
	assert.EqualError(t, err, "upstream down")
}

func TestCache_CountByPrefix(t *testing.T) {
	_, client := newMiniredisClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()

	for _, k := range []string{"session:a", "session:b", "other"} {
		require.NoError(t, cache.Set(ctx, k, 1, time.Minute))
	}
	n, err := cache.CountByPrefix(ctx, "session:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
