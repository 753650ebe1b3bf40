package redisstore_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/trexinity/another/internal/docstore"
	"github.com/trexinity/another/internal/docstore/redisstore"
	"github.com/trexinity/another/internal/docstore/storetest"
)

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	suite.Run(t, &storetest.Suite{
		NewStore: func() docstore.Store {
			mr.FlushAll()
			return redisstore.New(rdb, "sf:")
		},
	})
}
