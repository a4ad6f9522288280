package eitheror

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisArchiveTestSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	client  *redis.Client
	archive *RedisArchive
	testNow time.Time
}

func (s *RedisArchiveTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{
		Addr: s.mr.Addr(),
	})

	archive, err := NewRedisArchive(context.Background(), &RedisConfig{
		RedisClient: s.client,
	})
	s.Require().NoError(err)
	s.archive = archive

	s.testNow = time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)
}

func (s *RedisArchiveTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestRedisArchiveTestSuite(t *testing.T) {
	suite.Run(t, new(RedisArchiveTestSuite))
}

func (s *RedisArchiveTestSuite) result(code string, offset time.Duration) Result {
	return Result{
		RoomCode:   code,
		FinishedAt: s.testNow.Add(offset),
		Rounds:     3,
		Standings: []Standing{
			{Name: "Alice", Score: 2, Rank: 1, Medal: "🥇"},
			{Name: "Bob", Score: 1, Rank: 2, Medal: "🥈"},
		},
	}
}

func (s *RedisArchiveTestSuite) TestRecordAndRecent() {
	ctx := context.Background()

	s.Require().NoError(s.archive.Record(ctx, s.result("AAAA", 0)))
	s.Require().NoError(s.archive.Record(ctx, s.result("BBBB", time.Minute)))

	results, err := s.archive.Recent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(results, 2)

	// Newest first.
	s.Equal("BBBB", results[0].RoomCode)
	s.Equal("AAAA", results[1].RoomCode)
	s.True(results[0].FinishedAt.Equal(s.testNow.Add(time.Minute)))
	s.Equal(s.result("AAAA", 0).Standings, results[1].Standings)
}

func (s *RedisArchiveTestSuite) TestRecentLimit() {
	ctx := context.Background()

	for i := range 5 {
		s.Require().NoError(s.archive.Record(ctx, s.result(fmt.Sprintf("AAA%c", 'A'+i), time.Duration(i)*time.Minute)))
	}

	results, err := s.archive.Recent(ctx, 2)
	s.Require().NoError(err)
	s.Len(results, 2)
	s.Equal("AAAE", results[0].RoomCode)

	results, err = s.archive.Recent(ctx, 0)
	s.Require().NoError(err)
	s.Empty(results)
}

func (s *RedisArchiveTestSuite) TestListIsCapped() {
	ctx := context.Background()

	for i := range maxResults + 10 {
		s.Require().NoError(s.archive.Record(ctx, s.result("CAPS", time.Duration(i)*time.Second)))
	}

	n, err := s.client.LLen(ctx, resultsKey).Result()
	s.Require().NoError(err)
	s.Equal(int64(maxResults), n)
}

func (s *RedisArchiveTestSuite) TestRecentEmpty() {
	results, err := s.archive.Recent(context.Background(), 10)
	s.Require().NoError(err)
	s.Empty(results)
}

func (s *RedisArchiveTestSuite) TestCorruptEntry() {
	ctx := context.Background()
	_, err := s.mr.Lpush(resultsKey, "not json")
	s.Require().NoError(err)

	_, err = s.archive.Recent(ctx, 10)
	s.Error(err)
}

func (s *RedisArchiveTestSuite) TestNewRedisArchiveValidation() {
	_, err := NewRedisArchive(context.Background(), nil)
	s.Error(err)

	_, err = NewRedisArchive(context.Background(), &RedisConfig{})
	s.Error(err)

	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer down.Close()

	_, err = NewRedisArchive(context.Background(), &RedisConfig{RedisClient: down})
	s.Error(err)
}

func (s *RedisArchiveTestSuite) TestNopArchive() {
	var a Archive = NopArchive{}

	s.NoError(a.Record(context.Background(), s.result("NOPE", 0)))

	results, err := a.Recent(context.Background(), 5)
	s.NoError(err)
	s.Empty(results)
}
