package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilTokenBucketRejects(t *testing.T) {
	var bucket *TokenBucket
	res, err := bucket.Allow(context.Background(), "k", 1, time.Second)
	assert.Error(t, err)
	assert.False(t, res.Allowed)
	assert.Nil(t, NewTokenBucket(nil, ""))
}

func TestParseBucketReply(t *testing.T) {
	// 30 per minute refills one token every two seconds.
	rate := 30.0 / 60.0

	res, err := parseBucketReply([]interface{}{int64(1), "12.5"}, rate, 30)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 12, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	res, err = parseBucketReply([]interface{}{int64(0), "0.5"}, rate, 30)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)

	_, err = parseBucketReply([]interface{}{int64(1)}, rate, 30)
	assert.Error(t, err)
}

func TestBucketTTL(t *testing.T) {
	assert.Equal(t, 120*time.Second, bucketTTL(0.5, 30))
	assert.Equal(t, time.Second, bucketTTL(1000, 1))
	assert.Equal(t, time.Second, bucketTTL(0, 0))
}
