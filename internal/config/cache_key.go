package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptShuffleKey returns the cache key for an attempt's persisted shuffle
// permutation (question order plus per-question option orders).
func (r *CacheKeyStruct) AttemptShuffleKey(studentID, contentID string, attemptNumber int) string {
	return fmt.Sprintf("student:%s:content:%s:attempt:%d:shuffle", studentID, contentID, attemptNumber)
}

// AttemptDeadlineKey returns the cache key for an attempt's deadline (unix seconds).
func (r *CacheKeyStruct) AttemptDeadlineKey(studentID, contentID string, attemptNumber int) string {
	return fmt.Sprintf("student:%s:content:%s:attempt:%d:deadline", studentID, contentID, attemptNumber)
}

// RateLimitKey returns the fixed-window rate limit counter key for one
// caller on one route.
func (r *CacheKeyStruct) RateLimitKey(subject, route string) string {
	return fmt.Sprintf("ratelimit:%s:%s", subject, route)
}

var CacheKey = NewCacheKeyStruct()
