package server

import (
	"time"

	"github.com/royalcat/spatialsample/candidates"
)

type Config struct {
	// DefaultCandidates is the candidate count when a request names none.
	DefaultCandidates int
	MaxCandidates     int
	MaxSize           int
	DefaultMethod     candidates.Method

	// CacheSize bounds the number of memoised seeded responses.
	CacheSize int

	ReadTimeout time.Duration
	MaxBodySize int
}

func ConfigDefault() Config {
	return Config{
		DefaultCandidates: 1000,
		MaxCandidates:     100_000,
		MaxSize:           10_000,
		DefaultMethod:     candidates.MethodUniform,
		CacheSize:         1024,
		ReadTimeout:       time.Second,
		MaxBodySize:       32 * 1000 * 1000, // 32MB
	}
}
