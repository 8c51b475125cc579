package pivotal

import "log/slog"

const DefaultCutoff = 1 - 1e-8

type options struct {
	maxIter  int
	cutoff   float64
	leafSize int
	logger   *slog.Logger
}

func loadOptions(opts ...Option) options {
	options := options{
		cutoff: DefaultCutoff,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o.apply(&options)
	}
	return options
}

type Option interface {
	apply(*options)
}

type maxIter int

func (m maxIter) apply(o *options) {
	o.maxIter = int(m)
}

// Default: 10 times the number of candidates
func WithMaxIter(n int) Option {
	return maxIter(n)
}

type cutoff float64

func (c cutoff) apply(o *options) {
	o.cutoff = float64(c)
}

// WithCutoff sets the probability at or above which a unit is selected; units
// at or below 1-cutoff are excluded. Default: 1 - 1e-8
func WithCutoff(c float64) Option {
	return cutoff(c)
}

type leafSize int

func (l leafSize) apply(o *options) {
	o.leafSize = int(l)
}

// Default: 40
func WithLeafSize(n int) Option {
	return leafSize(n)
}

type logger struct {
	*slog.Logger
}

func (l logger) apply(o *options) {
	if l.Logger != nil {
		o.logger = l.Logger
	}
}

func WithLogger(log *slog.Logger) Option {
	return logger{log}
}
