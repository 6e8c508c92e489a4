package graphbuilder

import "github.com/rcrowley/go-metrics"

var (
	builtCounter     = metrics.NewRegisteredCounter("graphbuilder/built", nil)
	bailoutCounter   = metrics.NewRegisteredCounter("graphbuilder/bailouts", nil)
	deoptCounter     = metrics.NewRegisteredCounter("graphbuilder/deopts", nil)
	cacheHitCounter  = metrics.NewRegisteredCounter("graphbuilder/cache/hits", nil)
	cacheMissCounter = metrics.NewRegisteredCounter("graphbuilder/cache/misses", nil)
)
