package main

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/SkothaSec/project-mimir/config"
	"github.com/SkothaSec/project-mimir/internal/assessments"
	inputredis "github.com/SkothaSec/project-mimir/internal/input/redis"
	"github.com/SkothaSec/project-mimir/internal/input/resultshttp"
	"github.com/SkothaSec/project-mimir/internal/input/resultsjson"
	"github.com/SkothaSec/project-mimir/internal/logger"
	"github.com/SkothaSec/project-mimir/internal/pipeline"
	"github.com/SkothaSec/project-mimir/internal/rules"
)

// openSource builds the configured results source. The returned close func is never nil.
func openSource(cfg *config.Config) (pipeline.Source, func() error, error) {
	noop := func() error { return nil }
	results := cfg.Mimir.Results

	switch strings.ToLower(strings.TrimSpace(results.Source)) {
	case "", "http":
		src, err := resultshttp.NewSource(resultshttp.Config{
			URL:     results.HTTP.URL,
			Timeout: results.HTTP.Timeout,
			Headers: results.HTTP.Headers,
		})
		if err != nil {
			return nil, noop, err
		}
		logger.Infof("Results source: http %s", results.HTTP.URL)
		return src, noop, nil

	case "redis":
		store := assessments.NewRedisStore(assessments.RedisConfig{
			Addr:      results.Redis.Addr,
			Password:  results.Redis.Password,
			DB:        results.Redis.DB,
			KeyPrefix: results.Redis.KeyPrefix,
		})
		logger.Infof("Results source: redis %s (%s, limit=%d)", results.Redis.Addr, results.Redis.KeyPrefix, results.Redis.Limit)
		return inputredis.NewSource(store, results.Redis.Limit), store.Close, nil

	case "file":
		src, err := resultsjson.NewSource(results.File.Path)
		if err != nil {
			return nil, noop, err
		}
		logger.Infof("Results source: file %s", results.File.Path)
		return src, noop, nil

	default:
		return nil, noop, errors.WithHint(
			errors.Newf("unknown results source %q", results.Source),
			"use http, redis or file")
	}
}

// loadEngine compiles the Sigma rules used for the detail view's rule hits.
func loadEngine(cfg *config.Config) (rules.Engine, error) {
	rc := cfg.Mimir.Rules
	if !rc.Enabled {
		return &rules.NoopEngine{}, nil
	}
	if strings.TrimSpace(rc.Path) == "" {
		logger.Warnf("Rules enabled but rules.path is empty, rule hits disabled")
		return &rules.NoopEngine{}, nil
	}

	engine, stats, err := rules.NewSigmaEngine(rc.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "load sigma rules from %s", rc.Path)
	}
	logger.Infof("Sigma rules loaded: files=%d loaded=%d skipped=%d invalid=%d unsupported=%v",
		stats.Files, stats.Loaded, stats.Skipped(), stats.Invalid, stats.Unsupported)
	return engine, nil
}
