package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/hupe1980/songrec"
	"github.com/hupe1980/songrec/artifact"
	"github.com/hupe1980/songrec/blobstore"
	"github.com/hupe1980/songrec/blobstore/minio"
	"github.com/hupe1980/songrec/blobstore/s3"
	"github.com/hupe1980/songrec/embed"
	"github.com/hupe1980/songrec/internal/config"
	"github.com/hupe1980/songrec/internal/resource"
	promcollector "github.com/hupe1980/songrec/metrics/prometheus"
	"github.com/hupe1980/songrec/ranker"
)

// app holds the components built from a Config.
type app struct {
	cfg       *config.Config
	logger    *songrec.Logger
	registry  *prometheus.Registry
	store     blobstore.BlobStore
	artifacts *artifact.Loader
	loader    *songrec.Loader
	service   *songrec.Service
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*songrec.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, &configError{err: err}
	}
	if cfg.Format == "text" {
		return songrec.NewTextLogger(level), nil
	}
	return songrec.NewJSONLogger(level), nil
}

// openStore builds the artifact store described by cfg.
func openStore(ctx context.Context, cfg config.StoreConfig) (blobstore.BlobStore, error) {
	var remote blobstore.BlobStore
	switch cfg.Kind {
	case "local":
		return blobstore.NewLocalStore(cfg.Path), nil
	case "s3":
		opts := []s3.Option{s3.WithPrefix(cfg.Prefix)}
		if cfg.Region != "" {
			opts = append(opts, s3.WithRegion(cfg.Region))
		}
		if cfg.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(cfg.Endpoint, cfg.PathStyle))
		}
		st, err := s3.New(ctx, cfg.Bucket, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating s3 store: %w", err)
		}
		remote = st
		if cfg.PointerTable != "" {
			ddb, err := newDynamoDB(ctx, cfg.Region)
			if err != nil {
				return nil, err
			}
			remote = s3.NewPointerStore(st, ddb, cfg.PointerTable, baseURI(cfg))
		}
	case "minio":
		opts := []minio.Option{minio.WithPrefix(cfg.Prefix)}
		if cfg.UseTLS {
			opts = append(opts, minio.WithTLS())
		}
		if cfg.Region != "" {
			opts = append(opts, minio.WithRegion(cfg.Region))
		}
		st, err := minio.New(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating minio store: %w", err)
		}
		remote = st
	default:
		return nil, &configError{err: fmt.Errorf("unknown store kind %q", cfg.Kind)}
	}

	if cfg.CacheDir == "" {
		return remote, nil
	}
	return blobstore.NewMirrorStore(remote, blobstore.NewLocalStore(cfg.CacheDir), artifact.CurrentName), nil
}

func newDynamoDB(ctx context.Context, region string) (*dynamodb.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg), nil
}

func baseURI(cfg config.StoreConfig) string {
	uri := "s3://" + cfg.Bucket
	if p := strings.Trim(cfg.Prefix, "/"); p != "" {
		uri += "/" + p
	}
	return uri
}

// newGenerator stacks the HTTP client, the circuit breaker and the cache.
func newGenerator(cfg config.GeneratorConfig, rc *resource.Controller, logger *songrec.Logger) embed.Generator {
	opts := []embed.HTTPOption{
		embed.WithModel(cfg.Model),
		embed.WithTimeout(cfg.Timeout),
	}
	if cfg.Version != "" {
		opts = append(opts, embed.WithModelVersion(cfg.Version))
	}
	if cfg.Output != "" {
		opts = append(opts, embed.WithOutputName(cfg.Output))
	}
	var gen embed.Generator = embed.NewHTTPGenerator(cfg.URL, opts...)

	if cfg.BreakerFailures > 0 {
		bc := embed.DefaultBreakerConfig()
		bc.FailureThreshold = cfg.BreakerFailures
		if cfg.BreakerOpenDelay > 0 {
			bc.Timeout = cfg.BreakerOpenDelay
		}
		bc.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("generator circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		}
		gen = embed.NewBreakerWithConfig(gen, bc)
	}
	if cfg.CacheSize > 0 {
		gen = embed.NewCached(gen, cfg.CacheSize, rc)
	}
	return gen
}

// newApp wires every component for cfg. Nothing is loaded yet.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	strategy, err := ranker.ParseStrategy(cfg.Ranker.Strategy)
	if err != nil {
		return nil, &configError{err: err}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := promcollector.New(registry)

	rc := resource.NewController(resource.Config{
		MaxConcurrentQueries: cfg.Limits.MaxConcurrentQueries,
		GeneratorRatePerSec:  cfg.Limits.GeneratorRate,
		GeneratorBurst:       cfg.Limits.GeneratorBurst,
		MemoryLimitBytes:     cfg.Limits.CacheMemoryBytes,
	})

	common := []songrec.Option{
		songrec.WithLogger(logger),
		songrec.WithMetricsCollector(metrics),
	}
	artifacts := artifact.NewLoader(store)
	loader := songrec.NewLoader(songrec.ArtifactSource(artifacts), common...)

	rankerOpts := []ranker.Option{ranker.WithStrategy(strategy)}
	if cfg.Ranker.Parallelism > 0 {
		rankerOpts = append(rankerOpts, ranker.WithParallelism(cfg.Ranker.Parallelism))
	}
	if cfg.Ranker.ParallelThreshold > 0 {
		rankerOpts = append(rankerOpts, ranker.WithParallelThreshold(cfg.Ranker.ParallelThreshold))
	}
	svc := songrec.New(loader, newGenerator(cfg.Generator, rc, logger), append(common,
		songrec.WithThreshold(float32(cfg.Ranker.Threshold)),
		songrec.WithRankerOptions(rankerOpts...),
		songrec.WithDefaultK(cfg.Ranker.DefaultK),
		songrec.WithResourceController(rc),
	)...)

	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  registry,
		store:     store,
		artifacts: artifacts,
		loader:    loader,
		service:   svc,
	}, nil
}
