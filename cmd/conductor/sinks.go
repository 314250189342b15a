package main

import (
	"context"
	"fmt"

	"sregrade/internal/common/cache"
	"sregrade/internal/common/mq"
	"sregrade/internal/common/storage"
	"sregrade/internal/conductor/sink"
	"sregrade/pkg/utils/logger"

	"go.uber.org/zap"
)

type sinks struct {
	runs      []sink.RunSink
	artifacts []sink.ArtifactSink
	closers   []func() error
}

func (s *sinks) close(ctx context.Context) {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			logger.Warn(ctx, "close export sink failed", zap.Error(err))
		}
	}
}

// buildSinks connects the enabled export sinks. On error every sink opened so far is closed.
func buildSinks(ctx context.Context, cfg ExportConfig) (*sinks, error) {
	out := &sinks{}
	fail := func(err error) (*sinks, error) {
		out.close(ctx)
		return nil, err
	}

	if cfg.Redis.Enabled {
		redisCfg := cfg.Redis.Redis
		store, err := cache.NewRedisCacheWithConfig(&redisCfg)
		if err != nil {
			return fail(fmt.Errorf("init redis export failed: %w", err))
		}
		out.closers = append(out.closers, store.Close)
		out.runs = append(out.runs, sink.NewRedis(store, cfg.Redis.Prefix, cfg.Redis.TTL))
		logger.Info(ctx, "redis export enabled", zap.String("addr", redisCfg.Addr))
	}

	if cfg.Kafka.Enabled {
		producer, err := mq.NewKafkaProducer(cfg.Kafka.KafkaConfig)
		if err != nil {
			return fail(fmt.Errorf("init kafka export failed: %w", err))
		}
		out.closers = append(out.closers, producer.Close)
		ks, err := sink.NewKafka(producer, cfg.Kafka.Topic)
		if err != nil {
			return fail(err)
		}
		out.runs = append(out.runs, ks)
		logger.Info(ctx, "kafka export enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}

	if cfg.Object.Enabled {
		store, err := storage.NewMinIOStorage(cfg.Object.MinIO)
		if err != nil {
			return fail(fmt.Errorf("init object export failed: %w", err))
		}
		objSink, err := sink.NewObject(store, cfg.Object.MinIO.Bucket, cfg.Object.Prefix, cfg.Object.Compress)
		if err != nil {
			return fail(err)
		}
		if err := objSink.Prepare(ctx); err != nil {
			return fail(fmt.Errorf("prepare results bucket failed: %w", err))
		}
		out.artifacts = append(out.artifacts, objSink)
		logger.Info(ctx, "object export enabled", zap.String("bucket", cfg.Object.MinIO.Bucket), zap.Bool("compress", cfg.Object.Compress))
	}
	return out, nil
}
