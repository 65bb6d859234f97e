// Package gcp implements the cloudjack service contracts on top of the
// Google API Go client. Adapters hold the generated REST services directly;
// tests point them at local HTTP servers through client options.
package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/option"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// Register wires every GCP adapter into the registry.
func Register(reg *cloudjack.Registry) {
	reg.Register(cloudjack.ProviderGCP, cloudjack.ServiceSecretManager, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		gcpCfg, err := gcpConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewSecretManager(ctx, gcpCfg)
	})
	reg.Register(cloudjack.ProviderGCP, cloudjack.ServiceStorage, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		gcpCfg, err := gcpConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewStorage(ctx, gcpCfg)
	})
	reg.Register(cloudjack.ProviderGCP, cloudjack.ServiceQueue, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		gcpCfg, err := gcpConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewQueue(ctx, gcpCfg)
	})
	reg.Register(cloudjack.ProviderGCP, cloudjack.ServiceCompute, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		gcpCfg, err := gcpConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewCompute(ctx, gcpCfg)
	})
	reg.Register(cloudjack.ProviderGCP, cloudjack.ServiceDNS, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		gcpCfg, err := gcpConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewDNS(ctx, gcpCfg)
	})
	reg.Register(cloudjack.ProviderGCP, cloudjack.ServiceIAM, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		gcpCfg, err := gcpConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewIAM(ctx, gcpCfg)
	})
	reg.Register(cloudjack.ProviderGCP, cloudjack.ServiceLogging, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		gcpCfg, err := gcpConfig(cfg)
		if err != nil {
			return nil, err
		}
		return NewLogging(ctx, gcpCfg)
	})
}

func gcpConfig(cfg cloudjack.ProviderConfig) (cloudjack.GCPConfig, error) {
	gcpCfg, ok := cfg.(cloudjack.GCPConfig)
	if !ok {
		return cloudjack.GCPConfig{}, fmt.Errorf("expected GCP configuration, got %T", cfg)
	}
	return gcpCfg, nil
}

// clientOptions translates resolved config into API client options. Without
// explicit credentials the client libraries fall back to Application Default
// Credentials on their own.
func clientOptions(cfg cloudjack.GCPConfig, extra ...option.ClientOption) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.Credentials != nil {
		opts = append(opts, option.WithCredentials(cfg.Credentials))
	}
	return append(opts, extra...)
}
