// Package aws implements the cloudjack service contracts on top of the AWS
// SDK for Go v2. Each service gets its own adapter type backed by a narrow
// client interface, so tests can substitute fakes without touching the
// network.
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/cloudjack/cloudjack/pkg/cloudjack"
)

// Register wires every AWS adapter into the registry.
func Register(reg *cloudjack.Registry) {
	reg.Register(cloudjack.ProviderAWS, cloudjack.ServiceSecretManager, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		sdkCfg, err := sdkConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewSecretManager(ctx, sdkCfg)
	})
	reg.Register(cloudjack.ProviderAWS, cloudjack.ServiceStorage, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		sdkCfg, err := sdkConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewStorage(sdkCfg), nil
	})
	reg.Register(cloudjack.ProviderAWS, cloudjack.ServiceQueue, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		sdkCfg, err := sdkConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewQueue(sdkCfg), nil
	})
	reg.Register(cloudjack.ProviderAWS, cloudjack.ServiceCompute, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		sdkCfg, err := sdkConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewCompute(sdkCfg), nil
	})
	reg.Register(cloudjack.ProviderAWS, cloudjack.ServiceDNS, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		sdkCfg, err := sdkConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewDNS(sdkCfg), nil
	})
	reg.Register(cloudjack.ProviderAWS, cloudjack.ServiceIAM, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		sdkCfg, err := sdkConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewIAM(sdkCfg), nil
	})
	reg.Register(cloudjack.ProviderAWS, cloudjack.ServiceLogging, func(ctx context.Context, cfg cloudjack.ProviderConfig) (any, error) {
		sdkCfg, err := sdkConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewLogging(sdkCfg), nil
	})
}

// sdkConfig builds an SDK configuration from resolved cloudjack config.
// Static credentials, when present, override the SDK's default credential
// chain.
func sdkConfig(ctx context.Context, cfg cloudjack.ProviderConfig) (awssdk.Config, error) {
	awsCfg, ok := cfg.(cloudjack.AWSConfig)
	if !ok {
		return awssdk.Config{}, fmt.Errorf("expected AWS configuration, got %T", cfg)
	}

	var opts []func(*config.LoadOptions) error
	if awsCfg.Region != "" {
		opts = append(opts, config.WithRegion(awsCfg.Region))
	}
	if awsCfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsCfg.AccessKeyID, awsCfg.SecretAccessKey, "")))
	}

	sdkCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awssdk.Config{}, &cloudjack.ConfigError{
			Provider: cloudjack.ProviderAWS,
			Message:  "loading SDK configuration",
			Cause:    err,
		}
	}
	return sdkCfg, nil
}
