package di

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/piisecure/pii-deployer/internal/docker"
	"github.com/piisecure/pii-deployer/internal/registry"
	"github.com/piisecure/pii-deployer/internal/services"
	"github.com/piisecure/pii-deployer/internal/toolchain"
)

func ProvideContext() context.Context {
	logger := ProvideLogger()
	return logger.WithContext(context.Background())
}

func ProvideAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx, config.WithRegion(region))
}

func ProvideSTSClient(config aws.Config) *sts.Client {
	return sts.NewFromConfig(config)
}

func ProvideRegistryResolver(stsClient *sts.Client) *registry.Resolver {
	return registry.NewResolver(stsClient)
}

func ProvideRunner() toolchain.Runner {
	return toolchain.NewRunner()
}

func ProvideDockerClient(runner toolchain.Runner) *docker.Client {
	return docker.NewClient(runner)
}

var core = []any{
	ProvideContext,
	ProvideAWSConfig,
	ProvideSTSClient,
	ProvideRegistryResolver,
	ProvideRunner,
	ProvideDockerClient,
	services.NewECRService,
	services.NewIAMService,
	services.NewSecretsManagerService,
	services.NewSSMImageRecordStore,
}
