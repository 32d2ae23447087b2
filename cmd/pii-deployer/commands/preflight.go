package commands

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	apperrors "github.com/piisecure/pii-deployer/internal/errors"
	"github.com/piisecure/pii-deployer/internal/registry"
	"github.com/piisecure/pii-deployer/internal/toolchain"
)

// requiredTools are the external CLIs the pipeline shells out to.
var requiredTools = []string{"docker", "terraform"}

func PreflightCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "preflight",
		Usage: "Verify local tooling and AWS credentials before a deploy",
		Description: `Checks that docker and terraform are available on PATH and that the
ambient AWS credential chain (environment variables, credential file, or
execution role) produces a valid identity.

The first missing prerequisite aborts the check; nothing is retried.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region used for the credential check",
				Value:   "us-east-1",
				EnvVars: []string{"AWS_REGION"},
			},
		},
		Action: func(c *cli.Context) error {
			return preflightAction(c, logger)
		},
	}
}

func preflightAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context
	region := c.String("region")

	runner := toolchain.NewRunner()
	for _, tool := range requiredTools {
		path, err := runner.LookPath(tool)
		if err != nil {
			return err
		}
		logger.Info().Msgf("  ✓ %s (%s)", tool, path)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidCredentials, err)
	}
	accountID, arn, err := checkCredentials(ctx, sts.NewFromConfig(cfg))
	if err != nil {
		return err
	}
	logger.Info().Msgf("  ✓ AWS credentials (account %s)", accountID)

	logger.Info().Msg("")
	logger.Info().Msg("Preflight passed!")
	logger.Info().Msgf("Region:  %s", region)
	logger.Info().Msgf("Caller:  %s", arn)

	return nil
}

// checkCredentials verifies the ambient credential chain produces a valid
// identity. The STS surface is injected so tests can fake the call.
func checkCredentials(ctx context.Context, api registry.CallerIdentityAPI) (accountID, arn string, err error) {
	output, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", apperrors.ErrInvalidCredentials, err)
	}

	return aws.ToString(output.Account), aws.ToString(output.Arn), nil
}
