package main

import (
	"context"
	"os"

	"github.com/piisecure/pii-deployer/cmd/pii-deployer/commands"
	"github.com/piisecure/pii-deployer/internal/di"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := di.ProvideLogger()
	ctx := logger.WithContext(context.Background())

	app := &cli.App{
		Name:  "pii-deployer",
		Usage: "Deployment pipeline for the PII secure persistence backend",
		Description: `A CLI for deploying the PII backend container to AWS App Runner.

This tool provides commands for:
  - Checking local tooling and AWS credentials before a deploy
  - Building and pushing the backend image to ECR
  - Driving Terraform over the declared App Runner infrastructure
  - Smoke-testing the deployed service`,
		Commands: []*cli.Command{
			commands.PreflightCommand(&logger),
			commands.PushCommand(&logger),
			commands.InfraCommand(&logger),
			commands.SmokeCommand(&logger),
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.Error().Err(err).Msg("Application error")
		os.Exit(1)
	}
}
