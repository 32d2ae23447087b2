package commands

import (
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/piisecure/pii-deployer/internal/config"
	"github.com/piisecure/pii-deployer/internal/di"
	"github.com/piisecure/pii-deployer/internal/docker"
	"github.com/piisecure/pii-deployer/internal/models"
	"github.com/piisecure/pii-deployer/internal/pipeline"
	"github.com/piisecure/pii-deployer/internal/registry"
	"github.com/piisecure/pii-deployer/internal/services"
)

func PushCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "push",
		Usage: "Build the backend image and push it to ECR",
		Description: `Resolves the registry address from the caller's AWS account, ensures the
ECR repository exists (creating it is idempotent - an existing repository is
not an error), builds the container image, authenticates docker against the
registry with a short-lived token, and pushes the tagged image.

The resolved image reference is written to a local file for operator
convenience and, with --record-ssm, mirrored to SSM Parameter Store.

Any step failing aborts the run. There is no retry and no rollback;
re-running the command is safe.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region for the ECR repository",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.StringFlag{
				Name:    "repo-name",
				Aliases: []string{"r"},
				Usage:   "ECR repository name",
			},
			&cli.StringFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Image tag",
			},
			&cli.StringFlag{
				Name:  "context",
				Usage: "Container build context directory",
			},
			&cli.StringFlag{
				Name:  "dockerfile",
				Usage: "Dockerfile path (defaults to Dockerfile in the context)",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "File the resolved image reference is written to",
			},
			&cli.StringFlag{
				Name:  "grant-push-role",
				Usage: "IAM role name to grant ECR push permissions (typically a CI role)",
			},
			&cli.BoolFlag{
				Name:  "record-ssm",
				Usage: "Record the pushed image reference in SSM Parameter Store",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Pipeline config file",
				Value: "deploy.yaml",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Show what would be done without building or pushing",
			},
		},
		Action: func(c *cli.Context) error {
			return pushAction(c, logger)
		},
	}
}

func pushAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	target := models.DeploymentTarget{
		Region:         config.Coalesce(c.String("region"), cfg.Region, config.DefaultRegion),
		RepositoryName: config.Coalesce(c.String("repo-name"), cfg.RepositoryName, config.DefaultRepositoryName),
		ImageTag:       config.Coalesce(c.String("tag"), cfg.ImageTag, config.DefaultImageTag),
	}
	opts := pipeline.Options{
		Target:     target,
		ContextDir: config.Coalesce(c.String("context"), cfg.ContextDir, config.DefaultContextDir),
		Dockerfile: config.Coalesce(c.String("dockerfile"), cfg.Dockerfile),
		OutputFile: config.Coalesce(c.String("output"), cfg.OutputFile, config.DefaultOutputFile),
	}
	roleName := c.String("grant-push-role")

	if c.Bool("dry-run") {
		logger.Info().Msg("DRY RUN: Would perform the following:")
		logger.Info().Msgf("  - Resolve registry for account in %s", target.Region)
		logger.Info().Msgf("  - Ensure ECR repository %q exists (create-if-absent)", target.RepositoryName)
		logger.Info().Msgf("  - Build image from %s (tag %s)", opts.ContextDir, target.ImageTag)
		logger.Info().Msg("  - Authenticate docker with a short-lived ECR token")
		logger.Info().Msgf("  - Push and write the image reference to %s", opts.OutputFile)
		if roleName != "" {
			logger.Info().Msgf("  - Grant ECR push permissions to IAM role %s", roleName)
		}
		if c.Bool("record-ssm") {
			logger.Info().Msgf("  - Record image reference in SSM at /pii-deployer/%s/last-image", target.RepositoryName)
		}
		return nil
	}

	container, err := di.New(target.Region)
	if err != nil {
		return err
	}

	ecrService := di.MustGet[*services.ECRService](container)
	resolver := di.MustGet[*registry.Resolver](container)
	dockerClient := di.MustGet[*docker.Client](container)

	repos := newRepositoryManager(ecrService, logger)

	var recorder pipeline.Recorder
	if c.Bool("record-ssm") {
		recorder = di.MustGet[*services.SSMImageRecordStore](container)
	}

	record, err := pipeline.New(resolver, repos, dockerClient, recorder).Run(ctx, opts)
	if err != nil {
		return err
	}

	if roleName != "" {
		if err := grantPushRole(ctx, logger, container, roleName, repos.lastARN); err != nil {
			return err
		}
	}

	// Summary
	logger.Info().Msg("")
	logger.Info().Msg("========================================")
	logger.Info().Msg("Push Complete!")
	logger.Info().Msg("========================================")
	logger.Info().Msgf("Region:   %s", target.Region)
	logger.Info().Msgf("Image:    %s", record.URI)
	logger.Info().Msgf("Run ID:   %s", record.RunID)
	logger.Info().Msgf("Recorded: %s", opts.OutputFile)
	logger.Info().Msg("")
	logger.Info().Msg("Next step:")
	logger.Info().Msg("  pii-deployer infra apply")

	return nil
}
