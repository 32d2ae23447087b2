package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/piisecure/pii-deployer/internal/config"
	"github.com/piisecure/pii-deployer/internal/di"
	apperrors "github.com/piisecure/pii-deployer/internal/errors"
	"github.com/piisecure/pii-deployer/internal/policy"
	"github.com/piisecure/pii-deployer/internal/services"
	"github.com/piisecure/pii-deployer/internal/terraform"
	"github.com/piisecure/pii-deployer/internal/toolchain"
)

func InfraCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "infra",
		Usage:     "Reconcile the declared App Runner infrastructure with Terraform",
		ArgsUsage: "[plan|apply|destroy]",
		Description: `Runs the external Terraform engine over the declared infrastructure in
three strict phases: init, validate, then the requested action (plan by
default). A failing phase halts the run and surfaces Terraform's own
diagnostics; no phase is retried.

The operator-supplied variables file must exist before anything runs -
secrets never fall back to defaults. JSON variables files
(*.tfvars.json) are additionally screened against an embedded policy
before the engine is invoked.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Terraform root directory",
			},
			&cli.StringFlag{
				Name:  "var-file",
				Usage: "Terraform variables file (relative to --dir)",
			},
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"environment"},
				Usage:   "Environment name used by the variables policy (dev, staging, prod)",
				Value:   "dev",
			},
			&cli.StringFlag{
				Name:  "api-key-secret",
				Usage: "Secrets Manager secret whose value is injected as TF_VAR_api_key",
			},
			&cli.StringFlag{
				Name:    "region",
				Usage:   "AWS region for the secret lookup",
				Value:   "us-east-1",
				EnvVars: []string{"AWS_REGION"},
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Pipeline config file",
				Value: "deploy.yaml",
			},
		},
		Action: func(c *cli.Context) error {
			return infraAction(c, logger)
		},
	}
}

func infraAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx := c.Context

	actionArg := c.Args().First()
	if actionArg == "" {
		actionArg = string(terraform.ActionPlan)
	}
	action, err := terraform.ParseAction(actionArg)
	if err != nil {
		cli.ShowSubcommandHelp(c)
		return err
	}

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	dir := config.Coalesce(c.String("dir"), cfg.TerraformDir, config.DefaultTerraformDir)
	varFile := config.Coalesce(c.String("var-file"), cfg.VarFile, config.DefaultVarFile)
	env := c.String("env")

	varFilePath := varFile
	if !filepath.IsAbs(varFilePath) {
		varFilePath = filepath.Join(dir, varFile)
	}
	if _, err := os.Stat(varFilePath); err != nil {
		return fmt.Errorf("%w: variables file %s (create it before reconciling; secrets have no defaults)",
			apperrors.ErrMissingConfiguration, varFilePath)
	}

	if strings.HasSuffix(varFile, ".json") {
		if err := screenVariables(logger, varFilePath, env); err != nil {
			return err
		}
	}

	engine := terraform.NewEngine(toolchain.NewRunner(), dir, varFile)

	secretVars := map[string]string{}
	if secretID := c.String("api-key-secret"); secretID != "" {
		container, err := di.New(c.String("region"))
		if err != nil {
			return err
		}
		sm := di.MustGet[*services.SecretsManagerService](container)
		apiKey, err := sm.GetAPIKey(ctx, secretID)
		if err != nil {
			return err
		}
		logger.Info().Str("secret", secretID).Msg("injecting api key from Secrets Manager")
		secretVars["api_key"] = apiKey
	}
	if len(secretVars) > 0 {
		engine.WithEnv(terraform.MergeVars(secretVars)...)
	}

	logger.Info().Msgf("Reconciling infrastructure: %s (dir %s)", action, dir)
	if err := engine.Reconcile(ctx, action); err != nil {
		return err
	}

	logger.Info().Msg("")
	logger.Info().Msgf("Infrastructure %s complete", action)
	return nil
}

// screenVariables runs the embedded policy over a JSON variables file.
func screenVariables(logger *zerolog.Logger, varFilePath, env string) error {
	data, err := os.ReadFile(varFilePath)
	if err != nil {
		return fmt.Errorf("failed to read variables file: %w", err)
	}

	var vars map[string]interface{}
	if err := json.Unmarshal(data, &vars); err != nil {
		return fmt.Errorf("failed to parse variables file %s: %w", varFilePath, err)
	}

	validator, err := policy.NewValidator()
	if err != nil {
		return err
	}

	result, err := validator.ValidateVariables(vars, env)
	if err != nil {
		return err
	}
	if !result.Allowed {
		for _, violation := range result.Violations {
			logger.Error().Msgf("  ✗ %s", violation)
		}
		return fmt.Errorf("%w: %s", apperrors.ErrPolicyViolation, strings.Join(result.Violations, "; "))
	}

	logger.Info().Msg("  ✓ Variables file passed policy screening")
	return nil
}
