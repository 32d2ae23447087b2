package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/piisecure/pii-deployer/internal/di"
	apperrors "github.com/piisecure/pii-deployer/internal/errors"
	"github.com/piisecure/pii-deployer/internal/services"
)

// repositoryManager wraps the ECR service with the logging and org-policy
// behavior the push command wants, and satisfies pipeline.Repositories.
type repositoryManager struct {
	ecr     *services.ECRService
	logger  *zerolog.Logger
	lastARN string
}

func newRepositoryManager(ecr *services.ECRService, logger *zerolog.Logger) *repositoryManager {
	return &repositoryManager{ecr: ecr, logger: logger}
}

func (m *repositoryManager) EnsureRepository(ctx context.Context, repositoryName string) (*services.RepositoryInfo, error) {
	m.logger.Info().Msgf("Ensuring repository: %s", repositoryName)

	repoInfo, err := m.ecr.EnsureRepository(ctx, repositoryName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRepositoryCreateFailed, err)
	}
	m.lastARN = repoInfo.ARN

	m.logger.Info().Msgf("  ✓ Ready: %s", repoInfo.Name)
	m.logger.Info().Msgf("    ARN: %s", repoInfo.ARN)
	m.logger.Info().Msgf("    URI: %s", repoInfo.URI)

	// Org-wide read permissions, when the account is in an organization.
	orgID, err := m.ecr.GetOrganizationID(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Failed to check organization status (will skip org-wide permissions)")
		orgID = ""
	}
	if orgID != "" {
		m.logger.Info().Msgf("  Setting org-wide read permissions (%s)...", orgID)
		if err := m.ecr.SetRepositoryPolicy(ctx, repositoryName, orgID); err != nil {
			m.logger.Warn().Err(err).Msg("    Failed to set org-wide policy (repository still usable)")
		} else {
			m.logger.Info().Msg("  ✓ Org-wide read permissions configured")
		}
	}

	return repoInfo, nil
}

func (m *repositoryManager) GetRegistryCredential(ctx context.Context) (*services.RegistryCredential, error) {
	cred, err := m.ecr.GetRegistryCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrAuthFailed, err)
	}
	return cred, nil
}

// grantPushRole adds ECR push permissions for the repository to an IAM role.
func grantPushRole(ctx context.Context, logger *zerolog.Logger, container di.Container, roleName, repositoryARN string) error {
	if repositoryARN == "" {
		return fmt.Errorf("no repository ARN recorded; cannot grant push permissions")
	}

	logger.Info().Msgf("Adding ECR push permissions to IAM role: %s", roleName)

	iamService := di.MustGet[*services.IAMService](container)
	if err := iamService.GrantECRPush(ctx, roleName, []string{repositoryARN}); err != nil {
		return fmt.Errorf("failed to add ECR permissions to role: %w", err)
	}

	logger.Info().Msg("  ✓ ECR push permissions added to role")
	return nil
}
