// Package registry derives the canonical ECR registry address for a
// deployment target from the caller's AWS identity.
package registry

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/distribution/reference"

	apperrors "github.com/piisecure/pii-deployer/internal/errors"
	"github.com/piisecure/pii-deployer/internal/models"
)

// CallerIdentityAPI is the subset of the STS client used by the resolver.
type CallerIdentityAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

type Resolver struct {
	stsClient CallerIdentityAPI
}

func NewResolver(stsClient CallerIdentityAPI) *Resolver {
	return &Resolver{stsClient: stsClient}
}

// Resolve looks up the caller's account ID and composes the registry
// address for the target. The composition itself is pure; given a fixed
// account ID the result is deterministic.
func (r *Resolver) Resolve(ctx context.Context, target models.DeploymentTarget) (*models.RegistryReference, error) {
	output, err := r.stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIdentityLookupFailed, err)
	}

	accountID := aws.ToString(output.Account)
	if accountID == "" {
		return nil, fmt.Errorf("%w: caller identity returned empty account", apperrors.ErrIdentityLookupFailed)
	}

	ref := Compose(accountID, target.Region, target.RepositoryName)

	// Guard against malformed repository names before anything is pushed.
	if _, err := reference.ParseNamed(ref.URI); err != nil {
		return nil, fmt.Errorf("derived registry address %q is not a valid image reference: %w", ref.URI, err)
	}

	return &ref, nil
}

// Compose builds the registry reference from its parts using the fixed
// template <account>.dkr.ecr.<region>.amazonaws.com/<repositoryName>.
func Compose(accountID, region, repositoryName string) models.RegistryReference {
	registry := fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com", accountID, region)
	return models.RegistryReference{
		AccountID: accountID,
		Registry:  registry,
		URI:       registry + "/" + repositoryName,
	}
}
