package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/smithy-go"
)

type ECRService struct {
	client    *ecr.Client
	orgClient *organizations.Client
}

func NewECRService(ctx context.Context, region string) (*ECRService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &ECRService{
		client:    ecr.NewFromConfig(cfg),
		orgClient: organizations.NewFromConfig(cfg),
	}, nil
}

type RepositoryInfo struct {
	Name string
	ARN  string
	URI  string
}

// RegistryCredential is a short-lived docker login credential obtained
// from ECR. Username is always "AWS" for token auth.
type RegistryCredential struct {
	Username  string
	Password  string
	Endpoint  string
	ExpiresAt time.Time
}

// EnsureRepository creates the ECR repository if it does not already
// exist. An AlreadyExists response is success, not failure; the existing
// repository is described and returned.
func (s *ECRService) EnsureRepository(ctx context.Context, repositoryName string) (*RepositoryInfo, error) {
	input := &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(repositoryName),
		ImageScanningConfiguration: &types.ImageScanningConfiguration{
			ScanOnPush: true,
		},
		Tags: []types.Tag{
			{
				Key:   aws.String("ManagedBy"),
				Value: aws.String("pii-deployer"),
			},
		},
	}

	output, err := s.client.CreateRepository(ctx, input)
	if err != nil {
		var alreadyExists *types.RepositoryAlreadyExistsException
		if errors.As(err, &alreadyExists) {
			describeOutput, describeErr := s.client.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
				RepositoryNames: []string{repositoryName},
			})
			if describeErr != nil {
				return nil, fmt.Errorf("repository exists but failed to describe: %w", describeErr)
			}
			if len(describeOutput.Repositories) == 0 {
				return nil, fmt.Errorf("repository exists but not found in describe")
			}
			repo := describeOutput.Repositories[0]
			return &RepositoryInfo{
				Name: aws.ToString(repo.RepositoryName),
				ARN:  aws.ToString(repo.RepositoryArn),
				URI:  aws.ToString(repo.RepositoryUri),
			}, nil
		}
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	return &RepositoryInfo{
		Name: aws.ToString(output.Repository.RepositoryName),
		ARN:  aws.ToString(output.Repository.RepositoryArn),
		URI:  aws.ToString(output.Repository.RepositoryUri),
	}, nil
}

// GetRegistryCredential exchanges the caller's AWS credentials for a
// short-lived docker login token.
func (s *ECRService) GetRegistryCredential(ctx context.Context) (*RegistryCredential, error) {
	output, err := s.client.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization token: %w", err)
	}
	if len(output.AuthorizationData) == 0 {
		return nil, fmt.Errorf("authorization token response contained no data")
	}

	data := output.AuthorizationData[0]
	decoded, err := base64.StdEncoding.DecodeString(aws.ToString(data.AuthorizationToken))
	if err != nil {
		return nil, fmt.Errorf("failed to decode authorization token: %w", err)
	}

	// Token decodes to "user:password"
	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil, fmt.Errorf("authorization token has unexpected format")
	}

	endpoint := strings.TrimPrefix(aws.ToString(data.ProxyEndpoint), "https://")

	var expiresAt time.Time
	if data.ExpiresAt != nil {
		expiresAt = *data.ExpiresAt
	}

	return &RegistryCredential{
		Username:  username,
		Password:  password,
		Endpoint:  endpoint,
		ExpiresAt: expiresAt,
	}, nil
}

// GetOrganizationID retrieves the AWS Organization ID if the account belongs to one
func (s *ECRService) GetOrganizationID(ctx context.Context) (string, error) {
	output, err := s.orgClient.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{})
	if err != nil {
		// Not in an organization or no permissions
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "AWSOrganizationsNotInUseException", "AccessDeniedException":
				return "", nil
			}
		}
		return "", fmt.Errorf("failed to describe organization: %w", err)
	}

	return aws.ToString(output.Organization.Id), nil
}

// SetRepositoryPolicy sets an organization-wide read policy on the repository
func (s *ECRService) SetRepositoryPolicy(ctx context.Context, repositoryName, organizationID string) error {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Sid":    "OrganizationAccess",
				"Effect": "Allow",
				"Principal": map[string]interface{}{
					"AWS": "*",
				},
				"Action": []string{
					"ecr:GetDownloadUrlForLayer",
					"ecr:BatchGetImage",
					"ecr:BatchCheckLayerAvailability",
					"ecr:DescribeRepositories",
					"ecr:GetRepositoryPolicy",
					"ecr:ListImages",
				},
				"Condition": map[string]interface{}{
					"StringEquals": map[string]interface{}{
						"aws:PrincipalOrgID": organizationID,
					},
				},
			},
		},
	}

	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}

	_, err = s.client.SetRepositoryPolicy(ctx, &ecr.SetRepositoryPolicyInput{
		RepositoryName: aws.String(repositoryName),
		PolicyText:     aws.String(string(policyJSON)),
	})
	if err != nil {
		return fmt.Errorf("failed to set repository policy: %w", err)
	}

	return nil
}
