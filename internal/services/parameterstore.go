package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/piisecure/pii-deployer/internal/models"
)

// SSMImageRecordStore keeps the last pushed image reference in SSM
// Parameter Store so a later run can report what it is about to replace
// without access to the local image-ref file.
type SSMImageRecordStore struct {
	client *ssm.Client
}

func NewSSMImageRecordStore(ctx context.Context, region string) (*SSMImageRecordStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SSMImageRecordStore{client: ssm.NewFromConfig(cfg)}, nil
}

func parameterPath(repositoryName string) string {
	return fmt.Sprintf("/pii-deployer/%s/last-image", repositoryName)
}

// PutImageRecord overwrites the last-image parameter for the repository.
func (s *SSMImageRecordStore) PutImageRecord(ctx context.Context, repositoryName string, record models.ImageRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal image record: %w", err)
	}

	path := parameterPath(repositoryName)
	_, err = s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:        aws.String(path),
		Value:       aws.String(string(value)),
		Type:        types.ParameterTypeString,
		Overwrite:   aws.Bool(true),
		Description: aws.String(fmt.Sprintf("Last image pushed for %s by pii-deployer", repositoryName)),
	})
	if err != nil {
		return fmt.Errorf("failed to put parameter %s: %w", path, err)
	}

	return nil
}

// GetImageRecord returns the last recorded push for the repository.
func (s *SSMImageRecordStore) GetImageRecord(ctx context.Context, repositoryName string) (*models.ImageRecord, error) {
	path := parameterPath(repositoryName)
	result, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get parameter %s: %w", path, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return nil, fmt.Errorf("parameter %s not found", path)
	}

	var record models.ImageRecord
	if err := json.Unmarshal([]byte(*result.Parameter.Value), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal image record: %w", err)
	}

	return &record, nil
}
