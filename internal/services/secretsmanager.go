package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

type SecretsManagerService struct {
	client *secretsmanager.Client
}

func NewSecretsManagerService(ctx context.Context) (*SecretsManagerService, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SecretsManagerService{
		client: secretsmanager.NewFromConfig(cfg),
	}, nil
}

// GetAPIKey retrieves the backend API key from Secrets Manager. The secret
// may be a raw string or a JSON object with an "api_key" field.
func (s *SecretsManagerService) GetAPIKey(ctx context.Context, secretID string) (string, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", secretID, err)
	}

	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", secretID)
	}

	raw := *result.SecretString

	var wrapped struct {
		APIKey string `json:"api_key"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.APIKey != "" {
		return wrapped.APIKey, nil
	}

	return raw, nil
}
