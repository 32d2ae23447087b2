package policy

import (
	"encoding/json"
	"testing"
)

func TestNewValidator_PolicyParses(t *testing.T) {
	if _, err := NewValidator(); err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
}

func TestValidator_ValidateVariables(t *testing.T) {
	validator, err := NewValidator()
	if err != nil {
		t.Fatalf("Failed to create validator: %v", err)
	}

	tests := []struct {
		name             string
		vars             string
		env              string
		expectAllow      bool
		expectViolations []string
	}{
		{
			name: "valid production variables",
			vars: `{
				"api_key": "prd-3f9c1a7b",
				"lambda_function_name": "pii-encryption-handler",
				"allowed_origins": ["https://app.example.com"],
				"min_instances": 1,
				"max_instances": 4
			}`,
			env:         "prod",
			expectAllow: true,
		},
		{
			name: "missing api_key",
			vars: `{
				"lambda_function_name": "pii-encryption-handler",
				"min_instances": 1,
				"max_instances": 2
			}`,
			env:         "dev",
			expectAllow: false,
			expectViolations: []string{
				"api_key must be set",
			},
		},
		{
			name: "placeholder api_key",
			vars: `{
				"api_key": "dev-api-key-change-in-production",
				"lambda_function_name": "pii-encryption-handler",
				"min_instances": 1,
				"max_instances": 2
			}`,
			env:         "prod",
			expectAllow: false,
			expectViolations: []string{
				"api_key is still the development placeholder",
			},
		},
		{
			name: "wildcard origins allowed in dev",
			vars: `{
				"api_key": "dev-key-7c21",
				"lambda_function_name": "pii-encryption-handler",
				"allowed_origins": ["*"],
				"min_instances": 1,
				"max_instances": 2
			}`,
			env:         "dev",
			expectAllow: true,
		},
		{
			name: "wildcard origins rejected in prod",
			vars: `{
				"api_key": "prd-3f9c1a7b",
				"lambda_function_name": "pii-encryption-handler",
				"allowed_origins": ["*"],
				"min_instances": 1,
				"max_instances": 2
			}`,
			env:         "prod",
			expectAllow: false,
			expectViolations: []string{
				"wildcard allowed_origins is not permitted in prod",
			},
		},
		{
			name: "inverted instance bounds",
			vars: `{
				"api_key": "prd-3f9c1a7b",
				"lambda_function_name": "pii-encryption-handler",
				"min_instances": 5,
				"max_instances": 2
			}`,
			env:         "prod",
			expectAllow: false,
			expectViolations: []string{
				"min_instances (5) exceeds max_instances (2)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var vars map[string]interface{}
			if err := json.Unmarshal([]byte(tt.vars), &vars); err != nil {
				t.Fatalf("Failed to parse test variables: %v", err)
			}

			result, err := validator.ValidateVariables(vars, tt.env)
			if err != nil {
				t.Fatalf("ValidateVariables returned error: %v", err)
			}

			if result.Allowed != tt.expectAllow {
				t.Errorf("Allowed = %v, want %v (violations: %v)", result.Allowed, tt.expectAllow, result.Violations)
			}

			for _, want := range tt.expectViolations {
				found := false
				for _, got := range result.Violations {
					if got == want {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("expected violation %q, got %v", want, result.Violations)
				}
			}
		})
	}
}
