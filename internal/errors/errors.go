package errors

import "errors"

var (
	ErrMissingTool            = errors.New("required tool not found on PATH")
	ErrInvalidCredentials     = errors.New("AWS credentials are missing or invalid")
	ErrIdentityLookupFailed   = errors.New("failed to resolve AWS account identity")
	ErrRepositoryCreateFailed = errors.New("failed to create image repository")
	ErrBuildFailed            = errors.New("container image build failed")
	ErrAuthFailed             = errors.New("registry authentication failed")
	ErrPushFailed             = errors.New("image push failed")
	ErrMissingConfiguration   = errors.New("required configuration file not found")
	ErrReconcileFailed        = errors.New("infrastructure reconciliation failed")
	ErrUnknownAction          = errors.New("unknown reconcile action")
	ErrPolicyViolation        = errors.New("variables file rejected by policy")
)
