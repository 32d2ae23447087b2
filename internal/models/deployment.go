package models

import "time"

// DeploymentTarget identifies where an image is pushed. Built once from CLI
// arguments with defaults and never mutated for the rest of the run.
type DeploymentTarget struct {
	Region         string `json:"region"`          // AWS region (e.g. us-east-1)
	RepositoryName string `json:"repository_name"` // ECR repository name
	ImageTag       string `json:"image_tag"`       // image tag, defaults to latest
}

// RegistryReference is the derived registry address for a DeploymentTarget.
// It exists only for the duration of one invocation.
type RegistryReference struct {
	AccountID string `json:"account_id"` // resolved AWS account ID
	Registry  string `json:"registry"`   // <account>.dkr.ecr.<region>.amazonaws.com
	URI       string `json:"uri"`        // registry + "/" + repository name
}

// Tagged returns the fully qualified image reference including the tag.
func (r RegistryReference) Tagged(tag string) string {
	return r.URI + ":" + tag
}

// ImageRecord is written to the local image-ref file after a successful push
// so operators can see what the last run produced. Nothing else reads it.
type ImageRecord struct {
	RunID    string    `json:"run_id"`    // KSUID minted per invocation
	URI      string    `json:"uri"`       // fully qualified image reference
	Tag      string    `json:"tag"`       // tag portion
	PushedAt time.Time `json:"pushed_at"` // completion time of the push
}
