// Package config loads the optional deploy.yaml pipeline configuration.
// Flags always win over the file; the file wins over built-in defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither a flag nor deploy.yaml supplies a value.
const (
	DefaultRegion         = "us-east-1"
	DefaultRepositoryName = "pii-backend"
	DefaultImageTag       = "latest"
	DefaultContextDir     = "."
	DefaultOutputFile     = ".image-ref"
	DefaultTerraformDir   = "terraform"
	DefaultVarFile        = "terraform.tfvars"
)

// File mirrors deploy.yaml. Zero values mean "not set".
type File struct {
	Region         string `yaml:"region"`
	RepositoryName string `yaml:"repository_name"`
	ImageTag       string `yaml:"image_tag"`
	ContextDir     string `yaml:"context_dir"`
	Dockerfile     string `yaml:"dockerfile"`
	OutputFile     string `yaml:"output_file"`
	TerraformDir   string `yaml:"terraform_dir"`
	VarFile        string `yaml:"var_file"`
}

// Load reads deploy.yaml from path. A missing file is not an error; the
// zero File is returned so defaults apply.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return &f, nil
}

// Coalesce returns the first non-empty value.
func Coalesce(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
