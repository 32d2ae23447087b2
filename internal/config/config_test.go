package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
region: eu-west-1
repository_name: pii-backend
image_tag: v1.2.0
terraform_dir: infra
`), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", f.Region)
	assert.Equal(t, "pii-backend", f.RepositoryName)
	assert.Equal(t, "v1.2.0", f.ImageTag)
	assert.Equal(t, "infra", f.TerraformDir)
	assert.Empty(t, f.VarFile)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "deploy.yaml"))
	require.NoError(t, err)
	assert.Equal(t, &File{}, f)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("region: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "flag", Coalesce("flag", "file", "default"))
	assert.Equal(t, "file", Coalesce("", "file", "default"))
	assert.Equal(t, "default", Coalesce("", "", "default"))
	assert.Equal(t, "", Coalesce())
}
