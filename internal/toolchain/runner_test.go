package toolchain

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/piisecure/pii-deployer/internal/errors"
)

func TestLookPath_MissingTool(t *testing.T) {
	runner := NewRunner()
	_, err := runner.LookPath("definitely-not-a-real-tool-xyz")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrMissingTool)
	assert.Contains(t, err.Error(), "definitely-not-a-real-tool-xyz")
}

func TestRun_CapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	runner := NewRunner()
	out, err := runner.Run(context.Background(), Command{
		Tool: "sh",
		Args: []string{"-c", "echo hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", strings.TrimSpace(string(out)))
}

func TestRun_SurfacesStderrOnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	runner := NewRunner()
	_, err := runner.Run(context.Background(), Command{
		Tool: "sh",
		Args: []string{"-c", "echo boom 1>&2; exit 3"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestRun_ReadsStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	runner := NewRunner()
	out, err := runner.Run(context.Background(), Command{
		Tool:  "sh",
		Args:  []string{"-c", "cat"},
		Stdin: strings.NewReader("piped-secret"),
	})
	require.NoError(t, err)
	assert.Equal(t, "piped-secret", string(out))
}
