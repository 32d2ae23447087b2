// Package toolchain wraps invocation of external command line tools
// (docker, terraform). Every call is blocking; the pipeline never runs
// two external commands at once.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/piisecure/pii-deployer/internal/errors"
)

// Runner executes external commands. The exec-backed implementation is
// used in production; tests substitute a fake.
type Runner interface {
	// LookPath reports whether the named tool is available on PATH.
	LookPath(tool string) (string, error)

	// Run executes the tool with args and returns its stdout. A non-zero
	// exit returns an error carrying the tool's stderr verbatim.
	Run(ctx context.Context, spec Command) ([]byte, error)
}

// Command describes a single external invocation.
type Command struct {
	Tool    string    // executable name, resolved via PATH
	Args    []string  // arguments, excluding the tool itself
	Dir     string    // working directory; empty means inherit
	Env     []string  // extra KEY=VALUE entries appended to os.Environ
	Stdin   io.Reader // optional stdin (used for docker login --password-stdin)
	Stream  bool      // mirror stdout/stderr to the process streams as well
}

type execRunner struct{}

// NewRunner returns the exec-backed Runner.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) LookPath(tool string) (string, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s", apperrors.ErrMissingTool, tool)
	}
	return path, nil
}

func (r execRunner) Run(ctx context.Context, spec Command) ([]byte, error) {
	path, err := r.LookPath(spec.Tool)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stdin = spec.Stdin
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	var stdout, stderr bytes.Buffer
	if spec.Stream {
		cmd.Stdout = io.MultiWriter(&stdout, os.Stdout)
		cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("tool", spec.Tool).
		Str("args", strings.Join(spec.Args, " ")).
		Msg("running external command")

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("%s %s: %w: %s",
			spec.Tool, firstArg(spec.Args), err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
