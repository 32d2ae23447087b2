// Package docker drives the local container engine through its CLI.
package docker

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/piisecure/pii-deployer/internal/errors"
	"github.com/piisecure/pii-deployer/internal/toolchain"
)

const tool = "docker"

type Client struct {
	runner toolchain.Runner
}

func NewClient(runner toolchain.Runner) *Client {
	return &Client{runner: runner}
}

// BuildOptions describes one image build. Dockerfile may be empty, in
// which case the engine's default (Dockerfile in the context root) applies.
type BuildOptions struct {
	ContextDir string
	Dockerfile string
	LocalTag   string
}

// Build runs `docker build` against the fixed build context. Build output
// is streamed so the operator can watch layer progress.
func (c *Client) Build(ctx context.Context, opts BuildOptions) error {
	args := []string{"build", "-t", opts.LocalTag}
	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}
	args = append(args, opts.ContextDir)

	if _, err := c.runner.Run(ctx, toolchain.Command{Tool: tool, Args: args, Stream: true}); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBuildFailed, err)
	}
	return nil
}

// Tag applies the resolved registry reference to the locally built image.
func (c *Client) Tag(ctx context.Context, localTag, remoteRef string) error {
	if _, err := c.runner.Run(ctx, toolchain.Command{Tool: tool, Args: []string{"tag", localTag, remoteRef}}); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBuildFailed, err)
	}
	return nil
}

// Login authenticates the engine against the registry using a short-lived
// password piped over stdin. The password never appears in the argument
// list or the process table.
func (c *Client) Login(ctx context.Context, registry, username, password string) error {
	_, err := c.runner.Run(ctx, toolchain.Command{
		Tool:  tool,
		Args:  []string{"login", "--username", username, "--password-stdin", registry},
		Stdin: strings.NewReader(password),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrAuthFailed, err)
	}
	return nil
}

// Push uploads the tagged image. Output is streamed for layer progress.
func (c *Client) Push(ctx context.Context, remoteRef string) error {
	if _, err := c.runner.Run(ctx, toolchain.Command{Tool: tool, Args: []string{"push", remoteRef}, Stream: true}); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrPushFailed, err)
	}
	return nil
}
