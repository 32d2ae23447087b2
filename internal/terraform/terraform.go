// Package terraform invokes the external Terraform engine over the
// declared infrastructure. All plan/apply/diff/state logic belongs to
// Terraform itself; this package only sequences the phases and surfaces
// the engine's own diagnostics.
package terraform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	apperrors "github.com/piisecure/pii-deployer/internal/errors"
	"github.com/piisecure/pii-deployer/internal/toolchain"
)

const tool = "terraform"

// Action is the operator-selected final phase.
type Action string

const (
	ActionPlan    Action = "plan"
	ActionApply   Action = "apply"
	ActionDestroy Action = "destroy"
)

// ParseAction validates an operator-supplied action string.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionPlan, ActionApply, ActionDestroy:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q (expected plan, apply, or destroy)", apperrors.ErrUnknownAction, s)
	}
}

// Phase tracks progress through init -> validate -> action. There are no
// retries; a failed phase leaves the engine in its prior phase.
type Phase int

const (
	Uninitialized Phase = iota
	Initialized
	Validated
	Completed
)

// Engine runs Terraform in a fixed working directory with a fixed
// variables file.
type Engine struct {
	runner  toolchain.Runner
	dir     string
	varFile string
	env     []string // extra TF_VAR_ entries
	phase   Phase
}

func NewEngine(runner toolchain.Runner, dir, varFile string) *Engine {
	return &Engine{runner: runner, dir: dir, varFile: varFile}
}

// WithEnv appends KEY=VALUE entries to every engine invocation. Used to
// inject TF_VAR_api_key without writing the secret to disk.
func (e *Engine) WithEnv(env ...string) *Engine {
	e.env = append(e.env, env...)
	return e
}

// Phase reports how far the current run has progressed.
func (e *Engine) Phase() Phase {
	return e.phase
}

// Reconcile verifies the variables file exists, then runs init, validate,
// and the requested action in strict order. The variables file check runs
// before any engine call; secrets never fall back to defaults.
func (e *Engine) Reconcile(ctx context.Context, action Action) error {
	varFilePath := e.varFile
	if !filepath.IsAbs(varFilePath) {
		varFilePath = filepath.Join(e.dir, e.varFile)
	}
	if _, err := os.Stat(varFilePath); err != nil {
		return fmt.Errorf("%w: variables file %s", apperrors.ErrMissingConfiguration, varFilePath)
	}

	logger := zerolog.Ctx(ctx)

	logger.Info().Str("dir", e.dir).Msg("terraform init")
	if err := e.run(ctx, "init", "-input=false"); err != nil {
		return err
	}
	e.phase = Initialized

	logger.Info().Msg("terraform validate")
	if err := e.run(ctx, "validate"); err != nil {
		return err
	}
	e.phase = Validated

	logger.Info().Str("action", string(action)).Msg("terraform " + string(action))
	args := []string{string(action), "-input=false", "-var-file=" + e.varFile}
	switch action {
	case ActionApply, ActionDestroy:
		args = append(args, "-auto-approve")
	}
	if err := e.run(ctx, args...); err != nil {
		return err
	}
	e.phase = Completed

	return nil
}

func (e *Engine) run(ctx context.Context, args ...string) error {
	_, err := e.runner.Run(ctx, toolchain.Command{
		Tool:   tool,
		Args:   args,
		Dir:    e.dir,
		Env:    e.env,
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrReconcileFailed, err)
	}
	return nil
}
