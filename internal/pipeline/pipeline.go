// Package pipeline sequences the build-and-push flow: resolve registry,
// ensure repository, build, tag, authenticate, push, record. Steps run
// one at a time and the first failure aborts the run; there is no retry
// and no rollback. Re-running relies on the repository create being
// idempotent and the push overwriting the tag.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"

	"github.com/piisecure/pii-deployer/internal/docker"
	"github.com/piisecure/pii-deployer/internal/models"
	"github.com/piisecure/pii-deployer/internal/services"
)

// RegistryResolver derives the registry address for a target.
type RegistryResolver interface {
	Resolve(ctx context.Context, target models.DeploymentTarget) (*models.RegistryReference, error)
}

// Repositories is the ECR surface the pipeline needs.
type Repositories interface {
	EnsureRepository(ctx context.Context, repositoryName string) (*services.RepositoryInfo, error)
	GetRegistryCredential(ctx context.Context) (*services.RegistryCredential, error)
}

// ImageEngine is the container-engine surface the pipeline needs.
type ImageEngine interface {
	Build(ctx context.Context, opts docker.BuildOptions) error
	Tag(ctx context.Context, localTag, remoteRef string) error
	Login(ctx context.Context, registry, username, password string) error
	Push(ctx context.Context, remoteRef string) error
}

// Recorder persists the image record somewhere other than the local file.
// Optional; nil means file-only.
type Recorder interface {
	PutImageRecord(ctx context.Context, repositoryName string, record models.ImageRecord) error
	GetImageRecord(ctx context.Context, repositoryName string) (*models.ImageRecord, error)
}

// Options configures one pipeline run.
type Options struct {
	Target     models.DeploymentTarget
	ContextDir string
	Dockerfile string
	OutputFile string // local file the resolved image reference is written to
}

type Pipeline struct {
	resolver RegistryResolver
	repos    Repositories
	engine   ImageEngine
	recorder Recorder
	now      func() time.Time
}

func New(resolver RegistryResolver, repos Repositories, engine ImageEngine, recorder Recorder) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		repos:    repos,
		engine:   engine,
		recorder: recorder,
		now:      time.Now,
	}
}

// Run executes the whole push sequence and returns the image record.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*models.ImageRecord, error) {
	logger := zerolog.Ctx(ctx)
	runID := ksuid.New().String()
	logger.Info().Str("run_id", runID).Str("repo", opts.Target.RepositoryName).Msg("starting push pipeline")

	if p.recorder != nil {
		// A missing record just means this is the first recorded push.
		if prev, err := p.recorder.GetImageRecord(ctx, opts.Target.RepositoryName); err == nil {
			logger.Info().Str("image", prev.URI).Time("pushed_at", prev.PushedAt).Msg("previous recorded push")
		}
	}

	ref, err := p.resolver.Resolve(ctx, opts.Target)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("uri", ref.URI).Msg("resolved registry address")

	repoInfo, err := p.repos.EnsureRepository(ctx, opts.Target.RepositoryName)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("arn", repoInfo.ARN).Msg("repository ready")

	localTag := opts.Target.RepositoryName + ":" + opts.Target.ImageTag
	if err := p.engine.Build(ctx, docker.BuildOptions{
		ContextDir: opts.ContextDir,
		Dockerfile: opts.Dockerfile,
		LocalTag:   localTag,
	}); err != nil {
		return nil, err
	}

	remoteRef := ref.Tagged(opts.Target.ImageTag)
	if err := p.engine.Tag(ctx, localTag, remoteRef); err != nil {
		return nil, err
	}

	cred, err := p.repos.GetRegistryCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain registry credential: %w", err)
	}
	if err := p.engine.Login(ctx, ref.Registry, cred.Username, cred.Password); err != nil {
		return nil, err
	}

	if err := p.engine.Push(ctx, remoteRef); err != nil {
		return nil, err
	}

	record := models.ImageRecord{
		RunID:    runID,
		URI:      remoteRef,
		Tag:      opts.Target.ImageTag,
		PushedAt: p.now().UTC(),
	}

	if opts.OutputFile != "" {
		if err := writeRecord(opts.OutputFile, record); err != nil {
			// The push already succeeded; the record file is operator
			// convenience only, so warn rather than fail the run.
			logger.Warn().Err(err).Str("path", opts.OutputFile).Msg("failed to write image-ref file")
		}
	}

	if p.recorder != nil {
		if err := p.recorder.PutImageRecord(ctx, opts.Target.RepositoryName, record); err != nil {
			logger.Warn().Err(err).Msg("failed to record image reference in parameter store")
		}
	}

	logger.Info().Str("image", remoteRef).Msg("push pipeline complete")
	return &record, nil
}

func writeRecord(path string, record models.ImageRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
