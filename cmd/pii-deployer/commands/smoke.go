package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func SmokeCommand(logger *zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "smoke",
		Usage: "Probe a deployed service until it reports healthy",
		Description: `Polls GET /health on the deployed service until it returns 200 with a
healthy status, then fetches the root identity payload. Matches the
liveness contract App Runner itself uses, so a passing smoke test means
the platform health checks will pass too.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Usage:    "Base URL of the deployed service",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to keep polling before giving up",
				Value: 2 * time.Minute,
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Delay between polls",
				Value: 3 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			return smokeAction(c, logger)
		},
	}
}

type healthPayload struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

type identityPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func smokeAction(c *cli.Context, logger *zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	baseURL := c.String("url")
	interval := c.Duration("interval")
	client := &http.Client{Timeout: 10 * time.Second}

	logger.Info().Str("url", baseURL).Msg("waiting for service to report healthy")

	var health healthPayload
	for {
		err := fetchJSON(ctx, client, baseURL+"/health", &health)
		if err == nil && health.Status == "healthy" {
			break
		}

		if err != nil {
			logger.Debug().Err(err).Msg("health probe failed, retrying")
		} else {
			logger.Debug().Str("status", health.Status).Msg("service not healthy yet")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("service did not become healthy within %s", c.Duration("timeout"))
		case <-time.After(interval):
		}
	}
	logger.Info().Msg("  ✓ /health reports healthy")

	var identity identityPayload
	if err := fetchJSON(ctx, client, baseURL+"/", &identity); err != nil {
		return fmt.Errorf("failed to fetch identity payload: %w", err)
	}
	logger.Info().Msgf("  ✓ / responds: %s", identity.Message)

	logger.Info().Msg("")
	logger.Info().Msg("Smoke test passed!")
	return nil
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
