package trainer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
)

// logTailLines is how much container output an ExitError carries.
const logTailLines = "100"

// ExitError reports a container that exited non-zero.
type ExitError struct {
	Stage    string
	ExitCode int64
	LogTail  string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s container exited with code %d", e.Stage, e.ExitCode)
	if tail := strings.TrimSpace(e.LogTail); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

// Runner runs stage containers on a Docker daemon.
type Runner struct {
	cli    *client.Client
	logger zerolog.Logger
}

func NewRunner(cli *client.Client, logger zerolog.Logger) *Runner {
	return &Runner{cli: cli, logger: logger}
}

// Connect builds a Runner on the daemon named by the DOCKER_* environment and
// checks the daemon answers before any job is submitted.
func Connect(ctx context.Context, logger zerolog.Logger) (*Runner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf(`trainer needs a Docker daemon: %w

Start Docker, or point DOCKER_HOST at a reachable daemon`, err)
	}

	return NewRunner(cli, logger), nil
}

// Close releases the Docker client.
func (r *Runner) Close() error {
	return r.cli.Close()
}

// Train runs the training container to completion. The model directory is
// created if needed.
func (r *Runner) Train(ctx context.Context, job TrainJob) error {
	cfg, hostCfg, err := job.containerSpec()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(job.ModelDir, 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	return r.run(ctx, "train", ContainerName(job.Pipeline, "train", job.RunID), cfg, hostCfg)
}

// Predict runs the prediction container and checks it left a predictions file.
func (r *Runner) Predict(ctx context.Context, job PredictJob) error {
	cfg, hostCfg, err := job.containerSpec()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(job.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create evaluation directory: %w", err)
	}
	if err := r.run(ctx, "predict", ContainerName(job.Pipeline, "predict", job.RunID), cfg, hostCfg); err != nil {
		return err
	}
	if _, err := os.Stat(job.PredictionsPath()); err != nil {
		return fmt.Errorf("prediction container did not write %s: %w", PredictionsFile, err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, stage, name string, cfg *container.Config, hostCfg *container.HostConfig) error {
	if err := r.ensureImage(ctx, cfg.Image); err != nil {
		return err
	}

	resp, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return fmt.Errorf("failed to create %s container: %w", stage, err)
	}
	// Removal uses a fresh context so a cancelled run still cleans up
	defer func() {
		if err := r.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true}); err != nil {
			r.logger.Warn().Err(err).Str("container", name).Msg("Failed to remove container")
		}
	}()

	if err := r.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start %s container: %w", stage, err)
	}
	r.logger.Info().Str("container", name).Str("image", cfg.Image).Msg("Container started")

	statusCh, errCh := r.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed waiting for %s container: %w", stage, err)
	case status := <-statusCh:
		if status.Error != nil {
			return fmt.Errorf("%s container wait error: %s", stage, status.Error.Message)
		}
		if status.StatusCode != 0 {
			return &ExitError{Stage: stage, ExitCode: status.StatusCode, LogTail: r.logTail(ctx, resp.ID)}
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	r.logger.Info().Str("container", name).Msg("Container finished")
	return nil
}

// ensureImage pulls the image if it is not present locally.
func (r *Runner) ensureImage(ctx context.Context, image string) error {
	if _, _, err := r.cli.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	}

	r.logger.Info().Str("image", image).Msg("Pulling image")
	reader, err := r.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", image, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to complete image pull %s: %w", image, err)
	}
	return nil
}

// logTail returns the last lines of container output, stdout and stderr
// interleaved.
func (r *Runner) logTail(ctx context.Context, containerID string) string {
	reader, err := r.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       logTailLines,
	})
	if err != nil {
		return fmt.Sprintf("(failed to retrieve logs: %v)", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, reader); err != nil {
		return fmt.Sprintf("(failed to read logs: %v)", err)
	}
	return buf.String()
}
