package runner

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// DockerExecutor executes code in ephemeral Docker containers with the
// network disabled and memory/CPU capped. One container per run.
type DockerExecutor struct {
	client   *client.Client
	image    string
	memoryMB int
	cpuLimit float64
}

// DockerConfig holds Docker executor configuration
type DockerConfig struct {
	Image    string
	MemoryMB int
	CPULimit float64
}

// NewDockerExecutor creates a new Docker executor
func NewDockerExecutor(cfg DockerConfig) (*DockerExecutor, error) {
	if cfg.Image == "" {
		cfg.Image = "python:3.12-alpine"
	}
	if cfg.MemoryMB == 0 {
		cfg.MemoryMB = 128
	}
	if cfg.CPULimit == 0 {
		cfg.CPULimit = 0.5
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	// Verify Docker is reachable
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker not reachable: %w", err)
	}

	return &DockerExecutor{
		client:   cli,
		image:    cfg.Image,
		memoryMB: cfg.MemoryMB,
		cpuLimit: cfg.CPULimit,
	}, nil
}

// Run executes the source inside a fresh container and tears it down.
func (e *DockerExecutor) Run(ctx context.Context, source, stdin string) (*ExecResult, error) {
	if err := e.ensureImage(ctx); err != nil {
		return nil, fmt.Errorf("ensure image: %w", err)
	}

	containerID, err := e.createContainer(ctx)
	if err != nil {
		return nil, err
	}
	defer e.destroyContainer(containerID)

	files := map[string]string{"main.py": source}
	if stdin != "" {
		files["stdin.txt"] = stdin
	}
	if err := e.copyFiles(ctx, containerID, files); err != nil {
		return nil, fmt.Errorf("copy files: %w", err)
	}

	cmd := []string{"python3", "/workspace/main.py"}
	if stdin != "" {
		cmd = []string{"sh", "-c", "python3 /workspace/main.py < /workspace/stdin.txt"}
	}
	return e.exec(ctx, containerID, cmd)
}

func (e *DockerExecutor) createContainer(ctx context.Context) (string, error) {
	containerCfg := &container.Config{
		Image:           e.image,
		Cmd:             []string{"sh", "-c", "while true; do sleep 3600; done"},
		WorkingDir:      "/workspace",
		NetworkDisabled: true,
		Tty:             false,
		Labels: map[string]string{
			"pyquest.runner": "true",
		},
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:   int64(e.memoryMB) * 1024 * 1024,
			NanoCPUs: int64(e.cpuLimit * 1e9),
		},
	}

	resp, err := e.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}

	if err := e.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		_ = e.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("start container: %w", err)
	}

	return resp.ID, nil
}

func (e *DockerExecutor) copyFiles(ctx context.Context, containerID string, files map[string]string) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for name, content := range files {
		header := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(header); err != nil {
			return fmt.Errorf("write tar header: %w", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			return fmt.Errorf("write tar content: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}

	return e.client.CopyToContainer(ctx, containerID, "/workspace", &buf, container.CopyToContainerOptions{})
}

func (e *DockerExecutor) exec(ctx context.Context, containerID string, cmd []string) (*ExecResult, error) {
	execCfg := container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   "/workspace",
		AttachStdout: true,
		AttachStderr: true,
	}

	execResp, err := e.client.ContainerExecCreate(ctx, containerID, execCfg)
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	start := time.Now()

	attachResp, err := e.client.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	defer attachResp.Close()

	// Read combined output
	var outBuf bytes.Buffer
	_, copyErr := io.Copy(&outBuf, attachResp.Reader)

	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		stdout, stderr := demuxOutput(outBuf.Bytes())
		return &ExecResult{
			Stdout:   stdout,
			Stderr:   stderr,
			ExitCode: -1,
			TimedOut: true,
			Duration: duration,
		}, nil
	}
	if copyErr != nil {
		return nil, fmt.Errorf("read exec output: %w", copyErr)
	}

	// Get exit code
	inspectResp, err := e.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect exec: %w", err)
	}

	stdout, stderr := demuxOutput(outBuf.Bytes())
	return &ExecResult{
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: inspectResp.ExitCode,
		Duration: duration,
	}, nil
}

func (e *DockerExecutor) destroyContainer(containerID string) {
	// Teardown runs on a fresh context so a cancelled run still cleans up.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	timeout := 5
	_ = e.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	_ = e.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true})
}

// Close closes the Docker client.
func (e *DockerExecutor) Close() error {
	return e.client.Close()
}

func (e *DockerExecutor) ensureImage(ctx context.Context) error {
	_, err := e.client.ImageInspect(ctx, e.image)
	if err == nil {
		return nil // Already present
	}

	reader, err := e.client.ImagePull(ctx, e.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", e.image, err)
	}
	defer reader.Close()
	// Drain the reader to complete the pull
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

// demuxOutput separates Docker multiplexed stdout/stderr streams.
// Docker stream protocol uses 8-byte headers: [type][0][0][0][size1][size2][size3][size4]
// type: 1=stdout, 2=stderr
func demuxOutput(data []byte) (stdout, stderr string) {
	var outBuf, errBuf strings.Builder

	for len(data) >= 8 {
		streamType := data[0]
		size := int(data[4])<<24 | int(data[5])<<16 | int(data[6])<<8 | int(data[7])
		data = data[8:]

		if size > len(data) {
			size = len(data)
		}

		chunk := string(data[:size])
		data = data[size:]

		switch streamType {
		case 1:
			outBuf.WriteString(chunk)
		case 2:
			errBuf.WriteString(chunk)
		}
	}

	// If no headers were found, treat entire output as stdout
	if outBuf.Len() == 0 && errBuf.Len() == 0 && len(data) > 0 {
		return string(data), ""
	}

	return outBuf.String(), errBuf.String()
}
