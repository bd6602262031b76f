package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/devsha256/anypoint-automation-utils/internal/batch"
	"github.com/devsha256/anypoint-automation-utils/internal/config"
	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

// Platform CLI command namespace for application lifecycle operations.
const (
	listCommand      = "runtime-mgr:application:list"
	lifecycleCommand = "runtime-mgr:application:%s"
)

// Runner executes one external command and returns its captured stdout.
// Abstracting the subprocess behind this interface keeps the executor
// testable without spawning real processes.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// execRunner runs commands with os/exec, capturing stdout and stderr
type execRunner struct{}

// Run executes the command and returns stdout. On a non-zero exit the
// trimmed stderr is used as the failure message when present.
func (execRunner) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%s: %s", binary, detail)
	}

	return stdout.Bytes(), nil
}

// CLIExecutor implements the orchestrator's Executor contract by invoking
// the external platform CLI as a subprocess. Credentials and scoping come
// from the injected Config; every invocation carries them as flags.
type CLIExecutor struct {
	cfg    *config.Config
	logger *logrus.Logger
	runner Runner
}

// NewCLIExecutor creates a new subprocess-backed executor
func NewCLIExecutor(cfg *config.Config, logger *logrus.Logger) *CLIExecutor {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	return &CLIExecutor{
		cfg:    cfg,
		logger: logger,
		runner: execRunner{},
	}
}

// WithRunner sets the command runner
func (e *CLIExecutor) WithRunner(runner Runner) *CLIExecutor {
	e.runner = runner
	return e
}

// ListApplications fetches the full application inventory from the platform
func (e *CLIExecutor) ListApplications(ctx context.Context) ([]api.Application, error) {
	e.logger.WithField("binary", e.cfg.CLIBinary).Debug("Fetching application inventory")

	out, err := e.runner.Run(ctx, e.cfg.CLIBinary, e.buildArgs(listCommand, "--output", "json"))
	if err != nil {
		return nil, fmt.Errorf("inventory fetch failed: %w", err)
	}

	apps, err := decodeInventory(out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}

	e.logger.WithField("count", len(apps)).Debug("Fetched application inventory")
	return apps, nil
}

// PerformLifecycleOp issues one start or stop command against an application
func (e *CLIExecutor) PerformLifecycleOp(ctx context.Context, kind api.OperationKind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("unsupported operation kind: %q", kind)
	}

	e.logger.WithFields(logrus.Fields{
		"app_id":    id,
		"operation": kind,
	}).Debug("Issuing lifecycle command")

	command := fmt.Sprintf(lifecycleCommand, kind)
	if _, err := e.runner.Run(ctx, e.cfg.CLIBinary, e.buildArgs(command, id)); err != nil {
		return &batch.CommandError{ID: id, Message: err.Error()}
	}

	return nil
}

// buildArgs assembles the CLI argument list: the command, its arguments,
// then the organization/environment scoping and credential flags from the
// config. Empty config values are omitted so the CLI can fall back to its
// own stored session.
func (e *CLIExecutor) buildArgs(command string, args ...string) []string {
	full := append([]string{command}, args...)

	if e.cfg.OrgID != "" {
		full = append(full, "--organization", e.cfg.OrgID)
	}
	if e.cfg.EnvID != "" {
		full = append(full, "--environment", e.cfg.EnvID)
	}
	if e.cfg.ClientID != "" {
		full = append(full, "--client_id", e.cfg.ClientID)
	}
	if e.cfg.ClientSecret != "" {
		full = append(full, "--client_secret", e.cfg.ClientSecret)
	}

	return full
}

// decodeInventory parses the CLI's JSON listing. Newer CLI versions emit a
// bare array; older ones wrap it in a data envelope.
func decodeInventory(out []byte) ([]api.Application, error) {
	var apps []api.Application
	if err := json.Unmarshal(out, &apps); err == nil {
		return apps, nil
	}

	var envelope struct {
		Data []api.Application `json:"data"`
	}
	if err := json.Unmarshal(out, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected listing output: %w", err)
	}

	return envelope.Data, nil
}
