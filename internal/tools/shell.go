package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/aatumaykin/microbot/internal/config"
	"github.com/aatumaykin/microbot/internal/logger"
)

const (
	defaultShellTimeout = 30 * time.Second
	noOutput            = "(no output)"
	truncatedSuffix     = "\n... (truncated)"
)

// ShellRunner runs shell commands for run_command and cmd directives.
type ShellRunner struct {
	validator  *ShellValidator
	workingDir string
	timeout    time.Duration
	maxOutput  int
	logger     *logger.Logger
}

// NewShellRunner creates a ShellRunner from the shell tool config.
func NewShellRunner(cfg config.ShellToolConfig, log *logger.Logger) *ShellRunner {
	if log == nil {
		log = logger.Nop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultShellTimeout
	}
	return &ShellRunner{
		validator:  NewShellValidator(cfg.DenyCommands),
		workingDir: cfg.WorkingDir,
		timeout:    timeout,
		maxOutput:  cfg.MaxOutputBytes,
		logger:     log,
	}
}

// Run executes command and renders the outcome as text. Failures come back
// as "Error: ..." strings.
func (r *ShellRunner) Run(ctx context.Context, command string) string {
	out, err := r.run(ctx, command)
	if err != nil {
		return errorPrefix + err.Error()
	}
	return out
}

func (r *ShellRunner) run(ctx context.Context, command string) (string, error) {
	command = strings.TrimSpace(command)
	if err := r.validator.Validate(command); err != nil {
		return "", NewPermissionError(CodeForbidden, err.Error(), map[string]any{"command": command})
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.InfoCtx(ctx, "executing shell command", logger.Field{Key: "command", Value: command})

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = r.workingDir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return "", NewTimeoutError(CodeTimeout, fmt.Sprintf("command timed out after %s", r.timeout), nil)
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	output := strings.TrimSpace(stdout.String())
	if errText := strings.TrimSpace(stderr.String()); errText != "" {
		if output != "" {
			output += "\n"
		}
		output += errText
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", NewExecutionError(CodeExecution, fmt.Sprintf("failed to start command: %v", err), "", -1)
		}
		r.logger.WarnCtx(ctx, "shell command exited with error",
			logger.Field{Key: "exit_code", Value: exitErr.ExitCode()})
		output = strings.TrimSpace(output + fmt.Sprintf("\n[exit code %d]", exitErr.ExitCode()))
	}

	if output == "" {
		output = noOutput
	}
	return truncateOutput(output, r.maxOutput), nil
}

// truncateOutput cuts s to max bytes. max <= 0 disables the cap.
func truncateOutput(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + truncatedSuffix
}

// RunCommandTool implements run_command.
type RunCommandTool struct {
	runner *ShellRunner
}

// RunCommandArgs represents the arguments for the run_command tool.
type RunCommandArgs struct {
	Command string `json:"command"`
}

// NewRunCommandTool creates a new RunCommandTool.
func NewRunCommandTool(runner *ShellRunner) *RunCommandTool {
	return &RunCommandTool{runner: runner}
}

// Name returns the tool name.
func (t *RunCommandTool) Name() string {
	return "run_command"
}

// Description returns a description of what the tool does.
func (t *RunCommandTool) Description() string {
	return "Runs a shell command on the host. Args: {\"command\": \"df -h\"}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *RunCommandTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command to execute. Examples: ls -la, uptime, df -h",
			},
		},
		"required": []string{"command"},
	}
}

// Execute runs the command.
func (t *RunCommandTool) Execute(ctx context.Context, args string) (string, error) {
	var shellArgs RunCommandArgs
	if err := parseJSON(args, &shellArgs); err != nil {
		return "", err
	}
	if strings.TrimSpace(shellArgs.Command) == "" {
		return "", NewValidationError(CodeInvalidArgs, "command is required", nil)
	}
	return t.runner.run(ctx, shellArgs.Command)
}
