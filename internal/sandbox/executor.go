// Package sandbox is the §6.4 sandbox executor boundary: it runs a
// submitted program against one test case with an enforced wall-clock
// limit. Stdout and stderr are captured in full; no output-size cap is
// applied. No sandbox-execution SDK appears anywhere in the
// example pack, so this is a plain os/exec + context implementation —
// see DESIGN.md for the stdlib justification.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codeduel/match-core/internal/apperr"
)

// ExecuteRequest is one test case's execution input.
type ExecuteRequest struct {
	Language      string
	Code          string
	TestInputJSON string
	TimeoutMs     int
}

// ExecuteResult is a single execution's captured outcome.
type ExecuteResult struct {
	Stdout         string
	Stderr         string
	ExitCode       int
	ExecutionTime  time.Duration
	MemoryUsage    int64
	TimedOut       bool
}

// Executor is the §6.4 Sandbox executor contract.
type Executor interface {
	Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error)
}

type runnerSpec struct {
	fileName string
	command  func(workDir, file string) *exec.Cmd
}

var runners = map[string]runnerSpec{
	"PYTHON3": {
		fileName: "solution.py",
		command:  func(workDir, file string) *exec.Cmd { return exec.Command("python3", file) },
	},
	"JAVASCRIPT": {
		fileName: "solution.js",
		command:  func(workDir, file string) *exec.Cmd { return exec.Command("node", file) },
	},
	"GO": {
		fileName: "solution.go",
		command:  func(workDir, file string) *exec.Cmd { return exec.Command("go", "run", file) },
	},
	"JAVA": {
		fileName: "Solution.java",
		command:  func(workDir, file string) *exec.Cmd { return exec.Command("java", file) },
	},
	"CPP": {
		fileName: "solution.cpp",
		command:  func(workDir, file string) *exec.Cmd { return exec.Command("sh", "-c", fmt.Sprintf("g++ -O2 -o %s %s && %s", filepath.Join(workDir, "a.out"), file, filepath.Join(workDir, "a.out"))) },
	},
}

type execExecutor struct {
	workDir string
	logger  *logrus.Logger
}

// NewExecutor constructs a process-isolated sandbox executor rooted at workDir.
func NewExecutor(workDir string, logger *logrus.Logger) Executor {
	return &execExecutor{workDir: workDir, logger: logger}
}

// Execute runs code against a single test case under a hard wall-clock
// deadline, delivering testInputJson via stdin per the §6.4 I/O contract.
func (e *execExecutor) Execute(ctx context.Context, req ExecuteRequest) (*ExecuteResult, error) {
	spec, ok := runners[req.Language]
	if !ok {
		return nil, apperr.New(apperr.CodeInvalidRequest, "unsupported language: "+req.Language)
	}

	runID := uuid.New().String()
	runDir := filepath.Join(e.workDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.CodeSandboxUnavailable, "failed to prepare sandbox directory", err)
	}
	defer os.RemoveAll(runDir)

	sourcePath := filepath.Join(runDir, spec.fileName)
	if err := os.WriteFile(sourcePath, []byte(req.Code), 0o644); err != nil {
		return nil, apperr.Wrap(apperr.CodeSandboxUnavailable, "failed to write submission source", err)
	}

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := spec.command(runDir, sourcePath)
	cmd.Dir = runDir
	cmd.Stdin = bytes.NewReader([]byte(req.TestInputJSON))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := runWithContext(execCtx, cmd)
	elapsed := time.Since(start)

	result := &ExecuteResult{
		Stdout:        stdout.String(),
		Stderr:        stderr.String(),
		ExecutionTime: elapsed,
	}

	if execCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		return result, nil
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, apperr.Wrap(apperr.CodeSandboxUnavailable, "sandbox execution failed to start", err)
	}

	return result, nil
}

// runWithContext starts cmd and kills its process on context
// cancellation. Only the started process is signalled; children it
// spawned (such as the compiled binary under the CPP runner's sh -c)
// are not.
func runWithContext(ctx context.Context, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}
