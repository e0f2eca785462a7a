package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/open-edge-platform/lume-model/internal/utils/logger"
)

const maxLineSize = 1024 * 1024

// getShell returns the preferred shell, falling back to /bin/sh if bash is not available
func getShell() string {
	shells := []string{"/bin/bash", "/usr/bin/bash", "/bin/sh"}
	for _, shell := range shells {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}

// IsCommandExist checks if a command exists on the host
func IsCommandExist(cmd string) bool {
	output, _ := exec.Command(getShell(), "-c", "command -v "+cmd).Output()
	return len(bytes.TrimSpace(output)) > 0
}

// GetFullCmdStr prefixes cmdStr with the given KEY=VALUE assignments
func GetFullCmdStr(cmdStr string, envVal []string) string {
	log := logger.Logger()
	envValStr := ""
	for _, env := range envVal {
		envValStr += env + " "
	}
	log.Debugf("Exec: [%s]", cmdStr)
	return envValStr + cmdStr
}

func newCommand(ctx context.Context, fullCmdStr string, dir string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, getShell(), "-c", fullCmdStr)
	cmd.Dir = dir
	return cmd
}

// ExecCmd executes a command in dir and returns its combined output
func ExecCmd(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr := GetFullCmdStr(cmdStr, envVal)

	output, err := newCommand(ctx, fullCmdStr, dir).CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Infof("%s", outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	if outputStr != "" {
		log.Debugf("%s", outputStr)
	}
	return outputStr, nil
}

// ExecCmdStdout executes a command in dir and returns only what it wrote
// to stdout. Stderr lines are logged at debug level.
func ExecCmdStdout(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	log := logger.Logger()
	var stdout strings.Builder

	err := execLines(ctx, cmdStr, dir, envVal,
		func(line string) {
			stdout.WriteString(line)
			stdout.WriteByte('\n')
		},
		func(line string) {
			if line != "" {
				log.Debugf("stderr: %s", line)
			}
		})
	return stdout.String(), err
}

// ExecCmdWithStream executes a command and logs its output line by line
// while it runs. The returned output holds both streams in arrival order.
func ExecCmdWithStream(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	log := logger.Logger()
	var (
		mu     sync.Mutex
		output strings.Builder
	)
	collect := func(line string) {
		if line == "" {
			return
		}
		log.Infof("%s", line)
		mu.Lock()
		output.WriteString(line)
		output.WriteByte('\n')
		mu.Unlock()
	}

	err := execLines(ctx, cmdStr, dir, envVal, collect, collect)
	return output.String(), err
}

// execLines runs cmdStr and hands every stdout and stderr line to the
// matching callback. Each callback is called from a single goroutine.
func execLines(ctx context.Context, cmdStr string, dir string, envVal []string, onStdout, onStderr func(string)) error {
	fullCmdStr := GetFullCmdStr(cmdStr, envVal)
	cmd := newCommand(ctx, fullCmdStr, dir)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe for command %s: %w", fullCmdStr, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to get stderr pipe for command %s: %w", fullCmdStr, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start command %s: %w", fullCmdStr, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	scan := func(r io.Reader, fn func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			fn(scanner.Text())
		}
		// keep the pipe drained after an oversized line
		_, _ = io.Copy(io.Discard, r)
	}
	go scan(stdout, onStdout)
	go scan(stderr, onStderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	return nil
}

// ExitCode extracts the process exit status from an error returned by the
// Exec functions. It returns 0 for a nil error and -1 when the command did
// not run to completion.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
