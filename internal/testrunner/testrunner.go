// Package testrunner executes the test plan declared by a package
// descriptor: one import check per module followed by the test commands.
package testrunner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/open-edge-platform/lume-model/internal/recipe"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/open-edge-platform/lume-model/internal/utils/shell"
)

const DefaultImportCommand = `{{python}} -c "import {{module}}"`

var ErrTestFailed = errors.New("test plan failed")

// Kind tells how a step is executed.
type Kind string

const (
	KindSourceFiles Kind = "source-files"
	KindImport      Kind = "import"
	KindCommand     Kind = "command"
)

// Step is one entry of a test plan.
type Step struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Command string `json:"command,omitempty"`
	// Module is set for import checks.
	Module string `json:"module,omitempty"`
	// Patterns are the test.source_files globs of a source-files step.
	Patterns []string `json:"patterns,omitempty"`
}

// Options configure planning and execution.
type Options struct {
	Python        string
	ImportCommand string
	// Dir is where commands run and source file globs are resolved.
	Dir string
	Env []string
	// Timeout bounds each step. Zero means no limit.
	Timeout   time.Duration
	KeepGoing bool
	// ReportDir receives the run report. Empty disables it.
	ReportDir string
	// Progress receives the progress bar. Nil disables it.
	Progress io.Writer
}

// Plan builds the test plan of d. A source file check comes first when
// the descriptor lists source files, then one import check per module and
// one step per command, in declaration order.
func Plan(d *recipe.Descriptor, opts Options) []Step {
	python := opts.Python
	if python == "" {
		python = recipe.DefaultInterpreter
	}
	tmpl := opts.ImportCommand
	if tmpl == "" {
		tmpl = DefaultImportCommand
	}

	var steps []Step
	if len(d.Test.SourceFiles) > 0 {
		steps = append(steps, Step{
			Name:     "source files present",
			Kind:     KindSourceFiles,
			Patterns: d.Test.SourceFiles,
		})
	}
	for _, module := range d.Test.Imports {
		steps = append(steps, Step{
			Name:    "import " + module,
			Kind:    KindImport,
			Module:  module,
			Command: strings.NewReplacer("{{python}}", python, "{{module}}", module).Replace(tmpl),
		})
	}
	for _, cmd := range d.Test.Commands {
		steps = append(steps, Step{
			Name:    cmd,
			Kind:    KindCommand,
			Command: cmd,
		})
	}
	return steps
}

// Executor runs one step and returns its output.
type Executor interface {
	Exec(ctx context.Context, step Step) (string, error)
}

// ShellExecutor runs steps through the system shell. With Stream set the
// step output is logged line by line while the step runs.
type ShellExecutor struct {
	Dir    string
	Env    []string
	Stream bool
}

func (e ShellExecutor) Exec(ctx context.Context, step Step) (string, error) {
	if e.Stream {
		return shell.ExecCmdWithStream(ctx, step.Command, e.Dir, e.Env)
	}
	return shell.ExecCmd(ctx, step.Command, e.Dir, e.Env)
}

// StepResult records the outcome of one step.
type StepResult struct {
	Step     Step          `json:"step"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output,omitempty"`
	Duration time.Duration `json:"duration"`
	Skipped  bool          `json:"skipped,omitempty"`
	Err      error         `json:"-"`
}

// Passed reports whether the step ran and succeeded.
func (r StepResult) Passed() bool {
	return !r.Skipped && r.Err == nil
}

// Result summarizes a run.
type Result struct {
	ID         string       `json:"id"`
	Steps      []StepResult `json:"steps"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	ReportPath string       `json:"report_path,omitempty"`
}

// Success is true only when every step ran and exited 0.
func (r *Result) Success() bool {
	return r.Failed == 0 && r.Skipped == 0 && r.Passed == len(r.Steps)
}

// Run executes steps one after another. The first failure skips the
// remaining steps unless opts.KeepGoing is set. The returned error wraps
// ErrTestFailed when any step failed, or the context error when the run
// was cancelled.
func Run(ctx context.Context, steps []Step, exec Executor, opts Options) (*Result, error) {
	log := logger.Logger()

	res := &Result{ID: uuid.NewString()}
	report := logger.NewStringListReport("test run")
	report.Add("run %s started %s", res.ID, time.Now().UTC().Format(time.RFC3339))

	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(len(steps),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("testing"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	stop := false
	for _, step := range steps {
		if stop || ctx.Err() != nil {
			res.Steps = append(res.Steps, StepResult{Step: step, Skipped: true})
			res.Skipped++
			report.Add("SKIP  %s", step.Name)
			continue
		}

		bar.Describe(fmt.Sprintf("testing %s", step.Name))
		sr := runStep(ctx, step, exec, opts)
		res.Steps = append(res.Steps, sr)

		if sr.Err != nil {
			res.Failed++
			log.Errorf("test step %q failed (exit %d): %v", step.Name, sr.ExitCode, sr.Err)
			report.Add("FAIL  %s (exit %d, %s)", step.Name, sr.ExitCode, sr.Duration.Round(time.Millisecond))
			if !opts.KeepGoing {
				stop = true
			}
		} else {
			res.Passed++
			log.Infof("test step %q passed in %s", step.Name, sr.Duration.Round(time.Millisecond))
			report.Add("PASS  %s (%s)", step.Name, sr.Duration.Round(time.Millisecond))
		}
		bar.Add(1)
	}
	bar.Finish()

	report.Add("passed %d, failed %d, skipped %d", res.Passed, res.Failed, res.Skipped)
	if opts.ReportDir != "" {
		path, err := report.WriteToFile(opts.ReportDir)
		if err != nil {
			log.Warnf("failed to write test report: %v", err)
		} else {
			res.ReportPath = path
		}
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("test run cancelled: %w", err)
	}
	if res.Failed > 0 {
		return res, fmt.Errorf("%w: %d of %d steps failed", ErrTestFailed, res.Failed, len(steps))
	}
	return res, nil
}

func runStep(ctx context.Context, step Step, exec Executor, opts Options) StepResult {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	sr := StepResult{Step: step}
	switch step.Kind {
	case KindSourceFiles:
		sr.Err = CheckSourceFiles(opts.Dir, step.Patterns)
	default:
		sr.Output, sr.Err = exec.Exec(ctx, step)
	}
	sr.Duration = time.Since(start)
	if sr.Err != nil {
		sr.ExitCode = shell.ExitCode(sr.Err)
	}
	return sr
}

// CheckSourceFiles verifies that every pattern matches at least one path
// under dir. Patterns may use ** to cross directories.
func CheckSourceFiles(dir string, patterns []string) error {
	var missing []string
	for _, p := range patterns {
		matches, err := doublestar.Glob(filepath.Join(dir, p))
		if err != nil {
			return fmt.Errorf("invalid source file pattern %q: %w", p, err)
		}
		if len(matches) == 0 {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("source files not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DryRun writes the plan to w without executing it.
func DryRun(w io.Writer, steps []Step) error {
	for i, s := range steps {
		line := s.Command
		if s.Kind == KindSourceFiles {
			line = "check " + strings.Join(s.Patterns, " ")
		}
		if _, err := fmt.Fprintf(w, "%d. [%s] %s\n", i+1, s.Kind, line); err != nil {
			return err
		}
	}
	return nil
}
