package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/open-edge-platform/lume-model/internal/config/manifest"
	"github.com/open-edge-platform/lume-model/internal/testrunner"
	"github.com/open-edge-platform/lume-model/internal/utils/config"
	"github.com/open-edge-platform/lume-model/internal/utils/logger"
)

const setupScript = "case \"$1\" in\n--version) echo '1.4.0' ;;\n*) exit 3 ;;\nesac\n"

// writePackage lays out a package with its descriptor in conda-recipe/ and
// the setup script at the root. It returns the root and the descriptor path.
func writePackage(t *testing.T) (string, string) {
	t.Helper()
	return writePackageWith(t, nil)
}

func writePackageWith(t *testing.T, replace map[string]string) (string, string) {
	t.Helper()
	root := t.TempDir()
	recipeDir := filepath.Join(root, "conda-recipe")
	if err := os.MkdirAll(recipeDir, 0755); err != nil {
		t.Fatal(err)
	}
	src, err := os.ReadFile(filepath.Join("testdata", "meta.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(src)
	for old, repl := range replace {
		text = strings.ReplaceAll(text, old, repl)
	}
	recipePath := filepath.Join(recipeDir, "meta.yaml")
	if err := os.WriteFile(recipePath, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "setup.sh"), []byte(setupScript), 0644); err != nil {
		t.Fatal(err)
	}
	return root, recipePath
}

// writeConfig writes a global configuration that resolves setup data with sh.
func writeConfig(t *testing.T, root string) string {
	t.Helper()
	body := "work_dir: " + filepath.Join(root, "builds") + "\n" +
		"logging:\n  level: error\n" +
		"python:\n  interpreter: sh\n  setup_script: setup.sh\n"
	path := filepath.Join(root, "lume-model.yml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		logger.Init(nil)
		config.SetGlobal(config.DefaultGlobalConfig())
	})

	root := createRootCommand()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	root, recipePath := writePackage(t)
	cfg := writeConfig(t, root)

	out, err := runCLI(t, "validate", "--config", cfg, recipePath)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "lume-model 1.4.0 is valid") {
		t.Errorf("unexpected output:\n%s", out)
	}

	// the recipe directory is accepted as well
	out, err = runCLI(t, "validate", "--config", cfg, "--verbose", "--version-override", "2.0.0", filepath.Dir(recipePath))
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	for _, want := range []string{"lume-model 2.0.0 is valid", "run requirements:", "  - numpy", "fingerprint: "} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestValidateCommandRejectsInvalidDescriptor(t *testing.T) {
	root, recipePath := writePackageWith(t, map[string]string{"  license: SLAC Open\n": ""})
	cfg := writeConfig(t, root)

	if _, err := runCLI(t, "validate", "--config", cfg, recipePath); err == nil {
		t.Fatal("expected validation error for a descriptor without license")
	}
}

func TestTestCommandDryRun(t *testing.T) {
	root, recipePath := writePackage(t)
	cfg := writeConfig(t, root)

	out, err := runCLI(t, "test", "--config", cfg, "--dry-run", recipePath)
	if err != nil {
		t.Fatalf("test --dry-run failed: %v", err)
	}
	want := "1. [import] sh -c \"import lume_model\"\n2. [command] py.test --pyargs lume_model\n"
	if out != want {
		t.Errorf("dry run output = %q, want %q", out, want)
	}
}

type fakeExecutor struct {
	fail map[string]bool
	ran  []string
}

func (f *fakeExecutor) Exec(_ context.Context, step testrunner.Step) (string, error) {
	f.ran = append(f.ran, step.Command)
	if f.fail[step.Command] {
		return "", errors.New("exit status 1")
	}
	return "ok", nil
}

// useExecutor swaps in exec and returns where the stream flag of the last
// run is recorded.
func useExecutor(t *testing.T, exec testrunner.Executor) *bool {
	t.Helper()
	streamed := new(bool)
	prev := newExecutor
	newExecutor = func(_ string, stream bool) testrunner.Executor {
		*streamed = stream
		return exec
	}
	t.Cleanup(func() { newExecutor = prev })
	return streamed
}

func TestTestCommand(t *testing.T) {
	root, recipePath := writePackage(t)
	cfg := writeConfig(t, root)
	exec := &fakeExecutor{}
	useExecutor(t, exec)

	out, err := runCLI(t, "test", "--config", cfg, recipePath)
	if err != nil {
		t.Fatalf("test failed: %v", err)
	}
	if len(exec.ran) != 2 {
		t.Errorf("ran %v, want 2 steps", exec.ran)
	}
	for _, want := range []string{"PASS  import lume_model", "PASS  py.test --pyargs lume_model", "2 passed, 0 failed, 0 skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	reports, _ := filepath.Glob(filepath.Join(root, "builds", "reports", "*"))
	if len(reports) != 1 {
		t.Errorf("expected one report, got %v", reports)
	}
}

func TestTestCommandVerboseStreamsOutput(t *testing.T) {
	root, recipePath := writePackage(t)
	cfg := writeConfig(t, root)
	streamed := useExecutor(t, &fakeExecutor{})

	if _, err := runCLI(t, "test", "--config", cfg, recipePath); err != nil {
		t.Fatalf("test failed: %v", err)
	}
	if *streamed {
		t.Error("step output streamed without --verbose")
	}
	if _, err := runCLI(t, "test", "--config", cfg, "--verbose", recipePath); err != nil {
		t.Fatalf("test --verbose failed: %v", err)
	}
	if !*streamed {
		t.Error("expected --verbose to stream step output")
	}
}

func TestTestCommandFailure(t *testing.T) {
	root, recipePath := writePackage(t)
	cfg := writeConfig(t, root)
	exec := &fakeExecutor{fail: map[string]bool{`sh -c "import lume_model"`: true}}
	useExecutor(t, exec)

	out, err := runCLI(t, "test", "--config", cfg, recipePath)
	if !errors.Is(err, testrunner.ErrTestFailed) {
		t.Fatalf("error = %v, want %v", err, testrunner.ErrTestFailed)
	}
	if len(exec.ran) != 1 {
		t.Errorf("ran %v, want the run to stop after the first failure", exec.ran)
	}
	if !strings.Contains(out, "SKIP  py.test --pyargs lume_model") {
		t.Errorf("output missing skipped step:\n%s", out)
	}

	exec.ran = nil
	if _, err := runCLI(t, "test", "--config", cfg, "--keep-going", recipePath); !errors.Is(err, testrunner.ErrTestFailed) {
		t.Fatalf("error = %v", err)
	}
	if len(exec.ran) != 2 {
		t.Errorf("ran %v, want both steps with --keep-going", exec.ran)
	}
}

func TestManifestCommand(t *testing.T) {
	root, recipePath := writePackage(t)
	cfg := writeConfig(t, root)
	outDir := filepath.Join(root, "release")

	out, err := runCLI(t, "manifest", "--config", cfg, "--output", outDir, recipePath)
	if err != nil {
		t.Fatalf("manifest failed: %v", err)
	}
	if !strings.Contains(out, filepath.Join(outDir, "manifest.json")) {
		t.Errorf("output should list the manifest:\n%s", out)
	}

	m, err := manifest.ReadManifestFromFile(filepath.Join(outDir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadManifestFromFile() error = %v", err)
	}
	if m.Name != "lume-model" || m.Version != "1.4.0" {
		t.Errorf("manifest package = %s %s", m.Name, m.Version)
	}
	sum, err := manifest.FileSHA256(filepath.Join(outDir, "spdx.json"))
	if err != nil {
		t.Fatal(err)
	}
	if m.SBOM != "spdx.json" || m.SBOMHash != sum {
		t.Errorf("SBOM = %s %s, want spdx.json %s", m.SBOM, m.SBOMHash, sum)
	}
}

func TestCheckURLsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/docs" {
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	root, recipePath := writePackageWith(t, map[string]string{
		"home: https://github.com/slaclab/lume-model":       "home: " + srv.URL + "/home",
		"doc_url: https://slaclab.github.io/lume-model/":    "doc_url: " + srv.URL + "/docs",
		"dev_url: https://github.com/slaclab/lume-model\n": "dev_url: " + srv.URL + "/dev\n",
	})
	cfg := writeConfig(t, root)

	out, err := runCLI(t, "check-urls", "--config", cfg, recipePath)
	if err == nil || !strings.Contains(err.Error(), "1 of 3 URLs unreachable") {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out, "✓ home") || !strings.Contains(out, "✗ doc_url") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

const modelConfig = `input_variables:
  input1:
    type: scalar
    name: input1
    default: 1
    range: [0, 5]
output_variables:
  output1:
    type: scalar
    name: output1
    units: mm
model:
  model_class: lume_model.ScaleModel
  kwargs:
    factor: 3
`

func writeModelConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	if err := os.WriteFile(path, []byte(modelConfig), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVariablesAndInspectCommands(t *testing.T) {
	path := writeModelConfig(t)
	store := filepath.Join(filepath.Dir(path), "vars.json.zst")

	out, err := runCLI(t, "variables", "--save", store, path)
	if err != nil {
		t.Fatalf("variables failed: %v", err)
	}
	if !strings.Contains(out, "input1") || !strings.Contains(out, "range=[0, 5]") || !strings.Contains(out, "units=mm") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = runCLI(t, "inspect", store)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(out, "zstd") || !strings.Contains(out, "1 inputs, 1 outputs") {
		t.Errorf("unexpected inspect output:\n%s", out)
	}

	out, err = runCLI(t, "variables", "--format", "json", path)
	if err != nil {
		t.Fatalf("variables --format json failed: %v", err)
	}
	var payload struct {
		Inputs  []map[string]any `json:"input_variables"`
		Outputs []map[string]any `json:"output_variables"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, out)
	}
	if len(payload.Inputs) != 1 || payload.Inputs[0]["name"] != "input1" {
		t.Errorf("inputs = %v", payload.Inputs)
	}

	if _, err := runCLI(t, "variables", "--format", "xml", path); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

func TestEvaluateCommand(t *testing.T) {
	path := writeModelConfig(t)

	out, err := runCLI(t, "evaluate", "--set", "input1=2", path)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if strings.TrimSpace(out) != "output1 = 6" {
		t.Errorf("output = %q", out)
	}

	out, err = runCLI(t, "evaluate", path)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if strings.TrimSpace(out) != "output1 = 3" {
		t.Errorf("output with defaults = %q", out)
	}

	if _, err := runCLI(t, "evaluate", "--set", "input1=9", path); err == nil {
		t.Error("expected an out of range error")
	}
}

func TestSignPassphrase(t *testing.T) {
	tests := map[string]string{
		" secret ":   " secret ",
		"secret\n":   "secret",
		"secret\r\n": "secret",
		"\tpass\t\n": "\tpass\t",
		"":           "",
	}
	for env, want := range tests {
		t.Setenv(EnvSignPassphrase, env)
		if got := string(signPassphrase()); got != want {
			t.Errorf("signPassphrase() with %q = %q, want %q", env, got, want)
		}
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"a=1", " b = -2.5 "})
	if err != nil {
		t.Fatalf("parseAssignments() error = %v", err)
	}
	if got["a"] != 1.0 || got["b"] != -2.5 {
		t.Errorf("parseAssignments() = %v", got)
	}

	for _, bad := range []string{"a", "=1", "a=x"} {
		if _, err := parseAssignments([]string{bad}); err == nil {
			t.Errorf("parseAssignments(%q) should fail", bad)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool.toml")

	if _, err := runCLI(t, "config", "init", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := runCLI(t, "config", "init", path); err == nil {
		t.Error("config init should not overwrite without --force")
	}
	if _, err := runCLI(t, "config", "init", "--force", path); err != nil {
		t.Errorf("config init --force failed: %v", err)
	}

	out, err := runCLI(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "workers: 4") || !strings.Contains(out, "python.interpreter: python") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
