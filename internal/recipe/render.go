package recipe

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/nikolalohinski/gonja"
	"github.com/nikolalohinski/gonja/config"
	"github.com/nikolalohinski/gonja/exec"

	"github.com/open-edge-platform/lume-model/internal/utils/logger"
	"github.com/open-edge-platform/lume-model/internal/utils/shell"
)

var (
	ErrUnknownField = errors.New("setup data field not available")
	ErrTemplate     = errors.New("template error")
)

// DataResolver provides the fields of the external setup script, such as
// its version.
type DataResolver interface {
	Resolve(ctx context.Context, field string) (string, error)
}

// StaticResolver serves setup data from a map.
type StaticResolver map[string]string

// Fields lists the fields s can serve.
func (s StaticResolver) Fields() []string {
	fields := make([]string, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	return fields
}

func (s StaticResolver) Resolve(_ context.Context, field string) (string, error) {
	v, ok := s[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return v, nil
}

var fieldNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ScriptResolver asks the setup script for each field by running
// "<interpreter> <script> --<field>" in Dir. Results are cached per field.
type ScriptResolver struct {
	Interpreter string
	Script      string
	Dir         string
	Env         []string

	mu    sync.Mutex
	cache map[string]string
}

// NewScriptResolver returns a resolver for script run by interpreter in dir.
func NewScriptResolver(interpreter, script, dir string) *ScriptResolver {
	return &ScriptResolver{Interpreter: interpreter, Script: script, Dir: dir}
}

func (s *ScriptResolver) Resolve(ctx context.Context, field string) (string, error) {
	if !fieldNameRe.MatchString(field) {
		return "", fmt.Errorf("%w: invalid field name %q", ErrUnknownField, field)
	}

	s.mu.Lock()
	if v, ok := s.cache[field]; ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()

	flag := "--" + strings.ReplaceAll(field, "_", "-")
	cmd := fmt.Sprintf("%s %s %s", s.Interpreter, shellQuote(s.Script), flag)
	out, err := shell.ExecCmdStdout(ctx, cmd, s.Dir, s.Env)
	if err != nil {
		return "", fmt.Errorf("failed to read %s from %s: %w", field, s.Script, err)
	}

	value := lastLine(out)
	if value == "" {
		return "", fmt.Errorf("%w: %s printed nothing for %s", ErrUnknownField, s.Script, flag)
	}
	logger.Logger().Debugf("setup data %s=%s", field, value)

	s.mu.Lock()
	if s.cache == nil {
		s.cache = make(map[string]string)
	}
	s.cache[field] = value
	s.mu.Unlock()
	return value, nil
}

// ForScript returns a resolver for another setup script, relative to the
// same directory.
func (s *ScriptResolver) ForScript(script string) DataResolver {
	dir := s.Dir
	if !filepath.IsAbs(script) {
		script = filepath.Join(dir, script)
	}
	return &ScriptResolver{Interpreter: s.Interpreter, Script: script, Dir: dir, Env: s.Env}
}

// scriptSelector is implemented by resolvers that honour the setup_file
// argument of load_setup_py_data.
type scriptSelector interface {
	ForScript(script string) DataResolver
}

// fieldLister is implemented by resolvers that know their fields up front.
type fieldLister interface {
	Fields() []string
}

func lastLine(out string) string {
	lines := strings.Split(out, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func shellQuote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t'\"$`;&|<>()\\") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// setupFields are the metadata options a setup script answers on its
// command line.
var setupFields = []string{
	"name", "version", "fullname", "author", "author_email",
	"maintainer", "maintainer_email", "contact", "contact_email",
	"url", "license", "description", "long_description",
	"platforms", "classifiers", "keywords", "provides", "requires", "obsoletes",
}

var templateEnv = newTemplateEnv()

func newTemplateEnv() *gonja.Environment {
	cfg := config.NewConfig()
	cfg.StrictUndefined = true
	env := gonja.NewEnvironment(cfg, gonja.DefaultLoader)
	// setup data fields render through String, so trim must not insist
	// on a string value
	if err := env.Filters.Replace("trim", filterTrim); err != nil {
		panic(err)
	}
	return env
}

func filterTrim(_ *exec.Evaluator, in *exec.Value, _ *exec.VarArgs) *exec.Value {
	if in.IsError() {
		return in
	}
	return exec.AsValue(strings.TrimSpace(in.String()))
}

// setupData is the value bound by load_setup_py_data. Fields are asked of
// the resolver only when the template reads them.
type setupData struct {
	ctx      context.Context
	resolver DataResolver

	mu   sync.Mutex
	errs []error
}

func (d *setupData) get(field string, fallback ...string) (string, error) {
	v, err := d.resolver.Resolve(d.ctx, field)
	if err == nil {
		return v, nil
	}
	if len(fallback) > 0 && errors.Is(err, ErrUnknownField) {
		return fallback[0], nil
	}
	d.mu.Lock()
	d.errs = append(d.errs, err)
	d.mu.Unlock()
	return "", err
}

func (d *setupData) err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.errs) == 0 {
		return nil
	}
	return d.errs[0]
}

// value is what the template sees: a dict with a get method and one lazy
// entry per known field.
func (d *setupData) value() map[string]any {
	fields := setupFields
	if l, ok := d.resolver.(fieldLister); ok {
		fields = append(slices.Clone(setupFields), l.Fields()...)
	}
	m := make(map[string]any, len(fields)+1)
	for _, f := range fields {
		m[f] = setupField{data: d, name: f}
	}
	m["get"] = d.get
	return m
}

type setupField struct {
	data *setupData
	name string
}

func (f setupField) String() string {
	v, _ := f.data.get(f.name)
	return v
}

// Render evaluates a recipe template with gonja. The template sees one
// function, load_setup_py_data([setup_file=...]), whose result serves
// data.get('version'), data['version'] and data.version from resolver.
// Undefined names are errors and parse errors carry the template line.
func Render(ctx context.Context, src []byte, resolver DataResolver) (out []byte, err error) {
	if resolver == nil {
		resolver = StaticResolver{}
	}
	// gonja reports some malformed input by panicking
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrTemplate, r)
		}
	}()

	tpl, err := templateEnv.FromBytes(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	var (
		loaded  []*setupData
		execErr error
	)
	load := func(va *exec.VarArgs) map[string]any {
		res := resolver
		if file := va.GetKwarg("setup_file", "").String(); file != "" {
			if sel, ok := res.(scriptSelector); ok {
				res = sel.ForScript(file)
			}
		}
		d := &setupData{ctx: ctx, resolver: res}
		loaded = append(loaded, d)
		return d.value()
	}

	out, execErr = tpl.ExecuteBytes(map[string]any{"load_setup_py_data": load})
	if execErr != nil {
		execErr = fmt.Errorf("%w: %v", ErrTemplate, execErr)
	}
	// resolver errors take precedence over the template error
	for _, d := range loaded {
		if err := d.err(); err != nil {
			if execErr != nil {
				return nil, fmt.Errorf("%w: %w", err, execErr)
			}
			return nil, err
		}
	}
	if execErr != nil {
		return nil, execErr
	}
	return out, nil
}
