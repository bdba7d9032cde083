// Package runtool launches external tools against a private parameter
// file built from a parameter store, and reconciles the store with
// whatever the tool wrote back. One Runner drives one tool.
package runtool

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/astrokit/runtool/pkg/observability"
	"github.com/astrokit/runtool/pkg/param"
	"github.com/astrokit/runtool/pkg/pfile"
)

type Runner struct {
	store      *param.Store
	executable string
	tempDir    string
	obs        *observability.Manager

	mu   sync.Mutex
	last *InvocationRecord
}

type Option func(*Runner)

// WithExecutable overrides the launched binary; the default is the tool
// name itself, resolved through PATH.
func WithExecutable(path string) Option {
	return func(r *Runner) { r.executable = path }
}

// WithTempDir places private parameter files under dir instead of the
// system temp directory.
func WithTempDir(dir string) Option {
	return func(r *Runner) { r.tempDir = dir }
}

func WithObservability(m *observability.Manager) Option {
	return func(r *Runner) { r.obs = m }
}

func New(store *param.Store, opts ...Option) *Runner {
	r := &Runner{
		store:      store,
		executable: store.ToolName(),
		tempDir:    os.TempDir(),
		obs:        observability.NoopManager(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Store() *param.Store {
	return r.store
}

// BindArgs maps caller-supplied arguments onto declarations and stores
// them with full validation. Positional arguments fill declarations in
// order; named arguments resolve with the same unique-prefix rules as
// Set. Errors out before any file I/O happens.
func (r *Runner) BindArgs(positional []string, named map[string]string) error {
	decls := r.store.Decls()
	if len(positional)+len(named) > len(decls) {
		return &BindError{Tool: r.store.ToolName(),
			Message: fmt.Sprintf("%d arguments for %d declared parameters",
				len(positional)+len(named), len(decls))}
	}

	bound := make(map[string]bool, len(positional))
	for i, value := range positional {
		if err := r.store.Set(decls[i].Name, value); err != nil {
			return err
		}
		bound[decls[i].Name] = true
	}

	for name, value := range named {
		exact, err := r.store.ResolveName(name)
		if err != nil {
			return err
		}
		if bound[exact] {
			return &BindError{Tool: r.store.ToolName(),
				Message: fmt.Sprintf("parameter %q bound both positionally and by name", exact)}
		}
		if err := r.store.Set(exact, value); err != nil {
			return err
		}
		bound[exact] = true
	}
	return nil
}

// Invoke writes the private parameter file, runs the tool, and on exit 0
// re-reads the file back into the store. Returns the tool's combined
// output, trimmed; an entirely blank result comes back as "". On nonzero
// exit the store is left untouched and the error is a
// *ToolExecutionError carrying the output. Temp files are deleted on
// every path; deletion failures are logged, never raised.
func (r *Runner) Invoke(ctx context.Context) (string, error) {
	tool := r.store.ToolName()
	tracer := r.obs.GetTracer("runtool")
	ctx, span := tracer.Start(ctx, "invoke",
		trace.WithAttributes(attribute.String("tool", tool)))
	defer span.End()

	cfgPath := filepath.Join(r.tempDir, fmt.Sprintf("%s-%s.par", tool, uuid.NewString()))
	overflow, err := pfile.Write(r.store, cfgPath)
	defer r.cleanup(cfgPath, overflow)
	if err != nil {
		return "", err
	}
	if err := pfile.Verify(r.store, cfgPath, overflow); err != nil {
		slog.Warn("parameter file verification skipped", "tool", tool, "error", err)
	}

	argv := r.buildArgv(cfgPath)
	slog.Debug("launching tool", "tool", tool, "argv", argv)

	started := time.Now()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	output, runErr := cmd.CombinedOutput()
	finished := time.Now()

	exitCode := 0
	if runErr != nil {
		exitError, ok := runErr.(*exec.ExitError)
		if !ok {
			return "", fmt.Errorf("failed to launch %s: %w", tool, runErr)
		}
		exitCode = exitError.ExitCode()
	}

	record := &InvocationRecord{
		ID:       uuid.NewString(),
		Tool:     tool,
		Argv:     argv,
		Started:  started,
		Finished: finished,
		ExitCode: exitCode,
		Output:   string(output),
	}
	r.mu.Lock()
	r.last = record
	r.mu.Unlock()

	r.obs.GetMetrics().RecordInvocation(ctx, tool, record.Duration(), exitCode, runErr)

	if exitCode != 0 {
		return "", &ToolExecutionError{Tool: tool, ExitCode: exitCode, Output: string(output)}
	}

	if err := pfile.Read(r.store, cfgPath); err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// LastRecord returns a copy of the most recent invocation's record.
func (r *Runner) LastRecord() (InvocationRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return InvocationRecord{}, false
	}
	return *r.last, true
}

// buildArgv assembles the command line: the file-reference form for tools
// that accept a parameter file, or every parameter expanded inline for
// tools that do not.
func (r *Runner) buildArgv(cfgPath string) []string {
	if !r.store.Schema().NoParFile {
		return []string{r.executable, "@@" + cfgPath, pfile.ModeParam + "=" + pfile.ModeValue}
	}

	argv := []string{r.executable, pfile.ModeParam + "=" + pfile.ModeValue}
	for _, entry := range r.store.Iterate() {
		if entry.Name == pfile.ModeParam {
			continue
		}
		d, ok := r.store.Schema().FindDecl(entry.Name)
		if !ok {
			continue
		}
		argv = append(argv, entry.Name+"="+pfile.FormatValue(d, entry.Value))
	}
	return argv
}

func (r *Runner) cleanup(cfgPath string, overflow pfile.OverflowMap) {
	paths := append([]string{cfgPath}, overflow.Paths()...)
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temp file", "path", p, "error", err)
		}
	}
}
