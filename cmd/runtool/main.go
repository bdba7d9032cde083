// Command runtool drives parameter-file based external tools: inspect
// their schemas, set parameters, and invoke them with private parameter
// files.
//
// Usage:
//
//	runtool list --schemas tools.yaml
//	runtool params dmcopy
//	runtool run dmcopy in.fits out.fits --set clobber=yes
//	runtool unlearn dmcopy
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/astrokit/runtool/pkg/logger"
	"github.com/astrokit/runtool/pkg/observability"
	"github.com/astrokit/runtool/pkg/param"
	"github.com/astrokit/runtool/pkg/pfile"
	"github.com/astrokit/runtool/pkg/runtool"
	"github.com/astrokit/runtool/pkg/schema"
	"github.com/astrokit/runtool/pkg/schema/provider"
	"github.com/astrokit/runtool/pkg/scope"
)

// CLI defines the command-line interface.
type CLI struct {
	List    ListCmd    `cmd:"" help:"List tools known to the schema registry."`
	Params  ParamsCmd  `cmd:"" help:"Show a tool's parameter declarations."`
	Run     RunCmd     `cmd:"" help:"Invoke a tool."`
	Unlearn UnlearnCmd `cmd:"" help:"Reset a tool's parameters to schema defaults."`
	Schema  SchemaCmd  `cmd:"" help:"Generate JSON Schema for the schema file format."`

	Schemas   string `short:"s" help:"Schema source: a YAML file path or zk://host[,host]/znode." default:"tools.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// ListCmd lists registered tools.
type ListCmd struct{}

func (c *ListCmd) Run(cli *CLI) error {
	ctx := context.Background()
	registry, loader, err := loadRegistry(ctx, cli.Schemas)
	if err != nil {
		return err
	}
	defer loader.Close()

	names := registry.Names()
	sort.Strings(names)
	for _, name := range names {
		ts, err := registry.Lookup(name)
		if err != nil {
			continue
		}
		if ts.Help != "" {
			fmt.Printf("%-20s %s\n", name, ts.Help)
		} else {
			fmt.Println(name)
		}
	}
	return nil
}

// ParamsCmd shows one tool's declarations.
type ParamsCmd struct {
	Tool string `arg:"" help:"Tool name."`
}

func (c *ParamsCmd) Run(cli *CLI) error {
	ctx := context.Background()
	registry, loader, err := loadRegistry(ctx, cli.Schemas)
	if err != nil {
		return err
	}
	defer loader.Close()

	ts, err := registry.Lookup(c.Tool)
	if err != nil {
		return err
	}

	for _, d := range ts.Decls() {
		constraint := ""
		switch {
		case d.HasOptions():
			constraint = " (" + strings.Join(d.Options, "|") + ")"
		case d.HasRange():
			constraint = fmt.Sprintf(" [%s..%s]", orIndef(d.Min), orIndef(d.Max))
		}
		fmt.Printf("%-16s %-8s default=%-12q%s  %s\n", d.Name, d.Type, d.Default, constraint, d.Help)
	}
	return nil
}

func orIndef(bound string) string {
	if bound == "" {
		return "INDEF"
	}
	return bound
}

// RunCmd invokes a tool.
type RunCmd struct {
	Tool string   `arg:"" help:"Tool name."`
	Args []string `arg:"" optional:"" help:"Positional parameter values."`

	Set         []string `short:"S" help:"Named parameter: name=value. Repeatable." placeholder:"NAME=VALUE"`
	Executable  string   `help:"Override the launched binary (defaults to the tool name on PATH)."`
	Isolate     bool     `help:"Run inside a private ancillary-namespace scope."`
	Seed        []string `help:"Parameter file names to seed an isolated scope with." placeholder:"NAME"`
	Watch       bool     `help:"Watch the schema source for changes while running."`
	Observe     bool     `help:"Enable metrics and tracing."`
	MetricsPort int      `name:"metrics-port" help:"Port for /metrics when --observe is set." default:"9090"`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Interrupted, terminating tool...")
		cancel()
	}()

	registry, loader, err := loadRegistry(ctx, cli.Schemas)
	if err != nil {
		return err
	}
	defer loader.Close()

	if c.Watch {
		go func() {
			if err := loader.Watch(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Schema watch error", "error", err)
			}
		}()
	}

	ts, err := registry.Lookup(c.Tool)
	if err != nil {
		return err
	}
	store, err := param.NewStore(ts)
	if err != nil {
		return err
	}

	named := make(map[string]string, len(c.Set))
	for _, kv := range c.Set {
		name, value, found := strings.Cut(kv, "=")
		if !found {
			return fmt.Errorf("bad --set %q: expected name=value", kv)
		}
		named[name] = value
	}

	obs := observability.NoopManager()
	if c.Observe {
		obs = observability.NewManager(observability.Config{
			Metrics: observability.MetricsConfig{Enabled: true, Port: c.MetricsPort},
			Tracing: observability.TracerConfig{Enabled: true, ServiceName: "runtool"},
		})
		if err := obs.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize observability: %w", err)
		}
		defer obs.Shutdown(context.Background())
		go serveMetrics(c.MetricsPort)
	}

	opts := []runtool.Option{runtool.WithObservability(obs)}
	if c.Executable != "" {
		opts = append(opts, runtool.WithExecutable(c.Executable))
	}
	runner := runtool.New(store, opts...)

	if err := runner.BindArgs(c.Args, named); err != nil {
		return err
	}

	invoke := func() error {
		output, err := runner.Invoke(ctx)
		if err != nil {
			return err
		}
		if output != "" {
			fmt.Println(output)
		}
		return nil
	}

	if c.Isolate {
		return scope.With(c.Seed, func(*scope.Scope) error { return invoke() })
	}
	return invoke()
}

func serveMetrics(port int) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", observability.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Metrics endpoint ready", "addr", addr+"/metrics")
	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("Metrics server error", "error", err)
	}
}

// UnlearnCmd resets a tool's private parameter file to schema defaults.
type UnlearnCmd struct {
	Tool string `arg:"" help:"Tool name."`
}

func (c *UnlearnCmd) Run(cli *CLI) error {
	ctx := context.Background()
	registry, loader, err := loadRegistry(ctx, cli.Schemas)
	if err != nil {
		return err
	}
	defer loader.Close()

	ts, err := registry.Lookup(c.Tool)
	if err != nil {
		return err
	}
	store, err := param.NewStore(ts)
	if err != nil {
		return err
	}
	store.Reset()

	dir := privateParamDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, c.Tool+".par")
	if _, err := pfile.Write(store, path); err != nil {
		return err
	}
	fmt.Printf("%s reset to defaults (%s)\n", c.Tool, path)
	return nil
}

// privateParamDir picks the first private directory from the search path
// variable, falling back to the working directory.
func privateParamDir() string {
	value := os.Getenv(scope.EnvVar)
	privPart, _, _ := strings.Cut(value, ";")
	for _, dir := range strings.Split(privPart, ":") {
		if dir = strings.TrimSpace(dir); dir != "" {
			return dir
		}
	}
	return "."
}

// loadRegistry builds a provider from the --schemas value and loads the
// registry through it.
func loadRegistry(ctx context.Context, source string) (*schema.Registry, *schema.Loader, error) {
	cfg, err := providerConfig(source)
	if err != nil {
		return nil, nil, err
	}
	p, err := provider.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	loader := schema.NewLoader(p)
	registry, err := loader.Load(ctx)
	if err != nil {
		loader.Close()
		return nil, nil, err
	}
	return registry, loader, nil
}

func providerConfig(source string) (provider.Config, error) {
	if rest, ok := strings.CutPrefix(source, "zk://"); ok {
		hosts, znode, found := strings.Cut(rest, "/")
		if !found || hosts == "" {
			return provider.Config{}, fmt.Errorf("bad zookeeper source %q: expected zk://host[,host]/znode", source)
		}
		return provider.Config{
			Type:      provider.TypeZookeeper,
			Endpoints: strings.Split(hosts, ","),
			Path:      "/" + znode,
		}, nil
	}
	return provider.Config{Type: provider.TypeFile, Path: source}, nil
}

func main() {
	_ = schema.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("runtool"),
		kong.Description("Parameter-file driven external tool runner"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	output := os.Stderr
	if cli.LogFile != "" {
		f, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = f
	}
	logger.Init(level, output, cli.LogFormat)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
