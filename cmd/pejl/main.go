package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	sqlitecache "github.com/hylla/pejl/internal/adapters/cache/sqlite"
	serveradapter "github.com/hylla/pejl/internal/adapters/server"
	"github.com/hylla/pejl/internal/adapters/server/mcpapi"
	"github.com/hylla/pejl/internal/adapters/tracker/httptracker"
	"github.com/hylla/pejl/internal/app"
	"github.com/hylla/pejl/internal/config"
	"github.com/hylla/pejl/internal/platform"
	"github.com/hylla/pejl/internal/tui"
)

// version stores a package-level helper value.
var version = "dev"

// program represents program data used by this package.
type program interface {
	Run() (tea.Model, error)
}

// programFactory stores a package-level helper value.
var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

// serveCommandRunner starts the HTTP+MCP serve flow.
var serveCommandRunner = func(ctx context.Context, cfg serveradapter.Config, issues mcpapi.IssueService) error {
	return serveradapter.Run(ctx, cfg, issues)
}

// main handles main.
func main() {
	if err := fang.Execute(context.Background(), newRootCmd(os.Stdout, os.Stderr), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}

// run executes the CLI against explicit streams, mainly for tests.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

// cliOptions holds root-level flag state shared by all subcommands.
type cliOptions struct {
	configPath string
	cachePath  string
	trackerURL string
	devMode    bool
}

// newRootCmd builds the pejl command tree.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &cliOptions{}
	cmd := &cobra.Command{
		Use:           "pejl [issue-key]",
		Short:         "terminal client for a field-oriented issue tracker",
		Long:          "pejl opens issue snapshots in a terminal detail screen with grid-based field editing, an offline sqlite cache, and an MCP agent surface.",
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts, firstArg(args))
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config TOML")
	pf.StringVar(&opts.cachePath, "cache", "", "path to sqlite snapshot cache")
	pf.StringVar(&opts.trackerURL, "tracker-url", "", "tracker base URL override")
	pf.BoolVar(&opts.devMode, "dev", defaultDevMode(), "use dev mode paths (pejl-dev)")

	cmd.AddCommand(
		newShowCmd(opts),
		newPathsCmd(opts),
		newServeCmd(opts, stderr),
	)
	return cmd
}

// defaultDevMode resolves the dev-mode default from build info and env.
func defaultDevMode() bool {
	devMode := version == "dev"
	if envDev, ok := parseBoolEnv("PEJL_DEV_MODE"); ok {
		devMode = envDev
	}
	return devMode
}

// runtimeEnv bundles resolved configuration and paths for one command run.
type runtimeEnv struct {
	cfg        config.Config
	configPath string
	paths      platform.Paths
}

// resolveRuntimeEnv applies flag > env > platform-default precedence.
func resolveRuntimeEnv(opts *cliOptions) (runtimeEnv, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: "pejl",
		DevMode: opts.devMode,
	})
	if err != nil {
		return runtimeEnv{}, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("PEJL_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}

	cachePath := strings.TrimSpace(opts.cachePath)
	cacheOverridden := cachePath != ""
	if !cacheOverridden {
		if envPath := strings.TrimSpace(os.Getenv("PEJL_CACHE_PATH")); envPath != "" {
			cachePath = envPath
			cacheOverridden = true
		} else {
			cachePath = paths.CachePath
		}
	}

	defaultCfg := config.Default(cachePath)
	cfg, err := config.Load(configPath, defaultCfg)
	if err != nil {
		return runtimeEnv{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if cacheOverridden {
		cfg.Cache.Path = cachePath
	}

	trackerURL := strings.TrimSpace(opts.trackerURL)
	if trackerURL == "" {
		trackerURL = strings.TrimSpace(os.Getenv("PEJL_TRACKER_URL"))
	}
	if trackerURL != "" {
		cfg.Tracker.BaseURL = trackerURL
	}
	return runtimeEnv{cfg: cfg, configPath: configPath, paths: paths}, nil
}

// newRuntimeLogger configures the structured runtime logger.
func newRuntimeLogger(stderr io.Writer, cfg config.LoggingConfig) (*charmLog.Logger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          "pejl",
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	}), nil
}

// openService wires the tracker client, the cache, and the app service.
func openService(rt runtimeEnv, logger *charmLog.Logger) (*app.Service, func(), error) {
	logger.Info("opening sqlite cache", "cache_path", rt.cfg.Cache.Path)
	cache, err := sqlitecache.Open(rt.cfg.Cache.Path)
	if err != nil {
		logger.Error("sqlite cache open failed", "cache_path", rt.cfg.Cache.Path, "err", err)
		return nil, nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	cleanup := func() {
		if closeErr := cache.Close(); closeErr != nil {
			logger.Warn("sqlite cache close failed", "cache_path", rt.cfg.Cache.Path, "err", closeErr)
		}
	}

	token := ""
	if tokenEnv := strings.TrimSpace(rt.cfg.Tracker.TokenEnv); tokenEnv != "" {
		token = strings.TrimSpace(os.Getenv(tokenEnv))
	}
	tracker, err := httptracker.New(rt.cfg.Tracker.BaseURL, httptracker.Options{
		Token:   token,
		Timeout: time.Duration(rt.cfg.Tracker.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		cleanup()
		logger.Error("tracker client init failed", "base_url", rt.cfg.Tracker.BaseURL, "err", err)
		return nil, nil, fmt.Errorf("init tracker client: %w", err)
	}
	logger.Info("tracker client ready", "base_url", rt.cfg.Tracker.BaseURL, "token_set", token != "")

	svc := app.NewService(tracker, cache, uuid.NewString, time.Now, app.ServiceConfig{
		OptionsTTL:  time.Duration(rt.cfg.Cache.OptionsTTLMinutes) * time.Minute,
		RecentLimit: rt.cfg.Cache.RecentLimit,
	})
	return svc, cleanup, nil
}

// runTUI resolves runtime state and starts the detail-screen program loop.
func runTUI(_ context.Context, opts *cliOptions, issueKey string) error {
	rt, err := resolveRuntimeEnv(opts)
	if err != nil {
		return err
	}
	// Keep TUI rendering clean: runtime logs stay off the terminal while the
	// detail screen is active.
	logger, err := newRuntimeLogger(io.Discard, rt.cfg.Logging)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}

	svc, cleanup, err := openService(rt, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	m := tui.NewModel(svc,
		tui.WithInitialIssue(issueKey),
		tui.WithFieldConfig(tui.FieldConfig{
			ShowLinks:    rt.cfg.Fields.ShowLinks,
			ShowComments: rt.cfg.Fields.ShowComments,
		}),
		tui.WithKeyOverrides(tui.KeyOverrides{
			FieldEdit:     rt.cfg.Keys.FieldEdit,
			Yank:          rt.cfg.Keys.Yank,
			IssueSwitcher: rt.cfg.Keys.IssueSwitcher,
			Refresh:       rt.cfg.Keys.Refresh,
		}),
		tui.WithClipboard(clipboard.WriteAll),
	)
	if _, err := programFactory(m).Run(); err != nil {
		return fmt.Errorf("run tui program: %w", err)
	}
	return nil
}

// newShowCmd builds the non-interactive snapshot printer.
func newShowCmd(opts *cliOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <issue-key>",
		Short: "print one issue snapshot and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), opts, args[0], asJSON, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the snapshot as JSON")
	return cmd
}

// runShow loads one issue through the service and prints it.
func runShow(ctx context.Context, opts *cliOptions, issueKey string, asJSON bool, stdout, stderr io.Writer) error {
	rt, err := resolveRuntimeEnv(opts)
	if err != nil {
		return err
	}
	logger, err := newRuntimeLogger(stderr, rt.cfg.Logging)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	svc, cleanup, err := openService(rt, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	loaded, err := svc.LoadIssue(ctx, issueKey)
	if err != nil {
		return fmt.Errorf("load issue %q: %w", strings.ToUpper(strings.TrimSpace(issueKey)), err)
	}

	if asJSON {
		encoded, err := json.MarshalIndent(loaded.Issue, "", "  ")
		if err != nil {
			return fmt.Errorf("encode issue json: %w", err)
		}
		encoded = append(encoded, '\n')
		if _, err := stdout.Write(encoded); err != nil {
			return fmt.Errorf("write issue json: %w", err)
		}
		return nil
	}

	issue := loaded.Issue
	_, _ = fmt.Fprintf(stdout, "%s  %s\n", issue.Key, issue.Summary)
	_, _ = fmt.Fprintf(stdout, "project: %s  reporter: %s\n", issue.Project, issue.Reporter)
	_, _ = fmt.Fprintf(stdout, "status: %s  priority: %s  assignee: %s\n", issue.Status, issue.Priority, valueOrDash(issue.Assignee))
	_, _ = fmt.Fprintf(stdout, "labels: %s\n", valueOrDash(strings.Join(issue.Labels, ", ")))
	if len(issue.Links) > 0 {
		parts := make([]string, 0, len(issue.Links))
		for _, link := range issue.Links {
			parts = append(parts, string(link.Kind)+" "+link.TargetKey)
		}
		_, _ = fmt.Fprintf(stdout, "links: %s\n", strings.Join(parts, ", "))
	}
	_, _ = fmt.Fprintf(stdout, "created: %s  updated: %s\n",
		issue.CreatedAt.Format(time.RFC3339), issue.UpdatedAt.Format(time.RFC3339))
	if loaded.Source == app.SourceCache {
		_, _ = fmt.Fprintf(stdout, "source: cache (fetched %s)\n", loaded.FetchedAt.Format(time.RFC3339))
	}
	if description := strings.TrimSpace(issue.Description); description != "" {
		_, _ = fmt.Fprintf(stdout, "\n%s\n", description)
	}
	if len(issue.Comments) > 0 {
		_, _ = fmt.Fprintf(stdout, "\ncomments (%d):\n", len(issue.Comments))
		for _, comment := range issue.Comments {
			_, _ = fmt.Fprintf(stdout, "  %s %s: %s\n",
				comment.CreatedAt.Format(time.RFC3339), comment.Author, comment.Body)
		}
	}
	return nil
}

// newPathsCmd builds the path-resolution inspector.
func newPathsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "print resolved config and cache paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntimeEnv(opts)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(stdout, "app: pejl\n")
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", rt.configPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", rt.paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "cache: %s\n", rt.cfg.Cache.Path)
			_, _ = fmt.Fprintf(stdout, "tracker: %s\n", rt.cfg.Tracker.BaseURL)
			return nil
		},
	}
}

// newServeCmd builds the MCP agent surface server.
func newServeCmd(opts *cliOptions, stderr io.Writer) *cobra.Command {
	var (
		httpBind    string
		mcpEndpoint string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the MCP agent surface over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntimeEnv(opts)
			if err != nil {
				return err
			}
			logger, err := newRuntimeLogger(stderr, rt.cfg.Logging)
			if err != nil {
				return fmt.Errorf("configure runtime logger: %w", err)
			}
			svc, cleanup, err := openService(rt, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			serveCfg := serveradapter.Config{
				HTTPBind:      httpBind,
				MCPEndpoint:   mcpEndpoint,
				ServerName:    "pejl",
				ServerVersion: version,
			}
			logger.Info("serve flow start", "http_bind", serveCfg.HTTPBind, "mcp_endpoint", serveCfg.MCPEndpoint)
			if err := serveCommandRunner(cmd.Context(), serveCfg, svc); err != nil {
				logger.Error("serve flow failed", "err", err)
				return fmt.Errorf("run serve command: %w", err)
			}
			logger.Info("serve flow complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&httpBind, "http", "127.0.0.1:7338", "HTTP listen address")
	cmd.Flags().StringVar(&mcpEndpoint, "mcp-endpoint", "/mcp", "MCP streamable HTTP endpoint")
	return cmd
}

// firstArg handles first arg.
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// valueOrDash substitutes a dash for empty display values.
func valueOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "—"
	}
	return v
}

// parseBoolEnv parses input into a normalized form.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
