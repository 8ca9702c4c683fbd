package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Napageneral/trac2gollum/internal/config"
	"github.com/Napageneral/trac2gollum/internal/gitrepo"
	"github.com/Napageneral/trac2gollum/internal/history"
	"github.com/Napageneral/trac2gollum/internal/logging"
	"github.com/Napageneral/trac2gollum/internal/markup"
	"github.com/Napageneral/trac2gollum/internal/migrate"
	"github.com/Napageneral/trac2gollum/internal/preview"
	"github.com/Napageneral/trac2gollum/internal/trac"
)

var (
	version    = "dev"
	commit     = "none"
	buildDate  = "unknown"
	jsonOutput bool
	configPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(migrate.ExitConfig)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "trac2gollum <trac.db> <git-repo>",
		Short: "Migrate a Trac wiki into a Gollum git wiki",
		Long: `trac2gollum replays the full history of a Trac wiki as git commits.
Every stored revision is committed verbatim with its original author, date
and comment; after the last revision of each page one more commit holds the
page converted to Markdown.`,
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			if code := runMigrate(cmd, args); code != migrate.ExitOK {
				os.Exit(code)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().String("git", "", "git binary to run")
	rootCmd.Flags().String("driver", "", "SQLite driver: sqlite (pure Go) or sqlite3 (cgo)")
	rootCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("dry-run", false, "Convert and log every commit without touching the repository")
	rootCmd.Flags().Bool("no-compact", false, "Skip git gc after the last commit")

	// version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
					"date":    buildDate,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "trac2gollum %s (%s, %s)\n", version, commit, buildDate)
			}
		},
	})

	// convert command
	convertCmd := &cobra.Command{
		Use:   "convert [file|-]",
		Short: "Convert one page of Trac markup to Markdown",
		Args:  cobra.MaximumNArgs(1),
		Run:   runConvert,
	}
	convertCmd.Flags().Bool("html", false, "Render the converted Markdown as HTML")
	rootCmd.AddCommand(convertCmd)

	return rootCmd
}

// runMigrate performs the migration and returns the process exit code.
func runMigrate(cmd *cobra.Command, args []string) int {
	type Result struct {
		OK      bool            `json:"ok"`
		Message string          `json:"message,omitempty"`
		Source  string          `json:"source"`
		Target  string          `json:"target"`
		Report  *migrate.Report `json:"report,omitempty"`
	}

	source, target := args[0], args[1]
	result := Result{OK: true, Source: source, Target: target}
	out := cmd.OutOrStdout()

	fail := func(err error) int {
		result.OK = false
		result.Message = err.Error()
		if jsonOutput {
			printJSON(out, result)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", result.Message)
		}
		return migrate.ExitCode(err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fail(err)
	}

	if !jsonOutput {
		fmt.Fprintf(out, "Reading %q, writing %q.\n", source, target)
	}

	if info, err := os.Stat(source); err != nil || info.IsDir() {
		return fail(config.Invalid(fmt.Errorf("either file %q or git repository %q does not exist", source, target)))
	}
	vcs, err := gitrepo.NewCLI(cfg.Git, target)
	if err != nil {
		return fail(config.Invalid(fmt.Errorf("either file %q or git repository %q does not exist", source, target)))
	}

	logs, err := newLoggers(cmd, cfg.Log)
	if err != nil {
		return fail(config.Invalid(err))
	}

	db, err := trac.Open(cfg.Driver, source)
	if err != nil {
		return fail(err)
	}
	defer db.Close()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	noCompact, _ := cmd.Flags().GetBool("no-compact")

	ctx := context.Background()
	enum := history.New(
		trac.NewStore(db, cfg.ReservedAddress),
		markup.New(),
		history.Options{Pages: cfg.Pages(), Offset: cfg.TimeOffset},
	)
	mat := gitrepo.NewMaterializer(vcs, target, cfg.Extension, logs("gitrepo"))

	report, err := migrate.Run(ctx, enum, mat, migrate.Options{
		DryRun:  dryRun,
		Compact: cfg.Compact && !noCompact,
	}, logs("migrate"))
	result.Report = &report
	if err != nil {
		return fail(err)
	}

	if jsonOutput {
		result.Message = "Migration complete"
		printJSON(out, result)
		return migrate.ExitOK
	}

	if report.DryRun {
		fmt.Fprintf(out, "✓ Dry run: %d pages, %d revisions would be committed\n", report.Pages, report.Revisions)
		return migrate.ExitOK
	}
	fmt.Fprintf(out, "✓ Pages: %d\n", report.Pages)
	fmt.Fprintf(out, "✓ Commits: %d (%d via fallback)\n", report.Commits, report.Fallbacks)
	if report.Compacted {
		fmt.Fprintln(out, "✓ Repository compacted")
	}
	fmt.Fprintln(out, "\nMigration complete!")
	return migrate.ExitOK
}

// newLoggers returns a factory of named loggers. glog writes to stdout, so
// with --json logging stays off unless --log-level asks for it.
func newLoggers(cmd *cobra.Command, cfg logging.Config) (func(name string) logging.Logger, error) {
	if jsonOutput && !cmd.Flags().Changed("log-level") {
		return func(string) logging.Logger { return logging.NoOp() }, nil
	}
	provider, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	return provider.Get, nil
}

func runConvert(cmd *cobra.Command, args []string) {
	var in io.Reader = os.Stdin
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(migrate.ExitConfig)
		}
		defer f.Close()
		in = f
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(migrate.ExitConfig)
	}

	out := markup.New().Convert(string(raw))

	if asHTML, _ := cmd.Flags().GetBool("html"); asHTML {
		out, err = preview.NewRenderer().Render(out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(migrate.ExitConfig)
		}
	}

	if jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]string{"output": out})
		return
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
}

// loadConfig reads --config and applies flag overrides on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("git") {
		cfg.Git, _ = flags.GetString("git")
	}
	if flags.Changed("driver") {
		cfg.Driver, _ = flags.GetString("driver")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	return cfg, cfg.Validate()
}

func printJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
