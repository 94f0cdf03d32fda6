package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"os/user"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"livecollect/core/internal/config"
	"livecollect/core/internal/session"
	"livecollect/core/internal/version"
)

type rootFlags struct {
	output         string
	configPath     string
	caseID         string
	commandTimeout time.Duration
	iocFile        string
	quiet          bool
}

// NewRootCmd returns the livecollect command. Run without a subcommand it
// performs one collection on the local host.
func NewRootCmd() *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:           "livecollect",
		Short:         "Collect a live-system forensic report from this host",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := afero.NewOsFs()
			cfg, err := resolveConfig(cmd, fs, f)
			if err != nil {
				return err
			}
			if f.caseID == "" {
				f.caseID = uuid.NewString()
			}

			out := cmd.OutOrStdout()
			logger := log.New(cmd.ErrOrStderr(), "livecollect: ", log.LstdFlags)
			if f.quiet {
				logger.SetOutput(io.Discard)
			}
			warnIfNotElevated(out)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := session.Run(ctx, session.Options{
				Fs:        fs,
				Logger:    logger,
				CaseID:    f.caseID,
				StartedAt: time.Now(),
				Host:      hostname(),
				User:      username(),
				GOOS:      runtime.GOOS,
				Getenv:    os.Getenv,
				Config:    cfg,
				IOCFile:   f.iocFile,
			})
			if res.ReportPath != "" {
				color.New(color.FgGreen).Fprintf(out, "Collection complete. Report: %s\n", res.ReportPath)
				fmt.Fprintf(out, "Artifacts folder: %s\n", res.VaultDir)
				fmt.Fprintf(out, "case=%s sections=%d artifacts=%d\n", res.CaseID, len(res.Sections), len(res.Artifacts))
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.output, "output", "o", config.DefaultOutput, "Base directory for the forensic_collection_<timestamp> folder")
	flags.StringVarP(&f.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&f.caseID, "case-id", "", "Case ID recorded in the manifest (default: random UUID)")
	flags.DurationVar(&f.commandTimeout, "command-timeout", config.DefaultCommandTimeout, "Timeout for each external command")
	flags.StringVar(&f.iocFile, "ioc-file", "", "IOC list file (one pattern per line) scanned against the collected sections")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "Suppress progress logging")

	cmd.AddCommand(NewSectionsCmd())
	cmd.AddCommand(NewVersionCmd())

	cmd.SetVersionTemplate(fmt.Sprintf("%s (%s/%s)\n", version.Version, runtime.GOOS, runtime.GOARCH))
	cmd.Version = version.Version

	return cmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// resolveConfig loads the config file, if any, and applies explicitly set
// flags on top of it.
func resolveConfig(cmd *cobra.Command, fs afero.Fs, f rootFlags) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(fs, f.configPath); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = f.output
	}
	if flags.Changed("command-timeout") {
		cfg.CommandTimeout = f.commandTimeout.String()
	}
	return cfg, cfg.Validate()
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return os.Getenv("COMPUTERNAME")
}

func username() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if v := os.Getenv("USERNAME"); v != "" {
		return v
	}
	return os.Getenv("USER")
}

func warnIfNotElevated(w io.Writer) {
	yellow := color.New(color.FgYellow)
	switch {
	case runtime.GOOS == "windows":
		yellow.Fprintln(w, "Note: run from an elevated (Administrator) prompt for full detail.")
	case os.Geteuid() != 0:
		yellow.Fprintln(w, "Warning: not running as root; some sections will be incomplete.")
	}
}
