package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/saworbit/dirdelta/internal/metrics"
	"github.com/saworbit/dirdelta/internal/version"
	"github.com/saworbit/dirdelta/pkg/config"
	"github.com/saworbit/dirdelta/pkg/patch"
	"github.com/saworbit/dirdelta/pkg/tree"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

type globalFlags struct {
	verbose     bool
	metricsFile string
	diffLibrary string
	hashAlgo    string
	workers     int
	tempDir     string
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "dirdelta",
		Short:         "dirdelta - directory tree patch archives",
		Version:       version.Version,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log every visited path")
	pf.StringVar(&flags.metricsFile, "metrics-file", "", "Write run metrics to this file in Prometheus text format")
	pf.StringVar(&flags.diffLibrary, "diff-library", "", "Delta codec: bsdiff or binarydist")
	pf.StringVar(&flags.hashAlgo, "hash", "", "Content fingerprint: sha1, sha256 or blake3")
	pf.IntVar(&flags.workers, "workers", 0, "Files fingerprinted concurrently")
	pf.StringVar(&flags.tempDir, "temp-dir", "", "Directory for temporary copies of archived files")

	root.AddCommand(
		newCreateCmd(&flags),
		newApplyCmd(&flags),
		newInspectCmd(&flags),
	)
	return root
}

// loadConfig layers flags set on the command line over the environment.
func loadConfig(cmd *cobra.Command, flags *globalFlags) (*config.Config, error) {
	cfg := config.LoadFromEnv()

	changed := cmd.Flags().Changed
	if changed("verbose") {
		cfg.Verbose = flags.verbose
	}
	if changed("metrics-file") {
		cfg.MetricsFile = flags.metricsFile
	}
	if changed("diff-library") {
		cfg.DiffLibrary = flags.diffLibrary
	}
	if changed("hash") {
		cfg.HashAlgo = flags.hashAlgo
	}
	if changed("workers") {
		cfg.Workers = flags.workers
	}
	if changed("temp-dir") {
		cfg.TempDir = flags.tempDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	metrics.SetBuildInfo(version.Version, cfg.DiffLibrary)
	return cfg, nil
}

func newCreateCmd(flags *globalFlags) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "create OLD NEW --out <file>",
		Short: "Build a patch archive that turns OLD into NEW",
		Long: "Build a patch archive that turns OLD into NEW.\n" +
			"OLD and NEW are directories or .zip snapshots.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outPath == "" {
				return fmt.Errorf("out file is required")
			}
			cmd.SilenceUsage = true
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return withMetrics(cfg, func() error {
				return runCreate(cmd.Context(), cfg, args[0], args[1], outPath, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination patch archive")
	return cmd
}

func newApplyCmd(flags *globalFlags) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "apply OLD PATCH --out <dir>",
		Short: "Rebuild the new tree from OLD and a patch archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return fmt.Errorf("out directory is required")
			}
			cmd.SilenceUsage = true
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return withMetrics(cfg, func() error {
				return runApply(cmd.Context(), cfg, args[0], args[1], outDir, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Destination directory for the rebuilt tree")
	return cmd
}

func newInspectCmd(flags *globalFlags) *cobra.Command {
	var listEntries bool

	cmd := &cobra.Command{
		Use:   "inspect PATCH",
		Short: "Print the manifest summary of a patch archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if _, err := loadConfig(cmd, flags); err != nil {
				return err
			}
			return runInspect(args[0], listEntries, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&listEntries, "list", "l", false, "List every manifest record")
	return cmd
}

func withMetrics(cfg *config.Config, run func() error) error {
	runErr := run()
	if cfg.MetricsFile == "" {
		return runErr
	}
	if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
		if runErr != nil {
			log.Printf("[metrics] %v", err)
			return runErr
		}
		return err
	}
	return runErr
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

func openTree(location, tempDir string) (tree.Tree, func(), error) {
	t, err := tree.Open(location, tempDir)
	if err != nil {
		return nil, nil, err
	}
	release := func() {}
	if a, ok := t.(*tree.Archive); ok {
		release = func() { _ = a.Close() }
	}
	return t, release, nil
}

func runCreate(ctx context.Context, cfg *config.Config, oldPath, newPath, outPath string, stdout io.Writer) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	oldTree, releaseOld, err := openTree(oldPath, cfg.TempDir)
	if err != nil {
		return err
	}
	defer releaseOld()
	newTree, releaseNew, err := openTree(newPath, cfg.TempDir)
	if err != nil {
		return err
	}
	defer releaseNew()

	creator, err := patch.NewCreator(cfg)
	if err != nil {
		return err
	}

	out := &lazyFile{path: outPath}
	sum, err := creator.Create(ctx, oldTree, newTree, out)
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close %s: %w", outPath, closeErr)
	}
	if err != nil {
		if out.f != nil {
			log.Printf("[create] %s is incomplete", outPath)
		}
		return err
	}

	fmt.Fprintf(stdout, "wrote %s\n%s", outPath, sum)
	return nil
}

func runApply(ctx context.Context, cfg *config.Config, oldPath, patchPath, outDir string, stdout io.Writer) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	oldTree, releaseOld, err := openTree(oldPath, cfg.TempDir)
	if err != nil {
		return err
	}
	defer releaseOld()

	f, err := os.Open(patchPath)
	if err != nil {
		return fmt.Errorf("open patch: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat patch: %w", err)
	}

	applier, err := patch.NewApplier(cfg)
	if err != nil {
		return err
	}
	sum, err := applier.Apply(ctx, oldTree, f, info.Size(), outDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "rebuilt %s\n%s", outDir, sum)
	return nil
}

func runInspect(patchPath string, listEntries bool, stdout io.Writer) error {
	f, err := os.Open(patchPath)
	if err != nil {
		return fmt.Errorf("open patch: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat patch: %w", err)
	}

	sum, entries, err := patch.Inspect(f, info.Size())
	if err != nil {
		return err
	}

	fmt.Fprint(stdout, sum)
	if listEntries {
		for _, e := range entries {
			fmt.Fprintf(stdout, "%-9s %s\n", e.Kind, e.Path)
		}
	}
	return nil
}

// lazyFile creates its file on the first write, so a run that fails
// before producing output leaves nothing on disk.
type lazyFile struct {
	path string
	f    *os.File
}

func (l *lazyFile) Write(p []byte) (int, error) {
	if l.f == nil {
		f, err := os.Create(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.Write(p)
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
