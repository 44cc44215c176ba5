package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"photo-recovery/internal/filesystem"
	"photo-recovery/internal/logging"
	"photo-recovery/internal/recovery"
	"photo-recovery/internal/repair"
	"photo-recovery/internal/startup"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

const progressInterval = 200 * time.Millisecond

type options struct {
	archive   string
	output    string
	workDir   string
	keep      bool
	verbose   bool
	progress  bool
	maxEntry  int64
	repair    repair.Config
	thumbSize int
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling recovery...")
		cancel()
	}()

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	opts.progress = term.IsTerminal(int(os.Stderr.Fd()))

	session, err := run(ctx, opts, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if session.Status == recovery.StatusFailed {
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	defaults := repair.DefaultConfig()
	opts := &options{}

	flagSet := pflag.NewFlagSet("recoverzip", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.output, "output", "o", "", "write the recovered photos to this zip file")
	flagSet.StringVarP(&opts.workDir, "workdir", "w", "", "directory for extracted photos and thumbnails (default: a temporary directory)")
	flagSet.BoolVar(&opts.keep, "keep", false, "keep the working directory after exit")
	flagSet.BoolVarP(&opts.verbose, "verbose", "v", false, "print the session log and debug output")
	flagSet.Int64Var(&opts.maxEntry, "max-entry-size", 100<<20, "largest decompressed entry in bytes")
	flagSet.IntVar(&opts.repair.ScanLimit, "scan-limit", defaults.ScanLimit, "highest leading offset the repair scan tries")
	flagSet.IntVar(&opts.repair.ScanStep, "scan-step", defaults.ScanStep, "stride of the repair offset scan")
	flagSet.IntVar(&opts.repair.MinSize, "scan-min-size", defaults.MinSize, "skip the offset scan for buffers at or below this size")
	flagSet.IntVar(&opts.thumbSize, "thumbnail-size", 200, "thumbnail edge in pixels")
	version := flagSet.Bool("version", false, "print version information")
	flagSet.Usage = func() {
		fmt.Fprintln(stderr, "Usage: recoverzip [flags] <archive.zip>")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Recovers the photos in a zip archive, repairing damaged JPEG and PNG data.")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "Flags:")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	if *version {
		info := startup.GetBuildInfo()
		fmt.Fprintf(stderr, "recoverzip %s (%s, built %s, %s)\n", info.Version, info.Commit, info.BuildTime, info.GoVersion)
		return nil, pflag.ErrHelp
	}

	rest := flagSet.Args()
	if len(rest) != 1 {
		flagSet.Usage()
		return nil, fmt.Errorf("expected exactly one archive, got %d arguments", len(rest))
	}
	opts.archive = rest[0]
	return opts, nil
}

func run(ctx context.Context, opts *options, stdout, stderr io.Writer) (*recovery.Session, error) {
	if opts.verbose {
		logging.SetLevel(logging.LevelDebug)
	} else {
		logging.SetLevel(logging.LevelWarn)
	}

	data, err := filesystem.ReadFileWithRetry(opts.archive)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}

	workDir := opts.workDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "recoverzip-")
		if err != nil {
			return nil, fmt.Errorf("create working directory: %w", err)
		}
	}
	if !opts.keep {
		defer func() {
			if err := os.RemoveAll(workDir); err != nil {
				fmt.Fprintf(stderr, "Warning: failed to remove %s: %v\n", workDir, err)
			}
		}()
	}

	registry, err := recovery.NewRegistry(recovery.Options{
		ExtractDir:    filepath.Join(workDir, "extracted"),
		ThumbnailDir:  filepath.Join(workDir, "thumbnails"),
		MaxEntrySize:  opts.maxEntry,
		MaxConcurrent: 1,
		Repair:        opts.repair,
		ThumbnailSize: opts.thumbSize,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = registry.Close(closeCtx)
	}()

	id, err := registry.Start(filepath.Base(opts.archive), data)
	if err != nil {
		return nil, err
	}

	session, err := waitWithProgress(ctx, registry, id, opts.progress, stderr)
	if err != nil {
		return nil, err
	}

	printSummary(stdout, session, opts.verbose)

	if opts.output != "" && session.Status == recovery.StatusCompleted {
		if err := writeOutput(ctx, registry, id, opts.output); err != nil {
			return session, err
		}
		fmt.Fprintf(stdout, "Recovered photos written to %s\n", opts.output)
	}
	if opts.keep {
		fmt.Fprintf(stdout, "Working directory kept at %s\n", workDir)
	}
	return session, nil
}

// waitWithProgress blocks until the session is terminal. Cancelling ctx
// cancels the session and still waits for its final snapshot.
func waitWithProgress(ctx context.Context, registry *recovery.Registry, id string, progress bool, stderr io.Writer) (*recovery.Session, error) {
	done := make(chan struct{})
	var session *recovery.Session
	var waitErr error
	go func() {
		defer close(done)
		session, waitErr = registry.Wait(context.Background(), id)
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			if progress {
				fmt.Fprint(stderr, "\r\033[K")
			}
			return session, waitErr
		case <-ctx.Done():
			if err := registry.Cancel(id); err != nil {
				return nil, err
			}
			ctx = context.Background()
		case <-ticker.C:
			if !progress {
				continue
			}
			if s, err := registry.Get(id); err == nil {
				fmt.Fprintf(stderr, "\rProcessing entries: %d/%d (images %d)", s.ProcessedEntries, s.TotalEntries, s.ImagesFound)
			}
		}
	}
}

func writeOutput(ctx context.Context, registry *recovery.Registry, id, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output: %w", cerr)
		}
	}()

	if err := registry.Download(ctx, id, f); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, s *recovery.Session, verbose bool) {
	fmt.Fprintf(w, "Session:   %s\n", s.ID)
	fmt.Fprintf(w, "Status:    %s\n", s.Status)
	fmt.Fprintf(w, "Entries:   %d\n", s.TotalEntries)
	fmt.Fprintf(w, "Images:    %d\n", s.ImagesFound)
	fmt.Fprintf(w, "Recovered: %d\n", s.RecoveredCount)
	fmt.Fprintf(w, "Corrupted: %d\n", s.CorruptedCount)

	if len(s.Entries) > 0 {
		fmt.Fprintln(w, "")
		for _, e := range s.Entries {
			line := fmt.Sprintf("  %-10s %s", e.RecoveryStatus, e.Name)
			if e.Metadata != nil {
				line += fmt.Sprintf(" (%dx%d %s)", e.Metadata.Width, e.Metadata.Height, e.Metadata.Format)
			}
			if e.RepairStrategy != "" {
				line += fmt.Sprintf(" [%s @%d]", e.RepairStrategy, e.RepairOffset)
			}
			fmt.Fprintln(w, line)
		}
	}

	if verbose {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Log:")
		for _, l := range s.Log {
			fmt.Fprintf(w, "  %s\n", l)
		}
	}
}
