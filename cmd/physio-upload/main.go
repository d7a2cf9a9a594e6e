package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shravan/physio/internal/exercise"
	"github.com/shravan/physio/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", os.Getenv("PHYSIO_URL"), "Physio server URL (e.g. https://physio.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("PHYSIO_AUTH_API_KEY"), "API key for session writes")
	exerciseName := flag.String("exercise", "", "exercise the recordings show (handsUp, handsCurl, sitAndReach)")
	dryRun := flag.Bool("dry-run", false, "parse recordings but don't send to server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("physio-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if flag.NArg() == 0 || *exerciseName == "" {
		fmt.Fprintf(os.Stderr, "Usage: physio-upload -server <URL> -api-key <key> -exercise <name> [-dry-run] <recording.jsonl|dir>...\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	typ, err := exercise.ParseType(*exerciseName)
	if err != nil {
		log.Error("invalid exercise", "error", err)
		os.Exit(1)
	}

	if (*serverURL == "" || *apiKey == "") && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server and -api-key are required (or use -dry-run)\n")
		os.Exit(1)
	}

	paths, err := upload.CollectRecordings(flag.Args())
	if err != nil {
		log.Error("collecting recordings", "error", err)
		os.Exit(1)
	}
	log.Info("found recordings", "count", len(paths))

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := upload.OpenStateDB(filepath.Join(homeDir, ".physio-upload"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	// Create client (nil-safe in dry-run mode)
	var client *upload.Client
	if !*dryRun {
		client = upload.NewClient(*serverURL, *apiKey)
	} else {
		log.Info("DRY RUN mode: recordings will be parsed but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	uploader := upload.New(client, state, string(typ), *dryRun, log)
	stats, err := uploader.Run(ctx, paths)
	printStats(stats)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("upload interrupted")
		} else {
			log.Error("upload failed", "error", err)
		}
		os.Exit(1)
	}
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Recordings total:    %d\n", stats.FilesTotal)
	fmt.Printf("  Recordings uploaded: %d\n", stats.FilesUploaded)
	fmt.Printf("  Recordings skipped:  %d (already uploaded)\n", stats.FilesSkipped)
	fmt.Printf("  Recordings errored:  %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Frames sent:         %d\n", stats.FramesSent)
	fmt.Printf("  Frames without pose: %d\n", stats.FramesNoPose)
	fmt.Printf("  Reps recorded:       %d\n", stats.RepsRecorded)

	if len(stats.FailedFiles) > 0 {
		fmt.Printf("\n  Failed recordings:\n")
		for _, f := range stats.FailedFiles {
			fmt.Printf("    - %s\n", f)
		}
	}
	fmt.Println()
}
