package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/lrstanley/go-ytdlp"

	"github.com/marcosal/setdecoder/pkg/logger"
	"github.com/marcosal/setdecoder/pkg/models"
	"github.com/marcosal/setdecoder/pkg/setdecoder"
	"github.com/marcosal/setdecoder/pkg/utils"
)

var (
	apiToken      string
	tempDir       string
	intervalSec   int
	workers       int
	missThreshold int
	fuzzyDedup    bool
	jsonPath      string
)

func init() {
	flag.StringVar(&apiToken, "token", os.Getenv("AUDD_API_TOKEN"), "AudD API token (env: AUDD_API_TOKEN)")
	flag.StringVar(&tempDir, "temp", getEnvOrDefault("SETDECODER_TEMP_DIR", os.TempDir()), "Directory for temporary audio files")
	flag.IntVar(&intervalSec, "interval", 30, "Sampling interval in seconds (15-60)")
	flag.IntVar(&workers, "workers", 1, "Parallel recognition workers")
	flag.IntVar(&missThreshold, "miss-threshold", 2, "Consecutive misses that close a tracklist entry")
	flag.BoolVar(&fuzzyDedup, "fuzzy", false, "Merge remix/edit variants of the same track")
	flag.StringVar(&jsonPath, "json", "", "Write the tracklist as JSON to this file")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log := logger.GetLogger()

	printBanner()
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}
	sourceURL := flag.Arg(0)

	if apiToken == "" {
		fmt.Println("❌ An AudD API token is required (set -token or AUDD_API_TOKEN)")
		os.Exit(1)
	}
	if !utils.IsSupportedSource(sourceURL) {
		fmt.Printf("❌ Unsupported source URL: %s\n", sourceURL)
		os.Exit(1)
	}

	opts := []setdecoder.Option{
		setdecoder.WithAPIToken(apiToken),
		setdecoder.WithTempDir(tempDir),
		setdecoder.WithWorkers(workers),
		setdecoder.WithMissThreshold(missThreshold),
	}
	if fuzzyDedup {
		opts = append(opts, setdecoder.WithTrackKey(func(tr models.Track) string {
			return utils.NormalizeTrackName(tr.Artist, tr.Title)
		}))
	}

	fmt.Println("\n🔧 Initializing service...")
	ytdlp.MustInstall(context.TODO(), nil)

	svc, err := setdecoder.New(opts...)
	if err != nil {
		fmt.Printf("❌ Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}

	// Ctrl-C cancels the run; partial results are still printed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("🎧 Downloading and analyzing the set...")
	fmt.Println("   Long recordings take a while; press Ctrl-C for partial results")
	fmt.Println()

	observer := setdecoder.ProgressFunc(func(ev models.ProgressEvent) {
		if ev.Terminal {
			fmt.Println()
			return
		}
		fmt.Printf("\r   Segment %d/%d | %d track(s) so far", ev.Processed, ev.Total, len(ev.Tracklist))
	})

	interval := time.Duration(intervalSec) * time.Second
	result, err := svc.Run(ctx, sourceURL, interval, observer)
	if err != nil && result == nil {
		fmt.Printf("\n❌ Identification failed: %v\n", err)
		log.Errorf("Run failed: %v", err)
		os.Exit(1)
	}

	printResult(result, err)

	if jsonPath != "" {
		if err := writeJSON(jsonPath, result); err != nil {
			fmt.Printf("❌ Failed to write %s: %v\n", jsonPath, err)
			os.Exit(1)
		}
		fmt.Printf("💾 Tracklist written to %s\n", jsonPath)
	}

	if result.Status != models.StatusCompleted && result.Status != models.StatusPartialQuota &&
		result.Status != models.StatusCancelled {
		os.Exit(1)
	}
}

func printResult(result *models.Result, runErr error) {
	switch result.Status {
	case models.StatusCompleted:
		fmt.Println("\n✅ Identification complete!")
	case models.StatusPartialQuota:
		fmt.Println("\n⚠️  Recognition quota exhausted; showing partial tracklist")
	case models.StatusCancelled:
		fmt.Println("\n⚠️  Cancelled; showing partial tracklist")
	default:
		fmt.Printf("\n❌ Identification failed: %v\n", runErr)
		return
	}

	if result.SetInfo != nil && result.SetInfo.Title != "" {
		fmt.Printf("   Set: %s", result.SetInfo.Title)
		if result.SetInfo.Uploader != "" {
			fmt.Printf(" (by %s)", result.SetInfo.Uploader)
		}
		fmt.Println()
	}
	fmt.Printf("   Segments: %d/%d analyzed\n", result.SegmentsProcessed, result.SegmentsTotal)

	if len(result.Tracklist) == 0 {
		fmt.Println("\n📭 No tracks identified")
		return
	}

	title := color.New(color.FgCyan, color.Bold)
	link := color.New(color.FgBlue)

	fmt.Printf("\n🎵 Tracklist (%d tracks):\n\n", len(result.Tracklist))
	for i, entry := range result.Tracklist {
		fmt.Printf("%2d. [%s] ", i+1, utils.FormatTimestamp(entry.FirstSeen))
		title.Printf("%s — %s\n", entry.Track.Artist, entry.Track.Title)
		if entry.Track.Album != "" {
			fmt.Printf("       Album: %s\n", entry.Track.Album)
		}
		if entry.Track.Links.Spotify != "" {
			fmt.Print("       Spotify: ")
			link.Println(entry.Track.Links.Spotify)
		}
		if entry.Track.Links.AppleMusic != "" {
			fmt.Print("       Apple Music: ")
			link.Println(entry.Track.Links.AppleMusic)
		}
		if entry.Track.Links.Deezer != "" {
			fmt.Print("       Deezer: ")
			link.Println(entry.Track.Links.Deezer)
		}
	}
}

func writeJSON(path string, result *models.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := setdecoder.ExportTracklist(f, result); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printBanner() {
	banner := `
  ____       _   ____                     _
 / ___|  ___| |_|  _ \  ___  ___ ___   __| | ___ _ __
 \___ \ / _ \ __| | | |/ _ \/ __/ _ \ / _` + "`" + ` |/ _ \ '__|
  ___) |  __/ |_| |_| |  __/ (_| (_) | (_| |  __/ |
 |____/ \___|\__|____/ \___|\___\___/ \__,_|\___|_|

           DJ Set Tracklist Identifier
`
	fmt.Println(banner)
}

func printUsage() {
	fmt.Println("SetDecoder - DJ Set Tracklist Identifier")
	fmt.Println("\nUsage:")
	fmt.Println("  setdecoder [options] <url>")
	fmt.Println("\nOptions:")
	fmt.Println("  --token <token>       AudD API token (env: AUDD_API_TOKEN)")
	fmt.Println("  --interval <seconds>  Sampling interval, 15-60 (default: 30)")
	fmt.Println("  --workers <n>         Parallel recognition workers (default: 1)")
	fmt.Println("  --miss-threshold <n>  Consecutive misses that close an entry (default: 2)")
	fmt.Println("  --fuzzy               Merge remix/edit variants of the same track")
	fmt.Println("  --json <file>         Also write the tracklist as JSON")
	fmt.Println("  --temp <dir>          Temporary directory (env: SETDECODER_TEMP_DIR)")
	fmt.Println("\nExamples:")
	fmt.Println("  setdecoder https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	fmt.Println("  setdecoder --interval 15 --json tracklist.json https://soundcloud.com/artist/set")
	fmt.Println()
	fmt.Println("  # Identify with parallel recognition and fuzzy dedup")
	fmt.Println("  setdecoder --workers 4 --fuzzy https://youtu.be/dQw4w9WgXcQ")
}
