// Command snapshot captures a PNG of a running dashboard with headless
// Chrome once the trend chart has rendered.
//
//	snapshot -url http://localhost:8080/ -out dashboard.png
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"kpidash/internal/config"
	"kpidash/internal/infrastructure"
)

// rendered once Plotly has drawn the trend
const chartSelector = "#trend .main-svg"

type options struct {
	URL      string
	Out      string
	Width    int64
	Height   int64
	Quality  int
	Timeout  time.Duration
	Settle   time.Duration
	Headless bool
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	logger := infrastructure.NewLogger(os.Stderr, config.LoggingConfig{Level: "info"})
	if err := capture(context.Background(), opts, logger); err != nil {
		logger.Error("snapshot failed", slog.String("url", opts.URL), slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.URL, "url", fmt.Sprintf("http://localhost:%d/", config.DefaultPort), "dashboard address")
	fs.StringVar(&opts.Out, "out", "dashboard.png", "PNG file to write")
	fs.Int64Var(&opts.Width, "width", 1440, "viewport width")
	fs.Int64Var(&opts.Height, "height", 900, "viewport height")
	fs.IntVar(&opts.Quality, "quality", 90, "screenshot quality (0-100)")
	fs.DurationVar(&opts.Timeout, "timeout", time.Minute, "overall time limit")
	fs.DurationVar(&opts.Settle, "settle", 500*time.Millisecond, "pause after the chart appears")
	fs.BoolVar(&opts.Headless, "headless", true, "run browser headless")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	u, err := url.Parse(opts.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		err = fmt.Errorf("-url must be an http(s) address, got %q", opts.URL)
		fmt.Fprintln(stderr, err)
		return options{}, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		err = fmt.Errorf("-width and -height must be positive")
		fmt.Fprintln(stderr, err)
		return options{}, err
	}
	if opts.Quality < 0 || opts.Quality > 100 {
		err = fmt.Errorf("-quality must be between 0 and 100")
		fmt.Fprintln(stderr, err)
		return options{}, err
	}
	return opts, nil
}

func capture(ctx context.Context, opts options, logger *slog.Logger) error {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.WindowSize(int(opts.Width), int(opts.Height)),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancel()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancelTimeout()

	var png []byte
	start := time.Now()
	if err := chromedp.Run(browserCtx, captureTasks(opts, &png)); err != nil {
		return fmt.Errorf("capture: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Out), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(opts.Out, png, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	logger.Info("Snapshot written",
		slog.String("url", opts.URL),
		slog.String("path", opts.Out),
		slog.Int("bytes", len(png)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func captureTasks(opts options, png *[]byte) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.EmulateViewport(opts.Width, opts.Height),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(chartSelector, chromedp.ByQuery),
		chromedp.Sleep(opts.Settle),
		chromedp.FullScreenshot(png, opts.Quality),
	}
}
