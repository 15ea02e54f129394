package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/core"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/renderer"
	"github.com/cnr-isti-vclab/meshlab-sub011/pkg/scene"
)

// settingsFlag collects repeated -set key=value flags
type settingsFlag map[string]string

func (s settingsFlag) String() string {
	pairs := make([]string, 0, len(s))
	for k, v := range s {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (s settingsFlag) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	s[strings.TrimSpace(key)] = val
	return nil
}

// config holds the parsed command line
type config struct {
	scene     string
	scenesDir string
	out       string
	settings  settingsFlag
	timeout   time.Duration
	overlay   bool
	help      bool
}

func parseFlags(args []string, stderr io.Writer) (*config, *flag.FlagSet, error) {
	cfg := &config{settings: settingsFlag{}}

	fs := flag.NewFlagSet("raytracer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.scene, "scene", "default", "Built-in scene id, file:<name> from -scenes, or a .json path")
	fs.StringVar(&cfg.scenesDir, "scenes", "scenes", "Directory of JSON scene files")
	fs.StringVar(&cfg.out, "out", "", "Output PNG (default output/<scene>/render_<timestamp>.png)")
	fs.Var(cfg.settings, "set", "Render option as key=value, repeatable (e.g. -set samples=4 -set progressive=true)")
	fs.DurationVar(&cfg.timeout, "timeout", 0, "Stop the render after this long and save the partial image")
	fs.BoolVar(&cfg.overlay, "stats", false, "Draw render statistics onto the image")
	fs.BoolVar(&cfg.help, "help", false, "Show help information")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return cfg, fs, nil
}

func printHelp(w io.Writer, fs *flag.FlagSet, scenesDir string) {
	fmt.Fprintln(w, "Voxel Raytracer")
	fmt.Fprintln(w, "Usage: raytracer [options]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render options (-set):")
	fmt.Fprintln(w, "  samples, ambient-occlusion-samples, max-depth, voxel-steps, max-threads,")
	fmt.Fprintln(w, "  progressive, shadows, size (WxH), dof (center,falloff), light (x,y,z), filter")
	fmt.Fprintln(w)

	response, err := scene.ListAllScenes(scenesDir)
	if err != nil {
		fmt.Fprintf(w, "Error listing scenes: %v\n", err)
		return
	}
	fmt.Fprintln(w, "Available scenes:")
	for _, group := range response.Groups {
		fmt.Fprintf(w, "  %s:\n", group.Name)
		for _, s := range group.Scenes {
			fmt.Fprintf(w, "    %-20s %s\n", s.ID, s.Description)
		}
	}
}

// outputPath returns the explicit path or a timestamped one per scene
func outputPath(cfg *config, sceneName string, now time.Time) string {
	if cfg.out != "" {
		return cfg.out
	}
	dir := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == ':' || r == ' ' {
			return '-'
		}
		return r
	}, strings.ToLower(sceneName))
	return filepath.Join("output", dir, fmt.Sprintf("render_%s.png", now.Format("20060102_150405")))
}

// drawStats writes the stats line along the bottom edge of img
func drawStats(img *image.RGBA, stats renderer.RenderStats) {
	dc := gg.NewContextForRGBA(img)
	h := float64(img.Bounds().Dy())
	text := stats.String()

	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(0, h-18, float64(img.Bounds().Dx()), 18)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.DrawString(text, 4, h-5)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, fs, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if cfg.help {
		printHelp(stdout, fs, cfg.scenesDir)
		return nil
	}

	logger := core.NewWriterLogger(stdout, "")

	sc, err := scene.Load(cfg.scene, cfg.scenesDir)
	if err != nil {
		return err
	}
	logger.Printf("Loaded scene %q with %d primitives", sc.Name, sc.PrimitiveCount())

	opts := renderer.DefaultOptions()
	opts.Apply(sc.Settings, logger)
	if errs := opts.Apply(cfg.settings, logger); len(errs) > 0 {
		return errors.Join(errs...)
	}

	orchestrator, err := renderer.NewOrchestrator(sc, opts, logger)
	if err != nil {
		return err
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	img, stats, err := orchestrator.CalculateImage(ctx, opts.Width, opts.Height)
	if err != nil {
		return err
	}
	if stats.Cancelled {
		logger.Printf("Saving partial image")
	}
	if cfg.overlay {
		drawStats(img, stats)
	}

	filename := outputPath(cfg, sc.Name, time.Now())
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := gg.SavePNG(filename, img); err != nil {
		return fmt.Errorf("saving PNG: %w", err)
	}

	logger.Printf("Render saved as %s", filename)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
