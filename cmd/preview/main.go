package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"preview-gen/internal/capture"
	"preview-gen/internal/postprocess"
	"preview-gen/internal/previewstore"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	outDir := pflag.String("out-dir", "previews", "Directory for generated preview images")
	width := pflag.Int("width", 1500, "Browser viewport width in pixels")
	height := pflag.Int("height", 1100, "Browser viewport height in pixels")
	wait := pflag.Duration("wait", 3*time.Second, "Render settle time before the screenshot")
	scale := pflag.Float64("scale", 0.8, "Scale factor applied to both dimensions, in (0, 1]")
	marginX := pflag.Int("margin-x", 50, "Pixels trimmed from the left and right edges")
	marginY := pflag.Int("margin-y", 45, "Pixels trimmed from the top edge")
	fontPath := pflag.String("font", "", "TTF/OTF file for the URL stamp (default: embedded Go Regular)")
	fontSize := pflag.Float64("font-size", 16, "Font size in points")
	fontColor := pflag.String("font-color", "#333333", "URL stamp color as RRGGBB hex")
	textMargin := pflag.Int("text-margin", 10, "Inset of the URL stamp from the top-right corner")
	colors := pflag.Int("colors", 64, "Maximum distinct colors in the output palette (2-256)")
	pflag.Parse()

	pages := pflag.Args()
	if len(pages) == 0 {
		fatal("at least one page url is required")
	}

	stampColor, err := postprocess.ParseHexColor(*fontColor)
	if err != nil {
		fatal("invalid --font-color", "err", err)
	}

	params := postprocess.Params{
		ScaleFactor: *scale,
		MarginX:     *marginX,
		MarginY:     *marginY,
		FontPath:    *fontPath,
		FontSize:    *fontSize,
		FontColor:   stampColor,
		TextMargin:  *textMargin,
		PaletteSize: *colors,
	}
	if err := params.Validate(); err != nil {
		fatal("invalid parameters", "err", err)
	}

	opts := capture.Options{
		Width:  *width,
		Height: *height,
		Wait:   *wait,
	}

	store := previewstore.New(*outDir)

	ctx := context.Background()
	browser := capture.New(ctx)

	failed := 0
	for _, page := range pages {
		if err := run(ctx, browser, store, page, opts, params); err != nil {
			slog.Error("page failed, skipping", "url", page, "err", err)
			failed++
			continue
		}
		slog.Info("preview written", "url", page)
	}

	// Release the browser before deciding the exit status; os.Exit
	// would skip a deferred Close.
	browser.Close()

	if failed > 0 {
		slog.Warn("finished with failures", "failed", failed, "total", len(pages))
		os.Exit(1)
	}
}

func run(ctx context.Context, browser *capture.Capturer, store *previewstore.Store, page string, opts capture.Options, params postprocess.Params) error {
	outPath, err := store.Path(page)
	if err != nil {
		return err
	}

	tmp := filepath.Join(os.TempDir(), "capture-"+uuid.NewString()+".png")
	defer os.Remove(tmp)

	if err := browser.Screenshot(ctx, page, tmp, opts); err != nil {
		return err
	}

	return postprocess.Process(tmp, page, outPath, params)
}

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}
