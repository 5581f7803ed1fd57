// cmd/galleryctl runs gallery operations against a local gallery root
// without the HTTP server.
//
// Usage:
//
//	galleryctl process photo.jpg [more.png ...]
//	galleryctl regenerate 1700000000000-photo.jpg
//	galleryctl delete 1700000000000-photo.jpg
//	galleryctl status 1700000000000-photo.jpg
//	galleryctl list
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tendant/simple-gallery/internal/app"
	"github.com/tendant/simple-gallery/internal/config"
	"github.com/tendant/simple-gallery/internal/gallery"
	"github.com/tendant/simple-gallery/internal/upload"
)

var errUsage = errors.New("usage: galleryctl [-root dir] [-v] process|regenerate|delete|status|list [args]")

func main() {
	root := flag.String("root", "", "Gallery root (overrides GALLERY_ROOT)")
	verbose := flag.Bool("v", false, "Log at debug level to stderr")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	if *root != "" {
		cfg.GalleryRoot = *root
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build gallery:", err)
		os.Exit(1)
	}

	err = run(ctx, a.Manager, cfg.MaxUploadBytes, flag.Args(), os.Stdout)
	a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, m *gallery.Manager, maxBytes int64, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	if cmd == "list" {
		names, err := m.Resolver().ListOriginals()
		if err != nil {
			return err
		}
		return writeJSON(out, names)
	}
	if len(rest) == 0 {
		return errUsage
	}

	switch cmd {
	case "process":
		results := make([]*gallery.ProcessedImage, 0, len(rest))
		for _, path := range rest {
			src, err := upload.ReadFile(path, maxBytes)
			if err != nil {
				return err
			}
			res, err := m.ProcessImage(ctx, src.Data, src.Filename)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results = append(results, res)
		}
		return writeJSON(out, results)
	case "regenerate":
		filename, err := gallery.ValidateFilename(rest[0])
		if err != nil {
			return err
		}
		statuses, err := m.GenerateThumbnails(ctx, filename)
		if err != nil {
			return err
		}
		return writeJSON(out, statuses)
	case "delete":
		filename, err := gallery.ValidateFilename(rest[0])
		if err != nil {
			return err
		}
		res, err := m.DeleteImageFiles(ctx, filename)
		if err != nil {
			return err
		}
		return writeJSON(out, res)
	case "status":
		filename, err := gallery.ValidateFilename(rest[0])
		if err != nil {
			return err
		}
		st, err := m.Status(filename)
		if err != nil {
			return err
		}
		return writeJSON(out, st)
	}
	return errUsage
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errUsage), errors.Is(err, gallery.ErrInvalidFilename):
		return 2
	case errors.Is(err, gallery.ErrNotFound):
		return 3
	}
	return 1
}
