package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrNoPagesRendered is returned when the rasterizer produced no page images.
var ErrNoPagesRendered = errors.New("no pages rendered")

// ocrPDF renders each page to PNG with pdftoppm and runs the OCR engine on
// the images. Pages that fail OCR are skipped; the call fails only when
// every page fails.
func (r *Reader) ocrPDF(ctx context.Context, path string) (string, int, error) {
	tmpDir, err := os.MkdirTemp("", "docextract-pages-*")
	if err != nil {
		return "", 0, fmt.Errorf("creating page dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			slog.WarnContext(ctx, "reader.ocrPDF: failed to remove page dir", "dir", tmpDir, "error", err)
		}
	}()

	// pdftoppm -r <dpi> -png <in.pdf> <dir>/page writes page-1.png, page-2.png, ...
	prefix := filepath.Join(tmpDir, "page")
	_, stderr, err := r.runner.Run(ctx, r.pdftoppm, "-r", strconv.Itoa(r.dpi), "-png", path, prefix)
	if err != nil {
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return "", 0, fmt.Errorf("rendering pages: %w: %s", err, msg)
		}
		return "", 0, fmt.Errorf("rendering pages: %w", err)
	}

	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", 0, fmt.Errorf("listing pages: %w", err)
	}
	sortPages(images)
	if r.maxPages > 0 && len(images) > r.maxPages {
		slog.WarnContext(ctx, "reader.ocrPDF: page limit reached", "pages", len(images), "max_pages", r.maxPages)
		images = images[:r.maxPages]
	}
	if len(images) == 0 {
		return "", 0, ErrNoPagesRendered
	}

	var (
		b        strings.Builder
		failures []error
	)
	for _, img := range images {
		data, err := os.ReadFile(img)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", filepath.Base(img), err))
			continue
		}
		text, err := r.ocr.RecognizeImage(data)
		if err != nil {
			slog.WarnContext(ctx, "reader.ocrPDF: page ocr failed", "page", filepath.Base(img), "error", err)
			failures = append(failures, fmt.Errorf("%s: %w", filepath.Base(img), err))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	if len(failures) == len(images) {
		return "", len(images), fmt.Errorf("ocr failed on every page: %w", errors.Join(failures...))
	}
	return b.String(), len(images), nil
}

// sortPages orders page images by page number.
func sortPages(images []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		n, _ := strconv.Atoi(base[strings.LastIndex(base, "-")+1:])
		return n
	}
	sort.SliceStable(images, func(i, j int) bool { return num(images[i]) < num(images[j]) })
}
