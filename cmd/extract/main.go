// Command extract runs the extraction pipeline once on a local file and
// writes the resulting spreadsheet to disk.
//
// Usage: go run ./cmd/extract -file nota.pdf -type "Nota Fiscal" [-format csv] [-out path] [-print]
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"docextract/internal/config"
	"docextract/internal/domain"
	"docextract/internal/llm/providers"
	"docextract/internal/logger"
	"docextract/internal/ocr/tesseract"
	"docextract/internal/port"
	"docextract/internal/reader"
	"docextract/internal/service"
	"docextract/internal/spreadsheet"
)

var errUsage = errors.New("usage")

type options struct {
	file   string
	docTyp string
	out    string
	format domain.SpreadsheetFormat
	print  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		slog.Error("extract failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "document to extract (pdf, jpg, jpeg, png)")
	docType := fs.String("type", "", "document type label, e.g. \"Nota Fiscal\"")
	out := fs.String("out", "", "output path (default: <type>_<date>.<format> in the current dir)")
	format := fs.String("format", "xlsx", "spreadsheet format: xlsx or csv")
	printTable := fs.Bool("print", false, "print the extracted table to stdout")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	if *file == "" || strings.TrimSpace(*docType) == "" {
		fs.Usage()
		return nil, fmt.Errorf("%w: -file and -type are required", errUsage)
	}
	f, ok := domain.ParseSpreadsheetFormat(strings.ToLower(*format))
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %q", errUsage, *format)
	}
	return &options{file: *file, docTyp: strings.TrimSpace(*docType), out: *out, format: f, print: *printTable}, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(&cfg.Log, os.Stderr)

	generator, _, err := providers.Build(&cfg.Parser)
	if err != nil {
		return fmt.Errorf("initializing llm providers: %w", err)
	}

	var ocrEngine port.OCREngine
	if cfg.OCR.Enabled {
		engine, err := tesseract.New(cfg.OCR.Language)
		if err != nil {
			return fmt.Errorf("initializing tesseract: %w", err)
		}
		defer engine.Close()
		ocrEngine = engine
	}

	tmpDir, err := os.MkdirTemp("", "docextract-")
	if err != nil {
		return fmt.Errorf("creating work dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	uploadCfg := cfg.Upload
	uploadCfg.Dir = tmpDir

	docReader := reader.New(ocrEngine, reader.WithRasterizer(cfg.OCR.Pdftoppm, cfg.OCR.DPI, cfg.OCR.MaxPages))
	svc := service.NewExtractionService(docReader, generator, nil, &uploadCfg, &cfg.S3, cfg.Server.RequestTimeout)

	in, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", opts.file, err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", opts.file, err)
	}

	result, err := svc.Extract(ctx, service.ExtractInput{
		File:         in,
		Filename:     filepath.Base(opts.file),
		Size:         info.Size(),
		DocumentType: opts.docTyp,
		Format:       opts.format,
	})
	if err != nil {
		return err
	}

	outPath := opts.out
	if outPath == "" {
		outPath = spreadsheet.BuildFilename(opts.docTyp, opts.format, time.Now())
	}
	if err := os.WriteFile(outPath, result.Spreadsheet.Data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	slog.Info("spreadsheet written", "path", outPath, "records", len(result.Records),
		"provider", result.Provider, "model", result.Model, "truncated", result.Truncated)

	if opts.print {
		return printArtifact(stdout, result.Spreadsheet)
	}
	return nil
}

// printArtifact writes the spreadsheet as an aligned text table.
func printArtifact(w io.Writer, art *domain.SpreadsheetArtifact) error {
	columns := art.Columns
	var rows [][]string
	if art.Format == domain.SpreadsheetFormatXLSX {
		table, err := spreadsheet.ReadXLSX(bytes.NewReader(art.Data))
		if err != nil {
			return err
		}
		columns, rows = table.Columns, table.Rows
	} else {
		for _, r := range art.Rows {
			row := make([]string, len(columns))
			for i, c := range columns {
				row[i] = r[c]
			}
			rows = append(rows, row)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
