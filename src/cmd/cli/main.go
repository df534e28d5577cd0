package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"omniselect-ocr/src/config"
	"omniselect-ocr/src/ocr"
	_ "omniselect-ocr/src/ocr/tesseract"
	"omniselect-ocr/src/runtimeinit"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	filePath   string
	jsonOutput bool
	verbose    bool
	apiKeyPath string
	configPath string
	engine     string
}

type streams struct {
	in       io.Reader
	out, err io.Writer
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args), streams{os.Stdin, os.Stdout, os.Stderr}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string, s streams) error {
	if len(args) == 0 {
		args = []string{"ocr-tool"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts, s)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions, s streams) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ocr-tool",
		Short:         "Run the configured OCR engine on a PNG",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts, s)
		},
	}
	cmd.SetOut(s.out)
	cmd.SetErr(s.err)

	cmd.Flags().StringVar(&opts.filePath, "file", "", "Path to PNG file (use '-' for stdin)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&opts.engine, "engine", "", "OCR engine: tesseract or llm")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runWithOptions(opts cliOptions, s streams) error {
	verbosef := func(format string, args ...any) {
		if opts.verbose {
			fmt.Fprintf(s.err, "[verbose] "+format+"\n", args...)
		}
	}
	verbosef("Starting OCR tool")

	img, err := readImage(opts.filePath, s.in, verbosef)
	if err != nil {
		return err
	}

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			ConfigPath:         opts.configPath,
			APIKeyPathOverride: opts.apiKeyPath,
			Engine:             opts.engine,
		},
		Verbose:       opts.verbose,
		SkipClipboard: true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	verbosef("Engine %s ready, deadline %v", rt.Engine.Name(), rt.Config.OCRDeadline())

	return performOCR(rt.Engine, img, opts.filePath, opts.jsonOutput, rt.Config.OCRDeadline(), s.out, verbosef)
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"file", "json", "verbose", "api-key-path", "config", "engine"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			single := "-" + name
			switch {
			case arg == single:
				normalized[i] = "-" + single
			case strings.HasPrefix(arg, single+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func validatePNG(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
		return fmt.Errorf("input is not a valid PNG file (invalid magic number)")
	}
	return nil
}

func readImage(filePath string, stdin io.Reader, verbosef func(string, ...any)) (image.Image, error) {
	var data []byte
	var err error
	if filePath == "-" {
		verbosef("Reading image from stdin")
		data, err = io.ReadAll(io.LimitReader(stdin, maxFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		verbosef("Reading image from file: %s", filePath)
		data, err = os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
		}
	}
	verbosef("Read %d bytes", len(data))

	if err := validatePNG(data); err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	verbosef("Decoded %dx%d image", img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func performOCR(engine ocr.Engine, img image.Image, sourcePath string, jsonOutput bool, deadline time.Duration, out io.Writer, verbosef func(string, ...any)) error {
	ctx, cancel := context.WithTimeout(context.Background(), deadline)
	defer cancel()

	startTime := time.Now()
	text, err := engine.Recognize(ctx, img)
	elapsed := time.Since(startTime)
	if err != nil {
		verbosef("OCR failed after %v: %v", elapsed, err)
		return fmt.Errorf("OCR failed: %w", err)
	}
	text = strings.TrimSpace(text)
	verbosef("OCR completed in %v, extracted %d characters", elapsed, len(text))

	return outputResult(out, text, sourcePath, engine.Name(), elapsed, jsonOutput)
}

type OCRResult struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Engine    string  `json:"engine"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputResult(out io.Writer, text, sourcePath, engine string, elapsed time.Duration, jsonOutput bool) error {
	if !jsonOutput {
		_, err := fmt.Fprint(out, text)
		return err
	}

	result := OCRResult{
		Text:      text,
		Source:    sourcePath,
		Engine:    engine,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len([]rune(text)),
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
