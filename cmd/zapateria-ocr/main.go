// Command zapateria-ocr extracts one document (or inline text) into its
// schema and prints the JSON between result markers on stdout. Logs go to
// stderr.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/thereallexluttor/AaaS-Zapateria/constants"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/app"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/common"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/export"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/pipeline"
	"github.com/thereallexluttor/AaaS-Zapateria/internal/record"
)

const (
	resultStart = "===JSON_RESULT_START==="
	resultEnd   = "===JSON_RESULT_END==="

	// textArg as the positional argument selects --text input.
	textArg = "texto"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	kind   string
	text   string
	lang   string
	output string
	raw    bool
	xlsx   string
	config string
	path   string
}

// run never returns without having printed a result block.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (code int) {
	var opts options
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "panic: %v\n", r)
			emit(stdout, stderr, opts.output, map[string]any{
				"error":       true,
				"nombre":      "Error crítico",
				"descripcion": fmt.Sprintf("Error general en la aplicación: %v", r),
			})
			code = 1
		}
	}()

	if err := parseArgs(args, stderr, &opts); err != nil {
		emit(stdout, stderr, opts.output, failure(constants.KindMaterial, "Error de argumentos", err.Error()))
		return 2
	}
	kind, err := constants.ParseKind(opts.kind)
	if err != nil {
		emit(stdout, stderr, opts.output, failure(constants.KindMaterial, "Error de argumentos", err.Error()))
		return 2
	}

	cfg, err := common.LoadConfigFile(opts.config)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		emit(stdout, stderr, opts.output, failure(kind, "Error de configuración", err.Error()))
		return 1
	}
	logger := common.NewLogger(stderr, cfg.Logging)
	if opts.lang == "" {
		opts.lang = cfg.OCR.Lang
	}

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		emit(stdout, stderr, opts.output, failure(kind, "Error de configuración", err.Error()))
		return 1
	}
	defer a.Close()

	var res pipeline.Result
	switch {
	case opts.path == "" || opts.path == textArg:
		if strings.TrimSpace(opts.text) == "" {
			emit(stdout, stderr, opts.output, failure(kind, "Error de argumentos", "se requiere una ruta de archivo o --text"))
			return 2
		}
		if opts.raw {
			res = a.Processor.RawText(ctx, kind, opts.text)
		} else {
			res = a.Processor.ProcessText(ctx, kind, opts.text)
		}
	default:
		if opts.raw {
			res, err = a.Processor.RawFile(ctx, kind, opts.path, opts.lang)
		} else {
			res, err = a.Processor.ProcessFile(ctx, kind, opts.path, opts.lang)
		}
		if err != nil {
			emit(stdout, stderr, opts.output, failure(kind, "Error de entrada", messageOf(err)))
			return 1
		}
	}

	emit(stdout, stderr, opts.output, res.Output())

	if opts.xlsx != "" && res.Record != nil {
		if err := writeXLSX(logger, opts.xlsx, kind, res.Record, opts.path); err != nil {
			logger.Error("cli.xlsx.failed", "path", opts.xlsx, "error", err)
			return 1
		}
		fmt.Fprintf(stderr, "Hoja de cálculo guardada en: %s\n", opts.xlsx)
	}
	return 0
}

// parseArgs accepts the positional path before, between or after flags.
func parseArgs(args []string, stderr io.Writer, opts *options) error {
	fs := flag.NewFlagSet("zapateria-ocr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.kind, "kind", string(constants.KindMaterial), "document kind: material, producto, herramienta, orden")
	fs.StringVar(&opts.text, "text", "", "text to extract from instead of a file")
	fs.StringVar(&opts.lang, "lang", "", "recognition language (default from config, spa)")
	fs.StringVar(&opts.output, "output", "", "also write the JSON result to this path")
	fs.BoolVar(&opts.raw, "raw", false, "print the model output without recovery or normalization")
	fs.StringVar(&opts.xlsx, "xlsx", "", "also write the result as an XLSX workbook")
	fs.StringVar(&opts.config, "config", "", "YAML configuration file")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
	switch len(positional) {
	case 0:
	case 1:
		opts.path = positional[0]
	default:
		return fmt.Errorf("se esperaba un solo archivo, recibidos %d", len(positional))
	}
	return nil
}

// failure is a schema-complete record flagged as an error. Orders already
// carry the message in their error field.
func failure(kind constants.DocumentKind, name, desc string) map[string]any {
	m := record.Placeholder(kind, name, desc).Map()
	if _, ok := m["error"]; !ok {
		m["error"] = true
	}
	return m
}

func messageOf(err error) string {
	var ae *common.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// emit prints v between the result markers and mirrors it to path. Strings
// (raw model text) are printed verbatim.
func emit(stdout, stderr io.Writer, path string, v any) {
	payload, err := encode(v)
	if err != nil {
		payload, _ = encode(map[string]any{
			"error":       true,
			"nombre":      "Error de formato",
			"descripcion": err.Error(),
		})
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, resultStart)
	fmt.Fprintln(stdout, strings.TrimRight(string(payload), "\n"))
	fmt.Fprintln(stdout, resultEnd)

	if path == "" {
		return
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		fmt.Fprintf(stderr, "No se pudo guardar el resultado en %s: %v\n", path, err)
		return
	}
	fmt.Fprintf(stderr, "Resultado guardado en: %s\n", path)
}

func encode(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeXLSX(logger *slog.Logger, path string, kind constants.DocumentKind, rec record.Record, source string) error {
	svc := export.NewService(logger)
	var (
		b   []byte
		err error
	)
	if order, ok := rec.(record.Order); ok {
		b, err = svc.OrderXLSX(order)
	} else {
		b, err = svc.RecordsXLSX(kind, []export.Row{{Source: source, Record: rec}})
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
