package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-typedform/pkg/multipart"
	"github.com/goliatone/go-typedform/pkg/openapi"
)

func main() {
	format := flag.String("format", "json", "document format: json or yaml")
	output := flag.String("output", "", "output file (stdout if empty)")
	serve := flag.String("serve", "", "listen address; serves the demo API and /openapi.json instead of printing")
	validate := flag.String("validate", "", "validate an existing OpenAPI document and exit")
	maxRequest := flag.String("max-request", "2Mi", "request body limit (quantity, or \"unlimited\")")
	fieldLimit := flag.String("field-limit", "1Mi", "default per-field limit (quantity, or \"unlimited\")")
	strict := flag.Bool("strict", false, "reject unknown and duplicate fields")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()

	if *validate != "" {
		if err := validateFile(ctx, *validate); err != nil {
			logger.WithError(err).Fatal("Invalid OpenAPI document")
		}
		fmt.Printf("%s is valid\n", *validate)
		return
	}

	opts, err := limitOptions(*maxRequest, *fieldLimit, *strict)
	if err != nil {
		logger.WithError(err).Fatal("Invalid limits")
	}

	e, api := newServer(logger, opts...)

	if *serve != "" {
		handler := cors.New(cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}).Handler(e)
		sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		err := run(sigCtx, *serve, handler, logger)
		stop()
		if err != nil {
			logger.WithError(err).Fatal("Server stopped")
		}
		return
	}

	doc, err := api.Document(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build document")
	}
	payload, err := render(doc, *format)
	if err != nil {
		logger.WithError(err).Fatal("Failed to render document")
	}

	if *output != "" {
		if err := os.WriteFile(*output, payload, 0o644); err != nil {
			logger.WithError(err).Fatal("Failed to write output")
		}
		fmt.Printf("Document written to %s\n", *output)
	} else {
		fmt.Println(string(payload))
	}
}

func limitOptions(maxRequest, fieldLimit string, strict bool) ([]multipart.Option, error) {
	maxBytes, err := multipart.ParseLimit(maxRequest)
	if err != nil {
		return nil, fmt.Errorf("max-request: %w", err)
	}
	perField, err := multipart.ParseLimit(fieldLimit)
	if err != nil {
		return nil, fmt.Errorf("field-limit: %w", err)
	}
	return []multipart.Option{
		multipart.WithMaxRequestBytes(maxBytes),
		multipart.WithDefaultFieldLimit(perField),
		multipart.WithStrict(strict),
	}, nil
}

func render(doc *openapi3.T, format string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return openapi.MarshalJSON(doc)
	case "yaml", "yml":
		return openapi.MarshalYAML(doc)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func validateFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = openapi.Validate(ctx, raw)
	return err
}

// run serves handler on addr until ctx is done, then shuts down gracefully.
func run(ctx context.Context, addr string, handler http.Handler, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("Serving demo API")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
