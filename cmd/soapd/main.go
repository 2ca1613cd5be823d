// soapd demo server - serves a sample SOAP service backed by pkg/soap.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/getsoapd/soapd/pkg/logging"
	"github.com/getsoapd/soapd/pkg/metrics"
	"github.com/getsoapd/soapd/pkg/soap"
	"github.com/getsoapd/soapd/pkg/soapmodel"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// ServerConfig is the soapd.yaml file layout.
type ServerConfig struct {
	Listen   string         `yaml:"listen"`
	Logging  logging.Config `yaml:"logging"`
	Endpoint soap.Options   `yaml:"endpoint"`
}

func defaultConfig() ServerConfig {
	return ServerConfig{
		Listen:   ":8080",
		Endpoint: soap.DefaultOptions("/calculator"),
	}
}

func loadConfig(path string) (ServerConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}

// Calculator is the sample service served by the demo binary.
type Calculator struct{}

// Add returns the sum of a and b.
func (c *Calculator) Add(ctx context.Context, a, b int) (int, error) {
	return a + b, nil
}

// Subtract returns a minus b.
func (c *Calculator) Subtract(ctx context.Context, a, b int) (int, error) {
	return a - b, nil
}

// Divide fails on a zero divisor.
func (c *Calculator) Divide(ctx context.Context, a, b float64) (float64, error) {
	if b == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	return a / b, nil
}

func run(args []string) error {
	configPath := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-config", "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "-version", "--version":
			fmt.Printf("soapd %s (%s)\n", Version, Commit)
			return nil
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging)
	cfg.Endpoint.Logger = logger

	cfg.Endpoint.ModelOptions = append(cfg.Endpoint.ModelOptions,
		soapmodel.WithNamespace("http://getsoapd.dev/calculator"),
		soapmodel.WithOperation("Add", soapmodel.OperationConfig{ParamNames: []string{"a", "b"}}),
		soapmodel.WithOperation("Subtract", soapmodel.OperationConfig{ParamNames: []string{"a", "b"}}),
		soapmodel.WithOperation("Divide", soapmodel.OperationConfig{ParamNames: []string{"a", "b"}}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Default.Handler())

	ep, err := soap.New(&Calculator{}, mux, cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("building endpoint: %w", err)
	}

	logger.Info("soapd listening", "addr", cfg.Listen, "path", cfg.Endpoint.Path, "version", Version)
	return http.ListenAndServe(cfg.Listen, ep)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "soapd:", err)
		os.Exit(1)
	}
}
