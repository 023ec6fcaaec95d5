// Package main renders the OpenAPI document for the hapd admin API from the
// shared route definitions and stub handlers, so no server state is needed.
//
// Usage:
//
//	go run ./cmd/hapd-openapi > openapi.json
//	go run ./cmd/hapd-openapi --yaml --output openapi.yaml
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/hapd/internal/http/routes"
)

// version is set via ldflags at build time.
var version = "dev"

// render builds the admin API document as JSON or YAML.
func render(baseURL string, asYAML bool) ([]byte, error) {
	api := humachi.New(chi.NewRouter(), routes.NewHumaConfig(version, baseURL))
	routes.Register(api, routes.StubHandlers())

	doc := api.OpenAPI()
	if asYAML {
		return doc.YAML()
	}
	return json.MarshalIndent(doc, "", "  ")
}

func main() {
	outputFile := pflag.StringP("output", "o", "", "Output file path (default: stdout)")
	outputYAML := pflag.Bool("yaml", false, "Output as YAML instead of JSON")
	baseURL := pflag.String("base-url", "", "Base URL for the API server")
	showVersion := pflag.Bool("version", false, "Print version and exit")
	pflag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	data, err := render(*baseURL, *outputYAML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshaling OpenAPI document: %v\n", err)
		os.Exit(1)
	}

	if *outputFile == "" {
		fmt.Print(string(data))
		return
	}
	if err := os.WriteFile(*outputFile, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing to file: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "OpenAPI document written to %s\n", *outputFile)
}
