// Command sample demonstrates the github.com/bjaus/gate dispatcher with a
// small user API covering schemas, guards, hooks and observability.
//
// Run:
//
//	go run ./cmd/sample serve
//
// Generate the OpenAPI spec:
//
//	go run ./cmd/sample spec                 # JSON to stdout
//	go run ./cmd/sample spec --yaml -o api.yaml
//
// Then explore:
//
//	GET    http://localhost:8080/openapi.json
//	GET    http://localhost:8080/docs
//	GET    http://localhost:8080/metrics
//	GET    http://localhost:8080/v1/health
//	GET    http://localhost:8080/v1/users?role=admin&limit=10
//	POST   http://localhost:8080/v1/users
//	GET    http://localhost:8080/v1/users/:id
//	PUT    http://localhost:8080/v1/users/:id
//	DELETE http://localhost:8080/v1/users/:id
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "sample",
	Short: "Sample user API built on gate",
	Long: `Sample is a small user API built on the gate dispatcher.

Configuration is read from SAMPLE_* environment variables, optionally
loaded from a .env file first.

  sample serve   # Start the HTTP server
  sample spec    # Print the OpenAPI document`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}
