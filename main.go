package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/brandpulse/brandpulse/internal/cli"
)

func main() {
	// API keys come from the environment; a local .env is a convenience,
	// not a requirement.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
