package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/draftdesk/internal/config"
)

const header = `# draftdesk configuration example
# Copy this file to config.yaml and customize as needed.
# Fields tagged with an env variable in internal/config can also be set from the environment.

`

func main() {
	backend := flag.String("backend", "", "Storage backend to put in the example (sqlite, redis, s3, memory)")
	flag.Parse()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if *backend != "" {
		cfg.Storage.Backend = *backend
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Default configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	yamlData, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating YAML: %v\n", err)
		os.Exit(1)
	}
	output := header + string(yamlData)

	outputFile := "config.example.yaml"
	if flag.NArg() > 0 {
		outputFile = flag.Arg(0)
	}

	if outputFile == "-" {
		fmt.Print(output)
		return
	}

	if err := os.WriteFile(outputFile, []byte(output), 0644); err != nil {
		fmt.Fprintf(os.Stderr, config.ErrWriteConfigContentFmt+"\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated example config: %s\n", outputFile)
}
