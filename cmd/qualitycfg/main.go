package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/argie33/algo-sub006/internal/config"
)

// qualitycfg validates a config file and prints the effective configuration
// after defaults and environment expansion, so operators can see what the
// daemon will actually run with.
func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "Configuration file path")
		show       = flag.Bool("show", false, "Print the effective configuration")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("configuration OK: %s\n", *configPath)

	if *show {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to render configuration: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(out)
	}
}
