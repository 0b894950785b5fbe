package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"

	"github.com/chrissnell/cplcurtain/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite configuration file")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("Configuration Comparison Test")
	fmt.Println("===========================")

	fmt.Printf("Loading YAML configuration: %s\n", *yamlFile)
	yamlConfig, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading SQLite configuration: %s\n", *sqliteFile)
	sqliteProvider, err := config.NewSQLiteProvider(*sqliteFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite provider: %v\n", err)
		os.Exit(1)
	}
	defer sqliteProvider.Close()

	sqliteConfig, err := sqliteProvider.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading SQLite config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nComparison Results:")
	fmt.Println("==================")

	sections := []struct {
		name         string
		yaml, sqlite any
	}{
		{"session", yamlConfig.Session, sqliteConfig.Session},
		{"sampler", yamlConfig.Sampler, sqliteConfig.Sampler},
		{"optics", yamlConfig.Optics, sqliteConfig.Optics},
		{"curtain", yamlConfig.Curtain, sqliteConfig.Curtain},
		{"storage", yamlConfig.Storage, sqliteConfig.Storage},
		{"rest", yamlConfig.REST, sqliteConfig.REST},
	}

	failed := false
	for _, s := range sections {
		if reflect.DeepEqual(s.yaml, s.sqlite) {
			fmt.Printf("✓ %s matches\n", s.name)
			continue
		}
		failed = true
		fmt.Printf("✗ %s differs\n", s.name)
		fmt.Printf("    YAML:   %+v\n", s.yaml)
		fmt.Printf("    SQLite: %+v\n", s.sqlite)
	}

	for name, cfg := range map[string]*config.ConfigData{"YAML": yamlConfig, "SQLite": sqliteConfig} {
		if err := cfg.Validate(); err != nil {
			failed = true
			fmt.Printf("✗ %s configuration is invalid: %v\n", name, err)
		}
	}

	fmt.Println("\nTest completed!")
	if failed {
		os.Exit(1)
	}
}
