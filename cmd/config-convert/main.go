package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/cplcurtain/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		force      = flag.Bool("force", false, "Overwrite existing SQLite database")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Check if YAML file exists
	if _, err := os.Stat(*yamlFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: YAML file does not exist: %s\n", *yamlFile)
		os.Exit(1)
	}

	// Check if SQLite file already exists
	if _, err := os.Stat(*sqliteFile); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: SQLite file already exists: %s\n", *sqliteFile)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting YAML configuration to SQLite...\n")
	fmt.Printf("  Source: %s\n", *yamlFile)
	fmt.Printf("  Target: %s\n", *sqliteFile)

	configData, err := config.NewYAMLProvider(*yamlFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading YAML configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configData.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration is invalid: %v\n", err)
		os.Exit(1)
	}

	printConfigSummary(configData)

	if *dryRun {
		fmt.Println("DRY RUN complete - no database created")
		return
	}

	// Remove existing SQLite file if force is specified
	if *force {
		if err := os.Remove(*sqliteFile); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error removing existing SQLite file: %v\n", err)
			os.Exit(1)
		}
	}

	if err := writeSQLite(*sqliteFile, configData); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating SQLite database: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Conversion completed successfully!\n")
	fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
}

func writeSQLite(dbPath string, configData *config.ConfigData) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	provider, err := config.NewSQLiteProvider(dbPath)
	if err != nil {
		return err
	}
	defer provider.Close()

	if err := provider.InitSchema(); err != nil {
		return err
	}
	return provider.SaveConfig(configData)
}

func printConfigSummary(configData *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")

	s := configData.Session
	bw, _ := s.BinWidthDuration()
	fmt.Printf("Session: bin width %v, %d catalog groups, %d short names\n", bw, len(s.Catalog), len(s.ShortNames))
	for _, g := range s.Catalog {
		fmt.Printf("  - %s: %d datasets\n", g.Group, len(g.Datasets))
	}

	if configData.Sampler.Endpoint != "" {
		fmt.Printf("Sampler: %s (%d variables)\n", configData.Sampler.Endpoint, len(configData.Sampler.Variables))
	}
	if configData.Optics.Enabled {
		fmt.Printf("Optics: channels %v\n", configData.Optics.Channels)
	}
	if configData.Storage.TimescaleDB != nil {
		fmt.Printf("Storage: TimescaleDB\n")
	}
	if configData.REST != nil {
		fmt.Printf("REST: %s:%d\n", configData.REST.ListenAddr, configData.REST.Port)
	}
	if configData.Log.File != "" {
		fmt.Printf("Note: log settings are not stored in SQLite and will not be converted\n")
	}
	fmt.Println()
}
