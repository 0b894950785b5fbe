package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chrissnell/cplcurtain/internal/app"
	"github.com/chrissnell/cplcurtain/internal/h5"
	"github.com/chrissnell/cplcurtain/internal/log"
	"github.com/chrissnell/cplcurtain/pkg/config"
)

const version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH

func main() {
	cfgFile := flag.String("config", "config.yaml", "Path to configuration source:\n\t\t\t  YAML: config.yaml\n\t\t\t  SQLite: config.db")
	cfgBackend := flag.String("config-backend", "yaml", "Configuration backend type: 'yaml' for YAML files, 'sqlite' for SQLite databases")
	cplFile := flag.String("file", "", "CPL L2 HDF5 file to load, e.g. CPL_L2_20130819_14956.h5")
	readOnly := flag.Bool("read-only", false, "Open the CPL file read-only, e.g. on archive mounts")
	serve := flag.Bool("serve", false, "Serve the session over the REST API until interrupted")
	export := flag.Bool("export", false, "Export observations and synoptic windows to TimescaleDB")
	debug := flag.Bool("debug", false, "Turn on debugging output")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("cplcurtain %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider, err := loadConfig(*cfgFile, *cfgBackend)
	if err != nil {
		log.Errorf("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	defer provider.Close()

	cfgData, err := provider.LoadConfig()
	if err != nil {
		log.Fatalf("error reading config file. Did you pass the -config flag? Run with -h for help: %v", err)
	}
	if cfgData.Log.File != "" {
		err := log.InitWithFile(*debug, log.FileOptions{
			Path:       cfgData.Log.File,
			MaxSizeMB:  cfgData.Log.MaxSizeMB,
			MaxBackups: cfgData.Log.MaxBackups,
		})
		if err != nil {
			log.Fatalf("Failed to open log file %s: %v", cfgData.Log.File, err)
		}
	}

	// Create and run the application
	application := app.New(provider, h5.Opener(*readOnly), log.GetSugaredLogger())
	err = application.Run(context.Background(), app.RunOptions{
		File:   *cplFile,
		Export: *export,
		Serve:  *serve,
	})
	if err != nil {
		log.Errorf("Application error: %v", err)
		os.Exit(1)
	}
}

func loadConfig(cfgFile, cfgBackend string) (config.ConfigProvider, error) {
	filename, _ := filepath.Abs(cfgFile)

	switch cfgBackend {
	case "yaml":
		return config.NewYAMLProvider(filename), nil
	case "sqlite":
		provider, err := config.NewSQLiteProvider(filename)
		if err != nil {
			return nil, fmt.Errorf("error creating SQLite provider: %w", err)
		}
		if err := provider.InitSchema(); err != nil {
			provider.Close()
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported configuration backend: %s. Use 'yaml' or 'sqlite'", cfgBackend)
	}
}
