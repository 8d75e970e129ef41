package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/trellis-notes/trellis/internal/config"
	"github.com/trellis-notes/trellis/internal/database"
	"github.com/trellis-notes/trellis/internal/logger"
	"github.com/trellis-notes/trellis/internal/services"
)

var (
	appConfig *config.Config
	app       *services.Services
	debugFlag bool
	Version   = "dev" // Version is set from main.go
)

var rootCmd = &cobra.Command{
	Use:     "trellis",
	Short:   "A CLI tool for hierarchical notes with attribute search",
	Version: Version,
	Long: `trellis is a command-line interface for managing a tree of notes with
labels and relations, searchable through a structured query language.

First time users should run 'trellis init' to set up the configuration.`,
}

func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initApp)
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func initApp() {
	// Skip initialization for the init command
	if len(os.Args) > 1 && os.Args[1] == "init" {
		return
	}

	var err error
	appConfig, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		fmt.Fprintf(os.Stderr, "Please run 'trellis init' to set up the configuration.\n")
		os.Exit(1)
	}

	if debugFlag || appConfig.Debug {
		logger.SetDebugMode(true)
		logger.Debug("Configuration loaded from: %s", func() string {
			path, _ := config.GetConfigPath()
			return path
		}())
		logger.Debug("Data directory: %s", appConfig.DataDirectory)
		logger.Debug("Database path: %s", appConfig.GetDatabasePath())
		logger.Debug("Read-only: %v", appConfig.ReadOnly)
	}

	db, err := database.New(appConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		os.Exit(1)
	}

	app, err = services.NewServices(appConfig, db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading entity graph: %v\n", err)
		os.Exit(1)
	}
}
