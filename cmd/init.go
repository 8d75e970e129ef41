package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trellis-notes/trellis/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize trellis configuration",
	Long: `Initialize trellis configuration and create the data directory.
This command sets up the configuration file and the SQLite database location.`,
	RunE: runInit,
}

var initDataDir string

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "Data directory for the notes database")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Configuration already exists at: %s\n", configPath)
		fmt.Print("Do you want to overwrite it? (y/N): ")

		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Configuration initialization cancelled.")
			return nil
		}
	}

	if initDataDir != "" {
		initDataDir = expandPath(initDataDir)
	}

	cfg, err := config.InitializeConfig(initDataDir)
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	fmt.Println("=== Configuration Summary ===")
	fmt.Printf("Config file:    %s\n", configPath)
	fmt.Printf("Data directory: %s\n", cfg.DataDirectory)
	fmt.Printf("Database path:  %s\n", cfg.GetDatabasePath())
	fmt.Printf("HTTP address:   %s:%d\n", cfg.HTTPHost, cfg.HTTPPort)

	fmt.Println("\nConfiguration initialized successfully!")
	fmt.Println("You can now use 'trellis' commands to manage your notes.")

	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
