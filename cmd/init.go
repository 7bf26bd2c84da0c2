package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"retailpipe/internal/config"
	"retailpipe/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write the default pipeline configuration to config/config.yaml so it
can be edited before the first run. Refuses to overwrite an existing file.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.GetConfigFile()
	if cfgFile != "" {
		path = cfgFile
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	// Loading a nonexistent file yields the defaults
	cfg, err := config.LoadFile("")
	if err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		ui.ShowError(err)
		return err
	}

	ui.ShowSuccess(fmt.Sprintf("Default configuration written to %s", path))
	ui.ShowInfo("Set DB_HOST, DB_PORT, DB_NAME, DB_USER and DB_PASSWORD in the environment or a .env file")
	return nil
}
