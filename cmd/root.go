package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"retailpipe/internal/config"
	"retailpipe/internal/db"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "retailpipe",
		Short: "Synthetic retail data pipeline",
		Long: "RetailPipe - generates synthetic retail datasets and runs them through a\n" +
			"staging, quality check, production and warehouse loading pipeline on Postgres",
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default config/config.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("config")
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("RETAILPIPE")
	viper.AutomaticEnv()

	// Config file not found is okay, defaults apply
	_ = viper.ReadInConfig()
}

// loadConfig resolves and validates the pipeline configuration
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := viper.ConfigFileUsed(); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stageLogger builds the logger the stage commands share
func stageLogger(cfg *config.Config, stage string) *logrus.Entry {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.Pipeline.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log.WithField("stage", stage)
}

// connectService opens the Postgres connection used by the database stages
func connectService(cfg *config.Config) (*db.Service, error) {
	service := db.NewService(db.FromAppConfig(cfg.Database))
	if err := service.Connect(); err != nil {
		return nil, err
	}
	return service, nil
}
