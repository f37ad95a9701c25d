package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/logger"
)

// setup builds the logger and reads the config for a command.
func setup(command string) (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the labconnect",
		zap.String("command", command),
		zap.String("version", version),
	)

	// credentials are part of the config, so only the non-secret parts are printed
	pretty, _ := json.MarshalIndent(struct {
		Backend  string
		Table    string
		Provider string
		Server   any
	}{config.Labs.Backend, config.Labs.Table, config.AI.Provider, config.Server}, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}
