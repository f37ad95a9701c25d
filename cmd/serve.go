package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/matching"
	"github.com/spigell/labconnect/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the LabConnect page",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", "", "address to listen on (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, config := setup("serve")

	source, closeSource, err := newLabsSource(ctx, config.Labs, logger)
	if err != nil {
		logger.Fatal("creating labs source", zap.Error(err))
	}
	defer closeSource()

	assistant, err := newAssistant(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai assistant", zap.Error(err))
	}

	server, err := web.New(config.Server, matching.New(assistant, source, logger), source, logger)
	if err != nil {
		logger.Fatal("creating web server", zap.Error(err))
	}

	if err := server.Run(ctx); err != nil {
		logger.Error("serving", zap.Error(err))
	}
}
