package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/jun/coursecast/internal/app"
	"github.com/jun/coursecast/internal/config"
	"github.com/jun/coursecast/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Setup(cfg.LogLevel, cfg.DevMode)

	application, err := app.NewApp(context.Background(), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	lambda.Start(application.HandleRequest)
}
