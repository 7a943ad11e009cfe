// Command lambda runs the web service behind an AWS Lambda Function URL with
// response streaming enabled.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"thirdcoast.systems/tubeaudio/cmd/web/internal/web"
	"thirdcoast.systems/tubeaudio/internal/application"
	"thirdcoast.systems/tubeaudio/internal/config"
	"thirdcoast.systems/tubeaudio/internal/lambdaurl"
)

func main() {
	ctx := context.Background()

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	application.ConfigureLogging(os.Stderr, *conf)

	backend, err := application.NewBackend(ctx, *conf)
	if err != nil {
		slog.Error("failed to create audio backend", "error", err)
		os.Exit(1)
	}

	e, err := web.NewWebserver(ctx, conf, backend)
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting Lambda handler", "backend", backend.Name())
	lambda.Start(lambdaurl.Wrap(e))
}
