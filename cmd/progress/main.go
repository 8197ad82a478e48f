// Package main is the entry point for the progress log Lambda.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"

	"github.com/stretchcoach/coach-backend/internal/config"
	"github.com/stretchcoach/coach-backend/internal/httpapi"
	"github.com/stretchcoach/coach-backend/internal/progress"
	"github.com/stretchcoach/coach-backend/internal/store"
	"github.com/stretchcoach/coach-backend/internal/warmup"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "progress").Logger()

	cfg, err := config.ForProgress()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	client, err := store.NewClient(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create DynamoDB client")
	}

	resp := httpapi.NewResponder(httpapi.CORSConfig{
		AllowOrigin:  cfg.CORSAllowOrigin,
		AllowMethods: cfg.CORSAllowMethods,
		AllowHeaders: cfg.CORSAllowHeaders,
	})
	handler := progress.New(store.NewProgressStore(client, cfg.ProgressTableName), resp, log)
	pipeline := httpapi.WithErrorHandling(log, resp, handler.Handle)
	warm := warmup.NewHandler(log, os.Getenv("AWS_LAMBDA_FUNCTION_NAME"), warmup.DefaultInvoker)

	lambda.Start(func(ctx context.Context, event json.RawMessage) (any, error) {
		if w, ok := warmup.IsWarmupEvent(event); ok {
			return warm.Handle(ctx, w)
		}

		var req events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(event, &req); err != nil {
			return nil, err
		}
		return pipeline(ctx, req)
	})
}
