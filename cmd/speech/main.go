// Package main is the entry point for the speech synthesis Lambda.
package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/rs/zerolog"

	"github.com/stretchcoach/coach-backend/internal/config"
	"github.com/stretchcoach/coach-backend/internal/httpapi"
	"github.com/stretchcoach/coach-backend/internal/speech"
	"github.com/stretchcoach/coach-backend/internal/warmup"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Str("component", "speech").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load AWS config")
	}
	client := polly.NewFromConfig(awsCfg)

	resp := httpapi.NewResponder(httpapi.CORSConfig{
		AllowOrigin:  cfg.CORSAllowOrigin,
		AllowMethods: cfg.CORSAllowMethods,
		AllowHeaders: cfg.CORSAllowHeaders,
	})
	handler := speech.New(client, speech.NewEngineResolver(client), resp, log, speech.Config{
		DefaultLanguage: cfg.DefaultLanguage,
		DefaultVoice:    cfg.DefaultVoice,
		MaxTextLength:   cfg.MaxTextLength,
	})
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
