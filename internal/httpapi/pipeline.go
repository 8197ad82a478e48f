package httpapi

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
)

// HandlerFunc is the signature of a domain handler.
type HandlerFunc func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

// WithErrorHandling is the outermost pipeline stage. It maps *Error
// values to their response envelopes, turns anything else (including a
// panic) into a generic 500, and guarantees the response always carries
// the CORS headers. Expected client errors log at info, everything else
// with full context at error level.
func WithErrorHandling(log zerolog.Logger, resp *Responder, next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (out events.APIGatewayV2HTTPResponse, retErr error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("panic in handler")
				out = resp.JSON(500, map[string]string{"error": "Interner Serverfehler"}, nil)
				retErr = nil
			}
		}()

		res, err := next(ctx, req)
		if err == nil {
			return res, nil
		}

		var httpErr *Error
		if errors.As(err, &httpErr) {
			if httpErr.Status >= 500 {
				log.Error().Int("status", httpErr.Status).Str("message", httpErr.Message).Msg("handler failed")
			} else {
				log.Info().Int("status", httpErr.Status).Str("message", httpErr.Message).Msg("request rejected")
			}
			return resp.Err(httpErr), nil
		}

		log.Error().Err(err).Msg("unhandled error in handler")
		return resp.JSON(500, map[string]string{"error": "Interner Serverfehler"}, nil), nil
	}
}
