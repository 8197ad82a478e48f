package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/stretchcoach/coach-backend/internal/httpapi"
)

// neuralOnlyVoices are Polly voices known to reject the standard
// engine. They back the retry heuristic when the error itself is not
// explicit about the engine.
var neuralOnlyVoices = map[string]struct{}{
	"Daniel": {}, "Ruth": {}, "Stephen": {}, "Kevin": {},
	"Kajal": {}, "Ayanda": {}, "Aria": {}, "Ida": {},
}

// Config carries the synthesis defaults and limits.
type Config struct {
	DefaultLanguage string
	DefaultVoice    string
	MaxTextLength   int
}

// Handler synthesizes speech announcements via Polly.
type Handler struct {
	api      PollyAPI
	resolver *EngineResolver
	resp     *httpapi.Responder
	log      zerolog.Logger
	cfg      Config
}

// New creates a speech handler.
func New(api PollyAPI, resolver *EngineResolver, resp *httpapi.Responder, log zerolog.Logger, cfg Config) *Handler {
	return &Handler{api: api, resolver: resolver, resp: resp, log: log, cfg: cfg}
}

// Handle routes one synthesis request.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	switch httpapi.Method(req) {
	case "OPTIONS":
		return h.resp.JSON(200, map[string]string{"status": "ok"}, nil), nil
	case "POST":
		payload, err := httpapi.ParseJSONBody(req)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return h.synthesize(ctx, payload)
	default:
		return events.APIGatewayV2HTTPResponse{}, httpapi.MethodNotAllowed()
	}
}

func (h *Handler) synthesize(ctx context.Context, payload map[string]any) (events.APIGatewayV2HTTPResponse, error) {
	text := strings.TrimSpace(stringField(payload, "text"))
	if text == "" {
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadRequest("Das Feld 'text' darf nicht leer sein.")
	}
	if utf8.RuneCountInString(text) > h.cfg.MaxTextLength {
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadRequest("Text ist zu lang (maximal %d Zeichen).", h.cfg.MaxTextLength)
	}

	language := strings.TrimSpace(stringField(payload, "language"))
	if language == "" {
		language = h.cfg.DefaultLanguage
	}
	voice := strings.TrimSpace(stringField(payload, "voice"))
	if voice == "" {
		voice = h.cfg.DefaultVoice
	}

	engine := chooseEngine(h.resolver.EnginesFor(ctx, voice, language))

	audio, err := h.invoke(ctx, text, language, voice, engine)
	if err != nil && engine == "" && isEngineMismatch(err, voice) {
		h.log.Info().Err(err).Str("voice", voice).Msg("retrying synthesis with neural engine")
		audio, err = h.invoke(ctx, text, language, voice, types.EngineNeural)
	}
	if err != nil {
		h.log.Error().Err(err).Str("voice", voice).Str("language", language).Msg("synthesis failed")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Fehler bei der Sprachsynthese")
	}

	return h.resp.Binary(200, audio, "audio/mpeg", nil), nil
}

// invoke performs a single synthesis call and drains the audio stream.
func (h *Handler) invoke(ctx context.Context, text, language, voice string, engine types.Engine) ([]byte, error) {
	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: types.OutputFormatMp3,
		VoiceId:      types.VoiceId(voice),
		LanguageCode: types.LanguageCode(language),
	}
	if engine != "" {
		input.Engine = engine
	}

	out, err := h.api.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, err
	}
	if out.AudioStream == nil {
		return nil, errors.New("polly returned no audio stream")
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio stream: %w", err)
	}
	return audio, nil
}

// isEngineMismatch reports whether a synthesis rejection looks like the
// voice required a different engine than the service default.
func isEngineMismatch(err error, voice string) bool {
	var notSupported *types.EngineNotSupportedException
	if errors.As(err, &notSupported) {
		return true
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.ErrorCode() {
	case "EngineNotSupportedException", "InvalidParameterValueException", "ValidationException":
		// Engine mismatches surface under generic validation codes;
		// the message or the voice decides.
	default:
		return false
	}

	if strings.Contains(strings.ToLower(apiErr.ErrorMessage()), "neural") {
		return true
	}
	_, neuralOnly := neuralOnlyVoices[voice]
	return neuralOnly
}

func stringField(payload map[string]any, field string) string {
	s, _ := payload[field].(string)
	return s
}
