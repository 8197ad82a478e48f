// Package progress implements the progress Lambda: append-only logging
// of completed sessions, paginated listing and deletion by key.
package progress

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/stretchcoach/coach-backend/internal/httpapi"
	"github.com/stretchcoach/coach-backend/internal/model"
	"github.com/stretchcoach/coach-backend/internal/store"
)

const (
	defaultListLimit = 250
	maxListLimit     = 500
)

// Store is the persistence contract the handler needs.
type Store interface {
	Put(ctx context.Context, entry model.ProgressEntry) error
	List(ctx context.Context, limit int) ([]model.ProgressEntry, error)
	Delete(ctx context.Context, clientID, completedAt string) error
}

// Handler dispatches progress requests by method.
type Handler struct {
	store Store
	resp  *httpapi.Responder
	log   zerolog.Logger

	// now is the clock stamping completed_at; replaced in tests.
	now func() time.Time
}

// New creates a progress handler.
func New(progressStore Store, resp *httpapi.Responder, log zerolog.Logger) *Handler {
	return &Handler{store: progressStore, resp: resp, log: log, now: time.Now}
}

// Handle routes one progress request.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	switch httpapi.Method(req) {
	case "OPTIONS":
		return h.resp.JSON(200, map[string]string{"status": "ok"}, nil), nil
	case "POST":
		payload, err := httpapi.ParseJSONBody(req)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return h.create(ctx, payload)
	case "GET":
		return h.list(ctx, req.QueryStringParameters)
	case "DELETE":
		return h.delete(ctx, req.QueryStringParameters)
	default:
		return events.APIGatewayV2HTTPResponse{}, httpapi.MethodNotAllowed()
	}
}

// buildEntry validates a submission into a storable entry. completed_at
// is stamped by the caller; validation has no side effects.
func buildEntry(payload map[string]any) (model.ProgressEntry, error) {
	var entry model.ProgressEntry

	clientID, err := httpapi.ExpectString(payload["clientId"], "clientId")
	if err != nil {
		return entry, err
	}
	exerciseID, err := httpapi.ExpectString(payload["exerciseId"], "exerciseId")
	if err != nil {
		return entry, err
	}
	totalSets, err := httpapi.ExpectPositiveInt(payload["totalSets"], "totalSets")
	if err != nil {
		return entry, err
	}
	setsCompleted, err := httpapi.ExpectPositiveInt(payload["setsCompleted"], "setsCompleted")
	if err != nil {
		return entry, err
	}
	if setsCompleted < totalSets {
		return entry, httpapi.BadRequest("Die Übung wurde nicht vollständig abgeschlossen")
	}

	entry = model.ProgressEntry{
		ClientID:      clientID,
		ExerciseID:    exerciseID,
		TotalSets:     totalSets,
		SetsCompleted: setsCompleted,
	}

	name, err := httpapi.OptionalString(payload["exerciseName"], "exerciseName")
	if err != nil {
		return model.ProgressEntry{}, err
	}
	if name != nil {
		entry.ExerciseName = *name
	}

	if entry.DurationMs, err = httpapi.OptionalInt(payload["durationMs"], "durationMs", false); err != nil {
		return model.ProgressEntry{}, err
	}
	if entry.RepTimeSec, err = httpapi.OptionalInt(payload["repTime"], "repTime", true); err != nil {
		return model.ProgressEntry{}, err
	}
	if entry.RestTimeSec, err = httpapi.OptionalInt(payload["restTime"], "restTime", false); err != nil {
		return model.ProgressEntry{}, err
	}
	if entry.PrepTimeSec, err = httpapi.OptionalInt(payload["prepTime"], "prepTime", false); err != nil {
		return model.ProgressEntry{}, err
	}

	if entry.StartedAt, err = httpapi.ParseISOTimestamp(payload["startedAt"], "startedAt"); err != nil {
		return model.ProgressEntry{}, err
	}
	if entry.FinishedAt, err = httpapi.ParseISOTimestamp(payload["finishedAt"], "finishedAt"); err != nil {
		return model.ProgressEntry{}, err
	}

	return entry, nil
}

func (h *Handler) create(ctx context.Context, payload map[string]any) (events.APIGatewayV2HTTPResponse, error) {
	entry, err := buildEntry(payload)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}

	entry.CompletedAt = h.now().UTC().Truncate(time.Microsecond).Format(time.RFC3339Nano)

	if err := h.store.Put(ctx, entry); err != nil {
		h.log.Error().Err(err).Msg("failed to store progress entry")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Übungsfortschritt konnte nicht gespeichert werden")
	}

	return h.resp.JSON(201, map[string]string{"status": "stored", "completedAt": entry.CompletedAt}, nil), nil
}

// parseLimit reads the limit query parameter: default 250, hard cap
// 500, anything that is not a positive integer is rejected.
func parseLimit(params map[string]string) (int, error) {
	raw, ok := params["limit"]
	if !ok || raw == "" {
		return defaultListLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, httpapi.BadRequest("'limit' muss eine positive Ganzzahl sein")
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit, nil
}

func (h *Handler) list(ctx context.Context, params map[string]string) (events.APIGatewayV2HTTPResponse, error) {
	limit, err := parseLimit(params)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}

	entries, err := h.store.List(ctx, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list progress entries")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Übungsfortschritt konnte nicht geladen werden")
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CompletedAt > entries[j].CompletedAt
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return h.resp.JSON(200, map[string]any{"items": entries, "count": len(entries)}, nil), nil
}

func (h *Handler) delete(ctx context.Context, params map[string]string) (events.APIGatewayV2HTTPResponse, error) {
	clientID, err := httpapi.ExpectString(params["clientId"], "clientId")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}
	completedAt, err := httpapi.ExpectString(params["completedAt"], "completedAt")
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}

	if err := h.store.Delete(ctx, clientID, completedAt); err != nil {
		if err == store.ErrNotFound {
			return events.APIGatewayV2HTTPResponse{}, httpapi.NotFound("Eintrag wurde nicht gefunden")
		}
		h.log.Error().Err(err).Msg("failed to delete progress entry")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Eintrag konnte nicht gelöscht werden")
	}

	return h.resp.JSON(200, map[string]string{"status": "deleted"}, nil), nil
}
