// Package exercises implements the catalog Lambda: CRUD over the
// persisted exercise definitions.
package exercises

import (
	"context"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"

	"github.com/stretchcoach/coach-backend/internal/httpapi"
	"github.com/stretchcoach/coach-backend/internal/model"
	"github.com/stretchcoach/coach-backend/internal/store"
)

// CatalogStore is the persistence contract the handler needs.
type CatalogStore interface {
	List(ctx context.Context) ([]model.Exercise, error)
	Get(ctx context.Context, id string) (*model.Exercise, error)
	Create(ctx context.Context, exercise model.Exercise) error
	Put(ctx context.Context, exercise model.Exercise) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Handler dispatches catalog requests by method and path id.
type Handler struct {
	store CatalogStore
	resp  *httpapi.Responder
	log   zerolog.Logger
}

// New creates a catalog handler.
func New(catalog CatalogStore, resp *httpapi.Responder, log zerolog.Logger) *Handler {
	return &Handler{store: catalog, resp: resp, log: log}
}

// Handle routes one catalog request.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := httpapi.Method(req)
	exerciseID := req.PathParameters["exercise_id"]

	switch {
	case method == "OPTIONS":
		return h.resp.JSON(200, map[string]string{"status": "ok"}, nil), nil
	case method == "GET" && exerciseID != "":
		return h.get(ctx, exerciseID)
	case method == "GET":
		return h.list(ctx)
	case method == "POST":
		payload, err := httpapi.ParseJSONBody(req)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		return h.create(ctx, payload)
	case method == "PUT" && exerciseID != "":
		payload, err := httpapi.ParseJSONBody(req)
		if err != nil {
			return events.APIGatewayV2HTTPResponse{}, err
		}
		if len(payload) == 0 {
			return events.APIGatewayV2HTTPResponse{}, httpapi.BadRequest("Request-Body fehlt")
		}
		return h.update(ctx, exerciseID, payload)
	case method == "DELETE" && exerciseID != "":
		return h.delete(ctx, exerciseID)
	default:
		return events.APIGatewayV2HTTPResponse{}, httpapi.MethodNotAllowed()
	}
}

var (
	optionalStringFields = []string{"mindfulness", "break_bell"}
	optionalIntFields    = []string{"prep_time", "duration", "rep_time", "rest_time"}
)

// buildExercise validates a request payload into a storable exercise.
// No side effects happen before this returns.
func buildExercise(payload map[string]any) (model.Exercise, error) {
	var exercise model.Exercise

	id, err := httpapi.ExpectString(payload["id"], "id")
	if err != nil {
		return exercise, err
	}
	if model.IsReservedID(id) {
		return exercise, httpapi.BadRequest("Test-Übungen können nicht in der Datenbank gespeichert werden")
	}

	name, err := httpapi.ExpectString(payload["name"], "name")
	if err != nil {
		return exercise, err
	}
	instruction, err := httpapi.ExpectString(payload["instruction"], "instruction")
	if err != nil {
		return exercise, err
	}

	sets, err := httpapi.OptionalInt(payload["sets"], "sets", true)
	if err != nil {
		return exercise, err
	}
	if sets == nil {
		return exercise, httpapi.BadRequest("'sets' muss angegeben werden")
	}

	exercise = model.Exercise{
		ExerciseID:  id,
		ID:          id,
		Name:        name,
		Instruction: instruction,
		Sets:        *sets,
	}

	for _, field := range optionalStringFields {
		value, err := httpapi.OptionalString(payload[field], field)
		if err != nil {
			return model.Exercise{}, err
		}
		if value == nil {
			continue
		}
		switch field {
		case "mindfulness":
			exercise.Mindfulness = *value
		case "break_bell":
			exercise.BreakBell = *value
		}
	}

	for _, field := range optionalIntFields {
		value, err := httpapi.OptionalInt(payload[field], field, false)
		if err != nil {
			return model.Exercise{}, err
		}
		if value == nil {
			continue
		}
		switch field {
		case "prep_time":
			exercise.PrepTime = value
		case "duration":
			exercise.Duration = value
		case "rep_time":
			exercise.RepTime = value
		case "rest_time":
			exercise.RestTime = value
		}
	}

	return exercise, nil
}

func (h *Handler) list(ctx context.Context) (events.APIGatewayV2HTTPResponse, error) {
	items, err := h.store.List(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list exercises")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Übungen konnten nicht geladen werden")
	}

	visible := make([]model.Exercise, 0, len(items))
	for _, item := range items {
		if item.ID == "" || model.IsReservedID(item.ID) {
			continue
		}
		visible = append(visible, item)
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return strings.ToLower(visible[i].Name) < strings.ToLower(visible[j].Name)
	})

	return h.resp.JSON(200, map[string]any{"items": visible, "count": len(visible)}, nil), nil
}

func (h *Handler) get(ctx context.Context, id string) (events.APIGatewayV2HTTPResponse, error) {
	exercise, err := h.store.Get(ctx, id)
	if err == store.ErrNotFound {
		return events.APIGatewayV2HTTPResponse{}, httpapi.NotFound("Übung wurde nicht gefunden")
	}
	if err != nil {
		h.log.Error().Err(err).Str("exercise_id", id).Msg("failed to load exercise")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Übung konnte nicht geladen werden")
	}
	if model.IsReservedID(exercise.ID) {
		return events.APIGatewayV2HTTPResponse{}, httpapi.NotFound("Übung wurde nicht gefunden")
	}

	return h.resp.JSON(200, map[string]any{"item": exercise}, nil), nil
}

func (h *Handler) create(ctx context.Context, payload map[string]any) (events.APIGatewayV2HTTPResponse, error) {
	exercise, err := buildExercise(payload)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}

	if err := h.store.Create(ctx, exercise); err != nil {
		if err == store.ErrIDExists {
			return events.APIGatewayV2HTTPResponse{}, httpapi.NewError(409, "Es existiert bereits eine Übung mit dieser ID")
		}
		h.log.Error().Err(err).Str("exercise_id", exercise.ID).Msg("failed to create exercise")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Übung konnte nicht gespeichert werden")
	}

	return h.resp.JSON(201, map[string]any{"item": exercise}, nil), nil
}

func (h *Handler) update(ctx context.Context, pathID string, payload map[string]any) (events.APIGatewayV2HTTPResponse, error) {
	exercise, err := buildExercise(payload)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{}, err
	}

	previousID := pathID
	if prev, ok := payload["previousId"].(string); ok && prev != "" {
		previousID = prev
	}

	if err := h.store.Put(ctx, exercise); err != nil {
		h.log.Error().Err(err).Str("exercise_id", pathID).Msg("failed to update exercise")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Übung konnte nicht aktualisiert werden")
	}

	// Renames leave the record under the old id behind; clean it up
	// best-effort without failing the update.
	if previousID != "" && previousID != exercise.ID {
		if _, err := h.store.Delete(ctx, previousID); err != nil {
			h.log.Warn().Err(err).Str("previous_id", previousID).Msg("failed to delete renamed exercise")
		}
	}

	return h.resp.JSON(200, map[string]any{"item": exercise}, nil), nil
}

func (h *Handler) delete(ctx context.Context, id string) (events.APIGatewayV2HTTPResponse, error) {
	if model.IsReservedID(id) {
		return events.APIGatewayV2HTTPResponse{}, httpapi.NotFound("Übung wurde nicht gefunden")
	}

	deleted, err := h.store.Delete(ctx, id)
	if err != nil {
		h.log.Error().Err(err).Str("exercise_id", id).Msg("failed to delete exercise")
		return events.APIGatewayV2HTTPResponse{}, httpapi.BadGateway("Übung konnte nicht gelöscht werden")
	}
	if !deleted {
		return events.APIGatewayV2HTTPResponse{}, httpapi.NotFound("Übung wurde nicht gefunden")
	}

	return h.resp.JSON(204, map[string]string{"status": "deleted"}, nil), nil
}
