package httpapi

import (
	"encoding/base64"
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"
)

// CORSConfig holds the values for the three CORS response headers.
type CORSConfig struct {
	AllowOrigin  string
	AllowMethods string
	AllowHeaders string
}

// DefaultCORS returns the fallback CORS configuration used when the
// environment provides no overrides.
func DefaultCORS() CORSConfig {
	return CORSConfig{
		AllowOrigin:  "*",
		AllowMethods: "OPTIONS,POST,GET,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization,X-Amz-Date,X-Amz-Security-Token,X-Api-Key",
	}
}

// Responder builds API Gateway responses with consistent CORS headers.
// Every response it produces carries Content-Type and the three
// Access-Control-Allow-* headers; caller-supplied headers are merged on
// top but cannot unset them.
type Responder struct {
	cors CORSConfig
}

// NewResponder creates a Responder. Empty fields in cors fall back to
// the defaults.
func NewResponder(cors CORSConfig) *Responder {
	def := DefaultCORS()
	if cors.AllowOrigin == "" {
		cors.AllowOrigin = def.AllowOrigin
	}
	if cors.AllowMethods == "" {
		cors.AllowMethods = def.AllowMethods
	}
	if cors.AllowHeaders == "" {
		cors.AllowHeaders = def.AllowHeaders
	}
	return &Responder{cors: cors}
}

func (r *Responder) baseHeaders(contentType string) map[string]string {
	return map[string]string{
		"Content-Type":                 contentType,
		"Access-Control-Allow-Origin":  r.cors.AllowOrigin,
		"Access-Control-Allow-Methods": r.cors.AllowMethods,
		"Access-Control-Allow-Headers": r.cors.AllowHeaders,
	}
}

func mergeHeaders(base map[string]string, extra map[string]string) map[string]string {
	for k, v := range extra {
		if v == "" {
			continue
		}
		base[k] = v
	}
	return base
}

// JSON builds a JSON response. body is marshaled with encoding/json.
func (r *Responder) JSON(status int, body any, extra map[string]string) events.APIGatewayV2HTTPResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		// Only reachable with an unmarshalable body, which is a
		// programming error. Degrade to a generic envelope.
		status = 500
		payload = []byte(`{"error":"Interner Serverfehler"}`)
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    mergeHeaders(r.baseHeaders("application/json"), extra),
		Body:       string(payload),
	}
}

// Text builds a plain-text response.
func (r *Responder) Text(status int, body string, extra map[string]string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    mergeHeaders(r.baseHeaders("text/plain; charset=utf-8"), extra),
		Body:       body,
	}
}

// Binary builds a base64-encoded binary response with the given MIME
// type.
func (r *Responder) Binary(status int, body []byte, mimeType string, extra map[string]string) events.APIGatewayV2HTTPResponse {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode:      status,
		Headers:         mergeHeaders(r.baseHeaders(mimeType), extra),
		Body:            base64.StdEncoding.EncodeToString(body),
		IsBase64Encoded: true,
	}
}

// Err builds the uniform `{"error": ...}` envelope for an Error.
func (r *Responder) Err(e *Error) events.APIGatewayV2HTTPResponse {
	return r.JSON(e.Status, map[string]string{"error": e.Message}, nil)
}
