package httpapi

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ParseJSONBody extracts the JSON object from an API Gateway event body,
// decoding the base64 transport encoding first when the event is
// flagged. An absent or empty body yields an empty map. Numbers are kept
// as json.Number so the validators can tell integers and floats apart.
func ParseJSONBody(req events.APIGatewayV2HTTPRequest) (map[string]any, error) {
	body := req.Body
	if body == "" {
		return map[string]any{}, nil
	}

	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, BadRequest("Ungültiges JSON im Request-Body")
		}
		body = string(decoded)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, BadRequest("Ungültiges JSON im Request-Body")
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, BadRequest("Request-Body muss ein JSON-Objekt sein")
	}
	return obj, nil
}

// Method returns the upper-cased HTTP method of the event.
func Method(req events.APIGatewayV2HTTPRequest) string {
	return strings.ToUpper(req.RequestContext.HTTP.Method)
}
