// Package warmup handles the CloudWatch warmup events that keep the
// Lambda instances warm. Warmup events are detected before any request
// processing and optionally fan out to additional instances via async
// self-invocation.
package warmup

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog"
)

const (
	// Source identifies warmup events from CloudWatch.
	Source = "warmup"

	// Delay ensures instances overlap to create true concurrency.
	Delay = 75 * time.Millisecond
)

// Event is the CloudWatch Event payload for warmup.
type Event struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// Response is returned by warmup operations.
type Response struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// Invoker is the slice of the Lambda client used for self-invocation.
type Invoker interface {
	Invoke(ctx context.Context, params *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

// IsWarmupEvent checks whether the raw event is a warmup event.
func IsWarmupEvent(event json.RawMessage) (*Event, bool) {
	var eventMap map[string]any
	if err := json.Unmarshal(event, &eventMap); err != nil {
		return nil, false
	}

	source, ok := eventMap["source"].(string)
	if !ok || source != Source {
		return nil, false
	}

	warmup := &Event{Source: source}
	if concurrency, ok := eventMap["concurrency"].(float64); ok {
		warmup.Concurrency = int(concurrency)
	}
	return warmup, true
}

// Handler processes warmup events for one Lambda function.
type Handler struct {
	log          zerolog.Logger
	functionName string
	newInvoker   func(ctx context.Context) (Invoker, error)
}

// NewHandler creates a warmup handler. newInvoker constructs the Lambda
// client lazily so plain warmups never pay for it; pass DefaultInvoker
// outside of tests.
func NewHandler(log zerolog.Logger, functionName string, newInvoker func(ctx context.Context) (Invoker, error)) *Handler {
	return &Handler{log: log, functionName: functionName, newInvoker: newInvoker}
}

// DefaultInvoker builds a Lambda client from the default config chain.
func DefaultInvoker(ctx context.Context) (Invoker, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return lambdasdk.NewFromConfig(cfg), nil
}

// Handle processes a warmup event and optionally self-invokes to
// maintain multiple warm instances.
func (h *Handler) Handle(ctx context.Context, warmup *Event) (any, error) {
	instancesWarmed := 1 // this instance counts as 1

	if warmup.Concurrency > 0 {
		if err := h.selfInvoke(ctx, warmup.Concurrency); err != nil {
			h.log.Warn().Err(err).Msg("warmup self-invocation failed")
		} else {
			instancesWarmed += warmup.Concurrency
		}
	}

	// Brief delay so the instances overlap.
	time.Sleep(Delay)

	return map[string]any{
		"statusCode": 200,
		"body": Response{
			Status:          "warm",
			InstancesWarmed: instancesWarmed,
		},
	}, nil
}

// selfInvoke invokes this Lambda function count times asynchronously.
func (h *Handler) selfInvoke(ctx context.Context, count int) error {
	client, err := h.newInvoker(ctx)
	if err != nil {
		return err
	}

	// Child invocations carry concurrency 0 to prevent an infinite loop.
	payload, err := json.Marshal(Event{Source: Source, Concurrency: 0})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var invokeErr error
	var errMu sync.Mutex

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := client.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(h.functionName),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			if err != nil {
				errMu.Lock()
				if invokeErr == nil {
					invokeErr = err
				}
				errMu.Unlock()
			}
		}()
	}

	wg.Wait()
	return invokeErr
}
