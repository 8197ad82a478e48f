package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	batchWriteLimit = 25 // DynamoDB BatchWriteItem hard limit
	batchMaxRetries = 3  // retries for unprocessed items
)

// BatchWriter loads pre-marshaled items into a table in chunks of 25,
// retrying throttled (unprocessed) items with exponential backoff. Used
// by the importer; the request handlers only ever write single items.
type BatchWriter struct {
	Client    DynamoAPI
	TableName string
}

// NewBatchWriter creates a BatchWriter for the given table.
func NewBatchWriter(client DynamoAPI, tableName string) *BatchWriter {
	return &BatchWriter{Client: client, TableName: tableName}
}

// WriteAll writes every item and returns the number written.
func (w *BatchWriter) WriteAll(ctx context.Context, items []map[string]types.AttributeValue) (int, error) {
	written := 0
	for start := 0; start < len(items); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(items) {
			end = len(items)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, item := range items[start:end] {
			requests = append(requests, types.WriteRequest{
				PutRequest: &types.PutRequest{Item: item},
			})
		}

		if err := w.writeBatchWithRetry(ctx, requests); err != nil {
			return written, err
		}
		written += len(requests)
	}
	return written, nil
}

// writeBatchWithRetry writes a single chunk and retries any
// UnprocessedItems with 100/200/400ms backoff.
func (w *BatchWriter) writeBatchWithRetry(ctx context.Context, requests []types.WriteRequest) error {
	pending := requests

	for attempt := 0; attempt <= batchMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		out, err := w.Client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				w.TableName: pending,
			},
		})
		if err != nil {
			return fmt.Errorf("batch write attempt %d failed: %w", attempt+1, err)
		}

		unprocessed := out.UnprocessedItems[w.TableName]
		if len(unprocessed) == 0 {
			return nil
		}
		pending = unprocessed
	}

	return fmt.Errorf("batch write: %d items still unprocessed after %d retries", len(pending), batchMaxRetries)
}
