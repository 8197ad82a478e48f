package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/stretchcoach/coach-backend/internal/model"
)

// maxPageSize caps a single Scan page when listing progress entries.
const maxPageSize = 100

// ProgressStore persists completed sessions, keyed by the pair
// (client_id, completed_at).
type ProgressStore struct {
	Client    DynamoAPI
	TableName string
}

// NewProgressStore creates a progress store on the given table.
func NewProgressStore(client DynamoAPI, tableName string) *ProgressStore {
	return &ProgressStore{Client: client, TableName: tableName}
}

func progressKey(clientID, completedAt string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"client_id":    &types.AttributeValueMemberS{Value: clientID},
		"completed_at": &types.AttributeValueMemberS{Value: completedAt},
	}
}

// Put appends one progress entry.
func (s *ProgressStore) Put(ctx context.Context, entry model.ProgressEntry) error {
	item, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal progress entry: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.TableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store progress entry: %w", err)
	}
	return nil
}

// List scans up to limit entries, fetching pages of at most maxPageSize
// until the limit is satisfied or the table reports no further page.
func (s *ProgressStore) List(ctx context.Context, limit int) ([]model.ProgressEntry, error) {
	var entries []model.ProgressEntry
	var startKey map[string]types.AttributeValue

	for len(entries) < limit {
		pageSize := limit - len(entries)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		out, err := s.Client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.TableName),
			Limit:             aws.Int32(int32(pageSize)),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress table: %w", err)
		}

		var page []model.ProgressEntry
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress entries: %w", err)
		}
		entries = append(entries, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Delete removes one entry by its composite key. The conditional
// existence check makes a missing entry report ErrNotFound instead of
// succeeding silently.
func (s *ProgressStore) Delete(ctx context.Context, clientID, completedAt string) error {
	_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.TableName),
		Key:                 progressKey(clientID, completedAt),
		ConditionExpression: aws.String("attribute_exists(client_id) AND attribute_exists(completed_at)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete progress entry: %w", err)
	}
	return nil
}
