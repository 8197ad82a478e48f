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

// ExerciseStore persists the exercise catalog, keyed by exercise_id.
type ExerciseStore struct {
	Client    DynamoAPI
	TableName string
}

// NewExerciseStore creates a catalog store on the given table.
func NewExerciseStore(client DynamoAPI, tableName string) *ExerciseStore {
	return &ExerciseStore{Client: client, TableName: tableName}
}

func exerciseKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"exercise_id": &types.AttributeValueMemberS{Value: id},
	}
}

// List returns every stored exercise. Filtering and ordering are the
// handler's concern.
func (s *ExerciseStore) List(ctx context.Context) ([]model.Exercise, error) {
	var items []model.Exercise
	var startKey map[string]types.AttributeValue

	for {
		out, err := s.Client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.TableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan exercises table: %w", err)
		}

		var page []model.Exercise
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exercises: %w", err)
		}
		items = append(items, page...)

		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = out.LastEvaluatedKey
	}
}

// Get fetches one exercise by id. Returns ErrNotFound when the id is
// unknown.
func (s *ExerciseStore) Get(ctx context.Context, id string) (*model.Exercise, error) {
	out, err := s.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.TableName),
		Key:       exerciseKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get exercise %s: %w", id, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var exercise model.Exercise
	if err := attributevalue.UnmarshalMap(out.Item, &exercise); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exercise %s: %w", id, err)
	}
	return &exercise, nil
}

// Create inserts an exercise only if its id is unused. A conditional
// write keeps the uniqueness check atomic; ErrIDExists signals the
// conflict.
func (s *ExerciseStore) Create(ctx context.Context, exercise model.Exercise) error {
	item, err := attributevalue.MarshalMap(exercise)
	if err != nil {
		return fmt.Errorf("failed to marshal exercise %s: %w", exercise.ID, err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.TableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(exercise_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return ErrIDExists
		}
		return fmt.Errorf("failed to store exercise %s: %w", exercise.ID, err)
	}
	return nil
}

// Put overwrites an exercise unconditionally.
func (s *ExerciseStore) Put(ctx context.Context, exercise model.Exercise) error {
	item, err := attributevalue.MarshalMap(exercise)
	if err != nil {
		return fmt.Errorf("failed to marshal exercise %s: %w", exercise.ID, err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.TableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store exercise %s: %w", exercise.ID, err)
	}
	return nil
}

// Delete removes an exercise and reports whether it existed, using the
// returned previous value as the existence check.
func (s *ExerciseStore) Delete(ctx context.Context, id string) (bool, error) {
	out, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.TableName),
		Key:          exerciseKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete exercise %s: %w", id, err)
	}
	return len(out.Attributes) > 0, nil
}
