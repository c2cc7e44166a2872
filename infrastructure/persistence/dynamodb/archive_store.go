// Package dynamodb persists document exports in DynamoDB for multi-node
// deployments.
package dynamodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"molstack/application/ports"
	"molstack/domain/core/aggregates"
	"molstack/domain/core/valueobjects"
	pkgerrors "molstack/pkg/errors"
)

// ArchiveStore implements ports.ArchiveStore over a DynamoDB table
type ArchiveStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// exportRecord is the stored item shape
type exportRecord struct {
	PK         string `dynamodbav:"PK"` // DOC#<document_id>
	SK         string `dynamodbav:"SK"` // EXPORT
	Version    int    `dynamodbav:"Version"`
	Payload    string `dynamodbav:"Payload"`
	ExportedAt string `dynamodbav:"ExportedAt"`
}

// NewArchiveStore creates a DynamoDB-backed archive store
func NewArchiveStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *ArchiveStore {
	return &ArchiveStore{client: client, tableName: tableName, logger: logger}
}

var _ ports.ArchiveStore = (*ArchiveStore)(nil)

// Put persists a document export. The conditional write keeps the stored
// version monotonic when several nodes archive the same document.
func (s *ArchiveStore) Put(ctx context.Context, export *aggregates.Export) error {
	if export == nil {
		return pkgerrors.NewValidationError("export payload is empty")
	}
	payload, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}

	record := exportRecord{
		PK:         partitionKey(export.ID),
		SK:         "EXPORT",
		Version:    export.Version,
		Payload:    string(payload),
		ExportedAt: export.ExportedAt.Format(time.RFC3339Nano),
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshaling export record: %w", err)
	}

	cond := expression.Or(
		expression.AttributeNotExists(expression.Name("PK")),
		expression.Name("Version").LessThanEqual(expression.Value(export.Version)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("building condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var condFailed *types.ConditionalCheckFailedException
	if errors.As(err, &condFailed) {
		// A newer export is already stored; losing this race is fine.
		s.logger.Debug("Skipped archiving stale export",
			zap.String("document_id", export.ID.String()),
			zap.Int("version", export.Version),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Get retrieves the most recent export for a document
func (s *ArchiveStore) Get(ctx context.Context, id valueobjects.DocumentID) (*aggregates.Export, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: partitionKey(id)},
			"SK": &types.AttributeValueMemberS{Value: "EXPORT"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError(fmt.Sprintf("export for document %s", id))
	}

	var record exportRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return nil, fmt.Errorf("unmarshaling export record: %w", err)
	}
	var export aggregates.Export
	if err := json.Unmarshal([]byte(record.Payload), &export); err != nil {
		return nil, fmt.Errorf("decoding export payload: %w", err)
	}
	return &export, nil
}

// Delete removes a document's export
func (s *ArchiveStore) Delete(ctx context.Context, id valueobjects.DocumentID) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: partitionKey(id)},
			"SK": &types.AttributeValueMemberS{Value: "EXPORT"},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting export: %w", err)
	}
	return nil
}

// Close is a no-op; the SDK client has no resources to release
func (s *ArchiveStore) Close() error {
	return nil
}

func partitionKey(id valueobjects.DocumentID) string {
	return "DOC#" + id.String()
}
