// Package ddb provides a simple repository for interacting with DynamoDB for upload records.
package ddb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shiftpoint/upload-signer/internal/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Repo wraps a DynamoDB client and table name for upload-record operations.
type Repo struct {
	DB    API
	Table string
}

// PutPending inserts a new upload record with status PENDING, ensuring no duplicate exists.
func (r *Repo) PutPending(ctx context.Context, u models.Upload) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return err
	}
	_, err = r.DB.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.Table,
		Item:                item,
		ConditionExpression: awsStr("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	return err
}

// UpsertComplete marks an upload record COMPLETE with the observed object attributes.
func (r *Repo) UpsertComplete(ctx context.Context, subject, uploadID, s3Key string, size int64, etag, uploadedAt string) error {
	pk, sk := MakeKeys(subject, uploadID)
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.Table,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression:         awsStr("SET #s = :s, s3_key = :k, uploaded_at = :t, size_bytes = :b, etag = :e"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(models.StatusComplete)},
			":k": &types.AttributeValueMemberS{Value: s3Key},
			":t": &types.AttributeValueMemberS{Value: uploadedAt},
			":b": &types.AttributeValueMemberN{Value: strconv.FormatInt(size, 10)},
			":e": &types.AttributeValueMemberS{Value: etag},
		},
	})
	return err
}

// ListBySubject returns up to limit upload records for one subject, newest first.
func (r *Repo) ListBySubject(ctx context.Context, subject string, limit int32) ([]models.Upload, error) {
	out, err := r.DB.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.Table,
		KeyConditionExpression: awsStr("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("SUB#%s", subject)},
		},
		Limit:            &limit,
		ScanIndexForward: awsBool(false), // ULID sort keys are time-ordered
	})
	if err != nil {
		return nil, err
	}
	var items []models.Upload
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// awsStr is a helper to get a pointer to a string literal.
func awsStr(s string) *string { return &s }

func awsBool(b bool) *bool { return &b }

// NowISO returns the current time in ISO8601 format.
func NowISO() string { return time.Now().UTC().Format(time.RFC3339) }

// MakeKeys constructs the partition key (PK) and sort key (SK) for an upload record.
func MakeKeys(subject, uploadID string) (pk, sk string) {
	return fmt.Sprintf("SUB#%s", subject), fmt.Sprintf("UPLOAD#%s", uploadID)
}
