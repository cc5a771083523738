// Package models defines the data models used in the application.
package models

// UploadStatus represents the lifecycle state of an upload record.
type UploadStatus string

// Possible values for UploadStatus
const (
	StatusPending  UploadStatus = "PENDING"
	StatusComplete UploadStatus = "COMPLETE"
)

// AnonymousSubject is recorded when a deployment permits unauthenticated uploads.
const AnonymousSubject = "anonymous"

// Upload tracks one issued upload credential and the object it eventually produced.
type Upload struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK"` // SUB#<subject>
	SK string `dynamodbav:"SK"` // UPLOAD#<uploadID> (ULID)

	UploadID    string       `dynamodbav:"upload_id"`
	Subject     string       `dynamodbav:"subject"`
	Key         string       `dynamodbav:"s3_key"`
	ContentType string       `dynamodbav:"content_type"`
	Status      UploadStatus `dynamodbav:"status"`
	CreatedAt   string       `dynamodbav:"created_at"`  // ISO8601; set when the credential is issued
	UploadedAt  string       `dynamodbav:"uploaded_at"` // ISO8601; set by indexer on finalize
	SizeBytes   int64        `dynamodbav:"size_bytes"`
	ETag        string       `dynamodbav:"etag"`
}
