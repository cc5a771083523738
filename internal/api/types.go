// Package api contains types for the API requests and responses.
package api

// SignRequest represents the request payload for generating a presigned S3 upload URL.
// Expires is either empty (default TTL), "unlimited", or a decimal number of seconds.
type SignRequest struct {
	Key      string `json:"key"`
	FileType string `json:"fileType"`
	Expires  string `json:"expires"`
}

// SignResponse carries the presigned URL and the final namespaced object key.
// Key always matches the object key embedded in URL.
type SignResponse struct {
	URL string `json:"url"`
	Key string `json:"key"`
}
