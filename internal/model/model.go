package model

import "time"

// AccessToken is a YouTube bearer token and the instant it stops being valid.
type AccessToken struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is no longer usable at now.
func (t AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// StoredToken is the persisted form of an AccessToken in DynamoDB.
type StoredToken struct {
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	EncryptedValue string    `json:"encrypted_value" dynamodbav:"encrypted_value"`
	ExpiresAtMs    int64     `json:"expires_at_ms" dynamodbav:"expires_at_ms"`
	UpdatedAt      time.Time `json:"updated_at" dynamodbav:"updated_at"`
	TTL            int64     `json:"-" dynamodbav:"ttl"` // TTL (Unix timestamp)
}

// OAuthNonce is a pending anti-CSRF state value for one user.
type OAuthNonce struct {
	UserID    string `json:"user_id" dynamodbav:"user_id"`
	State     string `json:"state" dynamodbav:"state"`
	ExpiresAt int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix timestamp)
}

// VideoMetadata describes the video resource created on YouTube.
type VideoMetadata struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags,omitempty"`
	CategoryID    string   `json:"category_id"`
	PrivacyStatus string   `json:"privacy_status"`
	MadeForKids   bool     `json:"made_for_kids"`
}

// UploadSession is a resumable upload slot. It is used for exactly one transfer.
type UploadSession struct {
	LocationURL string `json:"location_url"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type"`
}

// RemoteVideo describes a video that YouTube accepted.
type RemoteVideo struct {
	VideoID      string `json:"video_id" dynamodbav:"video_id"`
	VideoURL     string `json:"video_url" dynamodbav:"video_url"`
	Title        string `json:"title" dynamodbav:"title"`
	Description  string `json:"description" dynamodbav:"description"`
	ThumbnailURL string `json:"thumbnail_url,omitempty" dynamodbav:"thumbnail_url,omitempty"`
}

// Channel is the YouTube channel behind an access token.
type Channel struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// JobStatus is the lifecycle state of an UploadJob.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobUploading JobStatus = "uploading"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// UploadJob records one upload attempt and its progress.
type UploadJob struct {
	ID              string       `json:"id" dynamodbav:"upload_id"`
	UserID          string       `json:"user_id" dynamodbav:"user_id"`
	ContentRecordID string       `json:"content_record_id,omitempty" dynamodbav:"content_record_id"`
	SourceKey       string       `json:"source_key" dynamodbav:"source_key"`
	Status          JobStatus    `json:"status" dynamodbav:"status"`
	Progress        int          `json:"progress" dynamodbav:"progress"`
	Video           *RemoteVideo `json:"video,omitempty" dynamodbav:"video,omitempty"`
	Error           string       `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CreatedAt       time.Time    `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" dynamodbav:"updated_at"`
	TTL             int64        `json:"-" dynamodbav:"ttl"`
}
