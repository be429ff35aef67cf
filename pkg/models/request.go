package models

// UploadCVRequest is the HTTP payload for CV ingestion.
type UploadCVRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// PipelineSearchRequest starts a pipeline run for a user.
type PipelineSearchRequest struct {
	UserID   string         `json:"user_id" validate:"required"`
	Criteria SearchCriteria `json:"criteria"`
}

// CancelRequest aborts a user's active pipeline run.
type CancelRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
