// File: internal/domain/submission.go
package domain

// Attachment names a chosen file for a file-reference field. Reading the
// file content is left to the transport.
type Attachment struct {
	Field    string `json:"field"`
	FileName string `json:"file_name"`
}

// Submission is the payload handed to the submission transport.
type Submission struct {
	FormID         string            `json:"form_id"`
	Fields         map[string]string `json:"fields"`
	Attachments    []Attachment      `json:"attachments,omitempty"`
	ChallengeToken string            `json:"challenge_token"`
}
