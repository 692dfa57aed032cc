package qa

import "time"

// NATS subjects for pipeline events. Consumers (audit loggers, dashboards)
// subscribe via natsutil.Subscribe.
const (
	SubjectDocumentIndexed  = "qa.document.indexed"
	SubjectQuestionAnswered = "qa.question.answered"
)

// DocumentIndexed is published after a document's chunks are durably stored.
type DocumentIndexed struct {
	TenantID     string    `json:"tenant_id"`
	DocumentID   string    `json:"document_id"`
	DocumentName string    `json:"document_name"`
	Chunks       int       `json:"chunks"`
	At           time.Time `json:"at"`
}

// QuestionAnswered is published after every answered question, including the
// fixed no-documents and no-match answers.
type QuestionAnswered struct {
	TenantID       string    `json:"tenant_id"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Sources        []string  `json:"sources"`
	At             time.Time `json:"at"`
}
