package domain

import (
	"fmt"
	"strings"
)

// MaxQuestionLen bounds question length; longer input is almost certainly a
// pasted document, not a question.
const MaxQuestionLen = 2000

// ValidateTenantID checks a caller-supplied tenant identifier.
func ValidateTenantID(tenantID string) error {
	if strings.TrimSpace(tenantID) == "" {
		return ErrEmptyTenant
	}
	for _, r := range tenantID {
		if r == '/' || r == '\\' || r == '.' {
			return fmt.Errorf("tenant id %q contains path character %q", tenantID, r)
		}
	}
	return nil
}

// ValidateQuestion checks a natural-language question before retrieval.
func ValidateQuestion(question string) error {
	q := strings.TrimSpace(question)
	if q == "" {
		return ErrEmptyQuestion
	}
	if len(q) > MaxQuestionLen {
		return fmt.Errorf("question too long: %d chars (max %d)", len(q), MaxQuestionLen)
	}
	return nil
}
