package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/khaliqhussainn/certexam-engine/internal/model"
	"github.com/khaliqhussainn/certexam-engine/internal/repository"
)

// The engine treats the rest of the platform (catalog, payments,
// certificate rendering) as collaborators behind narrow interfaces.

// EntitlementGate confirms a user has paid for a course's exam and reports
// how many attempts they have used. Consumed before session creation.
type EntitlementGate interface {
	IsEntitled(ctx context.Context, userID int, courseID uuid.UUID) (entitled bool, attemptsUsed int, err error)
}

// QuestionProvider returns course exam settings and the fixed question set
// to bind to a new session.
type QuestionProvider interface {
	GetExamSettings(ctx context.Context, courseID uuid.UUID) (*repository.CourseExamSettings, error)
	Snapshot(ctx context.Context, courseID uuid.UUID) (*model.QuestionSnapshot, error)
}

// CertificateIssuer receives exactly one completion event per passed result.
// It renders and stores nothing here; issuance happens downstream.
type CertificateIssuer interface {
	OnPassed(ctx context.Context, result *model.ExamResult) error
}

// WebhookCertificateIssuer delivers passed results to the certificate
// platform over HTTP.
type WebhookCertificateIssuer struct {
	url    string
	client *http.Client
}

// NewWebhookCertificateIssuer creates an issuer targeting the given webhook
// URL. An empty URL produces a no-op issuer.
func NewWebhookCertificateIssuer(url string) *WebhookCertificateIssuer {
	return &WebhookCertificateIssuer{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// OnPassed POSTs the result to the webhook. Any non-2xx response is an error
// so the certificate worker can requeue the event.
func (i *WebhookCertificateIssuer) OnPassed(ctx context.Context, result *model.ExamResult) error {
	if i.url == "" {
		return nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("certificate webhook returned %d", resp.StatusCode)
	}
	return nil
}
