// Package export copies archived history records to S3-compatible storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/choreloop/internal/model"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Prefix    string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type State string

const (
	StateIdle     State = "idle"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastExport *time.Time `json:"last_export,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Exporter writes one JSON object per history record. Without a complete
// S3 configuration every call is a no-op.
type Exporter struct {
	mu     sync.RWMutex
	cfg    S3Config
	client s3Client
	status Status
}

func New(cfg S3Config) *Exporter {
	e := &Exporter{cfg: cfg, status: Status{State: StateDisabled}}
	if cfg.complete() {
		e.client = newS3Client(cfg)
		e.status.State = StateIdle
	}
	return e
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

func (e *Exporter) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.client != nil
}

func (e *Exporter) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// setResult records the outcome of a bucket call. Only uploads move
// LastExport.
func (e *Exporter) setResult(err error, upload bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.status.State = StateError
		e.status.Error = err.Error()
		return
	}
	e.status.State = StateIdle
	e.status.Error = ""
	if upload {
		now := time.Now().UTC()
		e.status.LastExport = &now
	}
}

// Key is the object key of a record.
func (e *Exporter) Key(userID, recordID string) string {
	return fmt.Sprintf("%shistory/%s/%s.json", e.cfg.Prefix, userID, recordID)
}

// Export uploads the record, replacing any earlier copy.
func (e *Exporter) Export(ctx context.Context, r *model.HistoryRecord) error {
	if !e.Enabled() {
		return nil
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.Bucket),
		Key:         aws.String(e.Key(r.UserID, r.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		err = fmt.Errorf("upload record: %w", err)
	}
	e.setResult(err, true)
	return err
}

// Delete removes the exported copy of a record.
func (e *Exporter) Delete(ctx context.Context, userID, recordID string) error {
	if !e.Enabled() {
		return nil
	}

	_, err := e.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(e.cfg.Bucket),
		Key:    aws.String(e.Key(userID, recordID)),
	})
	if err != nil {
		err = fmt.Errorf("delete exported record: %w", err)
	}
	e.setResult(err, false)
	return err
}
