package receipts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore stores documents by key and signs short-lived links to them.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
}

// S3Emitter uploads rendered receipts to object storage.
type S3Emitter struct {
	store  ObjectStore
	prefix string
}

func NewS3Emitter(store ObjectStore, prefix string) *S3Emitter {
	return &S3Emitter{store: store, prefix: strings.Trim(prefix, "/")}
}

func (e *S3Emitter) Emit(ctx context.Context, receipt *Receipt) (string, error) {
	body, err := Render(receipt)
	if err != nil {
		return "", err
	}
	key := receipt.Payment.ReceiptNumber + ".html"
	if e.prefix != "" {
		key = e.prefix + "/" + key
	}
	if err := e.store.Put(ctx, key, "text/html; charset=utf-8", body); err != nil {
		return "", err
	}
	return key, nil
}

// Link presigns a fresh download URL for a stored receipt.
func (e *S3Emitter) Link(ctx context.Context, key string) (string, error) {
	return e.store.PresignGet(ctx, key)
}

// DiskEmitter writes receipts below dir, served at baseURL. It serves local
// development where no bucket is configured.
type DiskEmitter struct {
	dir     string
	baseURL string
}

func NewDiskEmitter(dir, baseURL string) *DiskEmitter {
	return &DiskEmitter{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (e *DiskEmitter) Emit(_ context.Context, receipt *Receipt) (string, error) {
	body, err := Render(receipt)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create receipt dir: %w", err)
	}

	name := receipt.Payment.ReceiptNumber + ".html"
	if err := os.WriteFile(filepath.Join(e.dir, name), body, 0o644); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	return name, nil
}

func (e *DiskEmitter) Link(_ context.Context, key string) (string, error) {
	return e.baseURL + "/" + key, nil
}
