// -------------------------------------------------------------------------------
// Mock Backend - Test Double for the Object Store
//
// Project: KCloud / Author: Alex Freidah
//
// Function-field mock for ObjectBackend. Tests assign only the functions they
// need; unassigned operations fail the test if called. Calls are recorded in
// order so tests can assert sequencing (e.g. record delete before blob
// delete).
// -------------------------------------------------------------------------------

package storage

import (
	"context"
	"fmt"
	"time"
)

type mockBackend struct {
	UploadFunc    func(ctx context.Context, file *UploadFile) (string, error)
	DownloadFunc  func(ctx context.Context, fileName string) (*DownloadResult, error)
	DeleteFunc    func(ctx context.Context, fileName string) error
	SignedURLFunc func(ctx context.Context, fileName string, expiry time.Duration) (string, error)
	ExistsFunc    func(ctx context.Context, fileName string) (bool, error)

	calls []string
}

var _ ObjectBackend = (*mockBackend)(nil)

func (m *mockBackend) record(op, key string) {
	m.calls = append(m.calls, op+":"+key)
}

func (m *mockBackend) Upload(ctx context.Context, file *UploadFile) (string, error) {
	m.record("Upload", file.Name)
	if m.UploadFunc == nil {
		return "", fmt.Errorf("unexpected Upload call for %q", file.Name)
	}
	return m.UploadFunc(ctx, file)
}

func (m *mockBackend) Download(ctx context.Context, fileName string) (*DownloadResult, error) {
	m.record("Download", fileName)
	if m.DownloadFunc == nil {
		return nil, fmt.Errorf("unexpected Download call for %q", fileName)
	}
	return m.DownloadFunc(ctx, fileName)
}

func (m *mockBackend) Delete(ctx context.Context, fileName string) error {
	m.record("Delete", fileName)
	if m.DeleteFunc == nil {
		return fmt.Errorf("unexpected Delete call for %q", fileName)
	}
	return m.DeleteFunc(ctx, fileName)
}

func (m *mockBackend) SignedURL(ctx context.Context, fileName string, expiry time.Duration) (string, error) {
	m.record("SignedURL", fileName)
	if m.SignedURLFunc == nil {
		return "", fmt.Errorf("unexpected SignedURL call for %q", fileName)
	}
	return m.SignedURLFunc(ctx, fileName, expiry)
}

func (m *mockBackend) Exists(ctx context.Context, fileName string) (bool, error) {
	m.record("Exists", fileName)
	if m.ExistsFunc == nil {
		return false, fmt.Errorf("unexpected Exists call for %q", fileName)
	}
	return m.ExistsFunc(ctx, fileName)
}
