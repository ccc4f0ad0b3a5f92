package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	storageBase = "https://storage.googleapis.com/storage/v1"
	uploadBase  = "https://storage.googleapis.com/upload/storage/v1"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("gcs: object not found")

// Upload writes data under the given object name, overwriting any existing object.
func (b *Bucket) Upload(ctx context.Context, object string, contentType string, data []byte) error {
	if b == nil || b.client == nil {
		return errors.New("gcs bucket not initialized")
	}
	if object == "" {
		return errors.New("object name is required")
	}

	token, err := b.client.tokenSource.Token(ctx)
	if err != nil {
		return err
	}

	u := fmt.Sprintf(
		"%s/b/%s/o?uploadType=media&name=%s",
		uploadBase,
		url.PathEscape(b.name),
		url.QueryEscape(object),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return statusError("upload", object, resp)
	}
	return nil
}

// Download streams the object contents. The caller owns the returned reader.
func (b *Bucket) Download(ctx context.Context, object string) (io.ReadCloser, error) {
	if b == nil || b.client == nil {
		return nil, errors.New("gcs bucket not initialized")
	}
	if object == "" {
		return nil, errors.New("object name is required")
	}

	token, err := b.client.tokenSource.Token(ctx)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf(
		"%s/b/%s/o/%s?alt=media",
		storageBase,
		url.PathEscape(b.name),
		url.PathEscape(object),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		_ = resp.Body.Close()
		return nil, ErrObjectNotFound
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		return nil, statusError("download", object, resp)
	}
	return resp.Body, nil
}

// Exists checks object metadata without fetching the payload.
func (b *Bucket) Exists(ctx context.Context, object string) (bool, error) {
	if b == nil || b.client == nil {
		return false, errors.New("gcs bucket not initialized")
	}
	if object == "" {
		return false, errors.New("object name is required")
	}

	token, err := b.client.tokenSource.Token(ctx)
	if err != nil {
		return false, err
	}

	u := fmt.Sprintf(
		"%s/b/%s/o/%s",
		storageBase,
		url.PathEscape(b.name),
		url.PathEscape(object),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, statusError("stat", object, resp)
	}
}

func statusError(op, object string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if len(b) > 0 {
		return fmt.Errorf("gcs %s %q failed: %s: %s", op, object, resp.Status, strings.TrimSpace(string(b)))
	}
	return fmt.Errorf("gcs %s %q failed: %s", op, object, resp.Status)
}
