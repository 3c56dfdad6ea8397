package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// RemoteUploader posts each object as multipart form data to an unsigned
// upload endpoint and reads the hosted URL from the JSON reply.
type RemoteUploader struct {
	endpoint string
	preset   string
	client   *http.Client
}

// NewRemoteUploader constructs an uploader for endpoint using an unsigned preset.
func NewRemoteUploader(endpoint, preset string, timeout time.Duration, client *http.Client) (*RemoteUploader, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("upload endpoint required")
	}
	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &RemoteUploader{endpoint: endpoint, preset: preset, client: client}, nil
}

type uploadReply struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Put uploads obj and returns its public URL.
func (u *RemoteUploader) Put(ctx context.Context, obj Object) (string, error) {
	if len(obj.Data) == 0 {
		return "", ErrEmptyObject
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	name := obj.Name
	if name == "" {
		name = "image"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(obj.Data); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if u.preset != "" {
		if err := mw.WriteField("upload_preset", u.preset); err != nil {
			return "", fmt.Errorf("build upload form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload reply: %w", err)
	}

	var reply uploadReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("decode upload reply (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if reply.Error != nil && reply.Error.Message != "" {
			msg = reply.Error.Message
		}
		return "", fmt.Errorf("upload rejected with status %d: %s", resp.StatusCode, msg)
	}

	switch {
	case reply.SecureURL != "":
		return reply.SecureURL, nil
	case reply.URL != "":
		return reply.URL, nil
	default:
		return "", fmt.Errorf("upload reply missing url")
	}
}
