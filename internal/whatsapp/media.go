package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Vovarama1992/wapp-ai-bridge/internal/ai"
)

const maxMediaBytes = 10 << 20

// MediaDescriber скачивает медиа по URL и просит vision-модель описать его.
// Ретраев нет — решает вызывающий.
type MediaDescriber struct {
	vision ai.Vision
	client *http.Client

	// медиа Twilio закрыто basic auth'ом аккаунта
	username string
	password string
}

func NewMediaDescriber(vision ai.Vision, username, password string) *MediaDescriber {
	return &MediaDescriber{
		vision:   vision,
		client:   &http.Client{Timeout: 20 * time.Second},
		username: username,
		password: password,
	}
}

func (m *MediaDescriber) Describe(ctx context.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaFetch, err)
	}
	if m.username != "" {
		req.SetBasicAuth(m.username, m.password)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %s", ErrMediaFetch, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMediaFetch, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

	description, err := m.vision.DescribeImage(ctx, dataURL)
	if err != nil {
		return "", err
	}
	if description == "" {
		return "", ErrDescriptionUnavailable
	}

	return description, nil
}
