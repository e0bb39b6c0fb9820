package resume

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"portfolioSaaS/internal/profile"
)

// RemoteParser 调用外部简历解析 HTTP 服务。
// 请求为 multipart 表单（字段 file），响应为 {"data": {...}, "confidence": 0.87}。
type RemoteParser struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemoteParser 构造 RemoteParser。
func NewRemoteParser(endpoint, apiKey string, timeout time.Duration) *RemoteParser {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteParser{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		client:   &http.Client{Timeout: timeout},
	}
}

type remoteParseResponse struct {
	Data       profile.Data `json:"data"`
	Confidence float64      `json:"confidence"`
}

func (p *RemoteParser) Extract(ctx context.Context, content []byte, filename string) (profile.Data, float64, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return profile.Data{}, 0, fmt.Errorf("build parser form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return profile.Data{}, 0, fmt.Errorf("write parser form: %w", err)
	}
	if err := form.Close(); err != nil {
		return profile.Data{}, 0, fmt.Errorf("close parser form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return profile.Data{}, 0, fmt.Errorf("build parser request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return profile.Data{}, 0, fmt.Errorf("request resume parser: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return profile.Data{}, 0, fmt.Errorf("resume parser status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out remoteParseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return profile.Data{}, 0, fmt.Errorf("decode parser response: %w", err)
	}
	if strings.TrimSpace(out.Data.Name) == "" {
		return profile.Data{}, 0, errors.New("resume parser returned an empty profile")
	}
	out.Data.Normalize()
	return out.Data, clampConfidence(out.Confidence), nil
}
