package jiocine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	origin    = "https://www.jiocinema.com"

	// 响应体读取上限，manifest 一般在几百 KB 以内
	maxBodySize = 16 << 20
)

// ErrNotFound 内容不存在
var ErrNotFound = errors.New("jiocine: content not found")

// APIError 平台接口返回的错误
type APIError struct {
	Endpoint   string
	StatusCode int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jiocine: %s failed (http=%d code=%d): %s", e.Endpoint, e.StatusCode, e.Code, e.Message)
}

// Options 客户端配置
type Options struct {
	ContentBaseURL  string
	PlaybackBaseURL string
	AuthBaseURL     string
	Timeout         time.Duration
}

// Client 平台 API 客户端
type Client struct {
	contentBaseURL  string
	playbackBaseURL string
	authBaseURL     string
	httpClient      *http.Client
}

// NewClient 创建新的API客户端
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		contentBaseURL:  opts.ContentBaseURL,
		playbackBaseURL: opts.PlaybackBaseURL,
		authBaseURL:     opts.AuthBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetTimeout 设置请求超时时间
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// newRequest 创建带平台公共请求头的请求
func (c *Client) newRequest(ctx context.Context, method, url string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求体失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Origin", origin)
	req.Header.Set("Referer", origin+"/")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do 发送请求并读取响应体，非 2xx 返回 APIError
func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
		}
	}
	return body, nil
}
