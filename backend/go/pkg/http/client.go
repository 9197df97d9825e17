package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"Koro/backend/go/internal/config"
	"Koro/backend/go/pkg/circuitbreaker"
)

// APIError 是服务端以 {"error": "..."} 返回的错误。
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// Client 包装标准库的 http.Client，并可选地用熔断器保护请求。
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient 创建客户端，熔断器未启用时直接发送请求。
func NewClient(cfg config.CircuitBreakerConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{httpClient: http.DefaultClient}, nil
	}

	breaker, err := createCircuitBreaker(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    breaker,
	}, nil
}

// NewDefaultClient 创建一个使用默认熔断参数的客户端。
func NewDefaultClient() (*Client, error) {
	return NewClient(config.CircuitBreakerConfig{Enabled: true, FailureThreshold: 3, SuccessThreshold: 1, Timeout: "10s"})
}

// Do 发送请求，状态码 >= 500 计为熔断器的失败。
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		// 5xx 时把响应交给调用方读取错误信息
		if resp != nil && resp.StatusCode >= http.StatusInternalServerError {
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}

// DoJSON 以 JSON 发送 in（可为 nil），并把成功响应解码到 out（可为 nil）。
// token 非空时附带 Bearer 授权头。非 2xx 响应返回 *APIError。
func (c *Client) DoJSON(ctx context.Context, method, url, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("编码请求失败: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解码响应失败: %w", err)
	}
	return nil
}
