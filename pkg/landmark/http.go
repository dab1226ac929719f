package landmark

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

type HTTPProvider struct {
	baseURL string
	c       *http.Client
}

func NewHTTPProvider(baseURL string, timeout time.Duration) *HTTPProvider {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        64,
		MaxIdleConnsPerHost: 32,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		c: &http.Client{
			Transport: tr,
			Timeout:   timeout,
		},
	}
}

func (p *HTTPProvider) Detect(ctx context.Context, image []byte) (*Detection, error) {
	b, err := jsoniter.Marshal(detectRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return nil, fmt.Errorf("landmarks marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/landmarks", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErr))
		cause := ErrUnavailable
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
			cause = ErrRejected
		}
		return nil, fmt.Errorf("%w: landmarks %s: %s", cause, resp.Status, strings.TrimSpace(string(body)))
	}

	var out detectResponse
	if err := jsoniter.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: landmarks decode: %v", ErrUnavailable, err)
	}
	return out.toDetection()
}

func (p *HTTPProvider) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := p.c.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health %s", ErrUnavailable, resp.Status)
	}
	return nil
}
