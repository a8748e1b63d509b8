package tables

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTPSource fetches resources relative to a base URL. It is read-only.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/"+url.PathEscape(name), nil)
	if err != nil {
		return "", &FetchError{Name: name, Err: err}
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return "", &FetchError{Name: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{Name: name, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &FetchError{Name: name, Err: err}
	}
	return string(body), nil
}
