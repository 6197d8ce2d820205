package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Provisioned adalah meja yang dialokasikan backend
type Provisioned struct {
	ID    string `json:"uuid"`
	Alias string `json:"alias"`
}

type Provisioner interface {
	Provision(ctx context.Context, alias string) (Provisioned, error)
}

// HTTPProvisioner memanggil GET {base}/new?alias=
type HTTPProvisioner struct {
	BaseURL    string
	httpClient *http.Client
}

func NewHTTPProvisioner(baseURL string, timeout time.Duration) *HTTPProvisioner {
	return &HTTPProvisioner{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPProvisioner) Provision(ctx context.Context, alias string) (Provisioned, error) {
	target := fmt.Sprintf("%s/new?alias=%s", p.BaseURL, url.QueryEscape(alias))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Provisioned{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Provisioned{}, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Provisioned{}, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Provisioned{}, fmt.Errorf("provisioning API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out Provisioned
	if err := json.Unmarshal(body, &out); err != nil {
		return Provisioned{}, fmt.Errorf("error unmarshaling response: %w", err)
	}
	if out.ID == "" {
		return Provisioned{}, fmt.Errorf("provisioning API returned no table id")
	}
	if out.Alias == "" {
		out.Alias = alias
	}
	return out, nil
}
