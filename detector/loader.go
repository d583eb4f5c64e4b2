package detector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Loader fetches cascade files by name.
type Loader interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// HTTPLoader fetches files relative to BaseURL. It serves the cascades and,
// wrapped by the app package, the placeholder image.
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client
}

// Load resolves name against BaseURL and returns the response body.
func (l *HTTPLoader) Load(ctx context.Context, name string) ([]byte, error) {
	base, err := url.Parse(l.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("detector: base url: %w", err)
	}
	ref, err := url.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("detector: cascade %q: %w", name, err)
	}
	u := base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", u, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
