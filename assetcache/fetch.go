package assetcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPFetcher loads assets from a remote origin.
type HTTPFetcher struct {
	Base   *url.URL
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (Asset, error) {
	ref, err := url.Parse(name)
	if err != nil {
		return Asset{}, fmt.Errorf("invalid asset name %q: %w", name, err)
	}
	u := f.Base.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Asset{}, err
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("could not fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Asset{}, fmt.Errorf("%w: %s", ErrNotFound, u)
	case resp.StatusCode != http.StatusOK:
		return Asset{}, fmt.Errorf("could not fetch %s: %s", u, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Asset{}, fmt.Errorf("could not read %s: %w", u, err)
	}

	return Asset{
		Name:        name,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
