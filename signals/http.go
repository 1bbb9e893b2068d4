package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"zentry/engine/library"
)

func defaultClient(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}
	return client
}

// getJSON performs a GET and decodes a JSON body into out. Transport failures and non-2xx
// responses are wrapped in ErrSourceUnavailable.
func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w: %v", url, library.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("GET %s: status %d: %w", url, resp.StatusCode, library.ErrSourceUnavailable)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decoding body: %w: %v", url, library.ErrSourceUnavailable, err)
	}
	return nil
}
