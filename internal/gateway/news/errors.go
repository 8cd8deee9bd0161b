package news

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// ErrNotFound marks a provider answering "no data for this asset". It is a
// healthy response and never trips a breaker.
var ErrNotFound = errors.New("news: not found")

func checkResponse(provider string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", provider, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s: %w", provider, ErrNotFound)
	case resp.IsError():
		return fmt.Errorf("%s: unexpected status %d", provider, resp.StatusCode())
	}
	return nil
}
