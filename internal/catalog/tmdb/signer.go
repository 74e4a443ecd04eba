package tmdb

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/makaraya/movapp/internal/httpclient"
)

var errMissingCredentials = errors.New("tmdb credentials are not configured")

// APIKeySigner authenticates requests with the v3 api_key query parameter.
func APIKeySigner(apiKey string) httpclient.Signer {
	return httpclient.SignerFunc(func(req *http.Request) error {
		if apiKey == "" {
			return errMissingCredentials
		}
		q := req.URL.Query()
		q.Set("api_key", apiKey)
		req.URL.RawQuery = q.Encode()
		return nil
	})
}

// BearerSigner authenticates requests with a v4 read access token.
func BearerSigner(token string) httpclient.Signer {
	return httpclient.SignerFunc(func(req *http.Request) error {
		if token == "" {
			return errMissingCredentials
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	})
}

// NewSigner picks a signer by auth mode ("query" or "bearer").
func NewSigner(mode, credential string) (httpclient.Signer, error) {
	switch mode {
	case "", "query":
		return APIKeySigner(credential), nil
	case "bearer":
		return BearerSigner(credential), nil
	default:
		return nil, fmt.Errorf("unknown tmdb auth mode %q", mode)
	}
}
