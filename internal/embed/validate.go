// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Semdex Contributors

package embed

import (
	"context"
	"io"
	"net/http"

	semerr "github.com/semdex-dev/semdex/pkg/errors"
)

// ProviderName identifies a supported embedding provider for key validation.
type ProviderName string

const (
	ProviderOpenAI ProviderName = "openai"
	ProviderGoogle ProviderName = "google"
	ProviderLocal  ProviderName = "local"
)

// ValidateKey probes the provider's models endpoint with the given key. A
// 401 or 403 response means the key is bad; the local provider has no key
// and always passes.
func ValidateKey(ctx context.Context, client *http.Client, provider ProviderName, key string) error {
	var (
		url     string
		headers map[string]string
	)

	switch provider {
	case ProviderLocal:
		return nil
	case ProviderOpenAI:
		url = "https://api.openai.com/v1/models"
		headers = map[string]string{
			"Authorization": "Bearer " + key,
		}
	case ProviderGoogle:
		// Google's Generative Language API authenticates via query parameter.
		// There is no header-based alternative; the key will appear in HTTP
		// proxy/CDN access logs.
		url = "https://generativelanguage.googleapis.com/v1/models?key=" + key
	default:
		return semerr.Errorf(semerr.CodeEmbedKeyInvalid, "unknown provider: %s", provider)
	}

	return checkModelsEndpoint(ctx, client, provider, url, headers)
}

// ValidateKeyWithURL is ValidateKey with the endpoint injectable: a non-empty
// url replaces the provider default, letting tests aim the probe at a local
// httptest server.
func ValidateKeyWithURL(ctx context.Context, client *http.Client, provider ProviderName, key, url string) error {
	switch provider {
	case ProviderOpenAI, ProviderGoogle, ProviderLocal:
	default:
		return semerr.Errorf(semerr.CodeEmbedKeyInvalid, "unknown provider: %s", provider)
	}

	if url == "" {
		return ValidateKey(ctx, client, provider, key)
	}
	if provider == ProviderLocal {
		return nil
	}

	headers := make(map[string]string)
	if provider == ProviderOpenAI {
		headers["Authorization"] = "Bearer " + key
	}

	return checkModelsEndpoint(ctx, client, provider, url, headers)
}

func checkModelsEndpoint(ctx context.Context, client *http.Client, provider ProviderName, url string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return semerr.Errorf(semerr.CodeEmbedKeyCheckFailed, "building validation request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return semerr.Errorf(semerr.CodeEmbedKeyCheckFailed, "validating %s key: %w", provider, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return semerr.Errorf(semerr.CodeEmbedKeyInvalid, "invalid %s API key (HTTP %d)", provider, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return semerr.Errorf(semerr.CodeEmbedKeyCheckFailed, "%s validation failed (HTTP %d)", provider, resp.StatusCode)
	}

	return nil
}
