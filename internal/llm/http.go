package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 2048

// StatusError is a non-2xx provider response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("error (%d): %s", e.Code, e.Body)
}

// Unwrap maps well-known statuses to the package sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuth
	case http.StatusBadRequest:
		// Gemini reports invalid keys as 400 INVALID_ARGUMENT.
		lower := strings.ToLower(e.Body)
		if strings.Contains(lower, "api_key_invalid") || strings.Contains(lower, "api key not valid") {
			return ErrAuth
		}
	}
	return nil
}

// DoJSON posts reqBody as JSON to url and decodes a 2xx response into respBody.
func DoJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, reqBody, respBody any) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
