package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"
)

// apiGet issues a GET against apiBaseURL+path with params encoded as a
// query string, decoding the JSON response into out.
func apiGet(path string, params any, out any) error {
	u := apiBaseURL + path
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("encode query: %w", err)
		}
		if encoded := values.Encode(); encoded != "" {
			u += "?" + encoded
		}
	}
	resp, err := http.Get(u)
	if err != nil {
		return fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiPost issues a POST against apiBaseURL+path, decoding the JSON
// response into out (if non-nil).
func apiPost(path string, out any) error {
	u := apiBaseURL + path
	resp, err := http.Post(u, "application/json", nil)
	if err != nil {
		return fmt.Errorf("POST %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("POST %s: status %d", u, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// wsURL rewrites apiBaseURL's scheme to ws/wss for the event-stream
// endpoint.
func wsURL(path string) (string, error) {
	u, err := url.Parse(apiBaseURL + path)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}
