// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by gateway
// commands. Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 2 * time.Minute,
}

// gatewayClient provides HTTP access to a running clawroute daemon.
type gatewayClient struct {
	baseURL string
	http    *http.Client
}

func newGatewayClient(addr string) *gatewayClient {
	return &gatewayClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into
// dest. Connection refused maps to CodeCLIGatewayNotRunning.
func (c *gatewayClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return c.requestError(err)
	}
	return decodeResponse(resp, dest)
}

func (c *gatewayClient) requestError(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return clawerr.Wrap(err, clawerr.CodeCLIGatewayNotRunning,
			"daemon is not running (connection refused)")
	}
	return clawerr.Wrap(err, clawerr.CodeCLIRequestFailure, "request failed")
}

func decodeResponse(resp *http.Response, dest any) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return clawerr.Errorf(clawerr.CodeCLIRequestFailure,
			"daemon returned status %d: %s", resp.StatusCode, string(body))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return clawerr.Wrap(err, clawerr.CodeCLIRequestFailure, "invalid response")
	}
	return nil
}

// fmtTarget renders a provider/model pair with its chain position.
func fmtTarget(target string, position int, fallback bool) string {
	if fallback {
		return fmt.Sprintf("%s (fallback, chain position %d)", target, position)
	}
	return fmt.Sprintf("%s (primary)", target)
}
