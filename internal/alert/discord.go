// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Clawroute Contributors

// Package alert delivers operator notifications through an external
// channel. The only shipped channel is a Discord webhook; Notifier is
// the seam for adding others.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	clawerr "github.com/openclaw/clawroute/pkg/errors"
)

// Notifier sends one alert event to an external channel.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Event is a channel-independent alert payload.
type Event struct {
	Title       string
	Description string
	Details     map[string]string
}

// DiscordWebhook posts alert events as embeds to a Discord webhook URL.
type DiscordWebhook struct {
	url    string
	client *http.Client
}

// NewDiscordWebhook builds a webhook notifier. A nil client uses a
// default with a 10 second timeout.
func NewDiscordWebhook(url string, client *http.Client) (*DiscordWebhook, error) {
	if url == "" {
		return nil, clawerr.New(clawerr.CodeOpenFallNotifyFailure, "webhook URL is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscordWebhook{url: url, client: client}, nil
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// Notify posts ev to the webhook. Any non-2xx response is an error;
// callers that treat delivery as best-effort log and move on.
func (d *DiscordWebhook) Notify(ctx context.Context, ev Event) error {
	embed := discordEmbed{Title: ev.Title, Description: ev.Description}
	for name, value := range ev.Details {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: name, Value: value})
	}

	body, err := json.Marshal(discordPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return clawerr.Wrap(err, clawerr.CodeOpenFallNotifyFailure, "encoding webhook payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return clawerr.Wrap(err, clawerr.CodeOpenFallNotifyFailure, "building webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return clawerr.Wrap(err, clawerr.CodeOpenFallNotifyFailure, "posting webhook")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return clawerr.New(clawerr.CodeOpenFallNotifyFailure,
			fmt.Sprintf("webhook returned %d", resp.StatusCode))
	}
	return nil
}
