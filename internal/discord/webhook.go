// Package discord delivers composed posts to Discord channel webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mbaird/twitrelay/internal/domain"
)

const defaultAPIBase = "https://discord.com/api"

// WebhookResolver maps a channel id to its webhook path ("id/token").
// Returns false when no webhook is registered for the channel.
type WebhookResolver func(channelID string) (string, bool)

// Dispatcher implements domain.Dispatcher over Discord webhook execution.
// Each send is independent per destination; a failure is returned to the
// caller for logging and never affects other destinations.
type Dispatcher struct {
	apiBase    string
	httpClient *http.Client
	logger     *slog.Logger
	webhookFor WebhookResolver
}

// NewDispatcher creates a webhook dispatcher. If apiBase is empty the public
// Discord API is used.
func NewDispatcher(apiBase string, webhookFor WebhookResolver, logger *slog.Logger) *Dispatcher {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Dispatcher{
		apiBase: apiBase,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:     logger,
		webhookFor: webhookFor,
	}
}

// embed is the Discord embed wire shape, populated from a domain.Post.
type embed struct {
	Author      *embedAuthor `json:"author,omitempty"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Thumbnail   *embedMedia  `json:"thumbnail,omitempty"`
	Image       *embedMedia  `json:"image,omitempty"`
	Video       *embedMedia  `json:"video,omitempty"`
}

type embedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type embedMedia struct {
	URL string `json:"url"`
}

type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

// toEmbeds renders one post as one or more embeds. Additional images become
// sibling embeds sharing the post URL, which Discord renders as an image
// gallery.
func toEmbeds(post *domain.Post) []embed {
	main := embed{
		Author: &embedAuthor{
			Name:    post.AuthorLine,
			URL:     post.URL,
			IconURL: post.ThumbnailURL,
		},
		URL:         post.URL,
		Description: post.Description,
		Color:       post.Color,
	}
	if post.ImageURL != "" {
		main.Image = &embedMedia{URL: post.ImageURL}
	}
	if post.VideoURL != "" {
		main.Video = &embedMedia{URL: post.VideoURL}
	}

	embeds := []embed{main}
	if len(post.ImageURLs) > 0 {
		embeds[0].Image = &embedMedia{URL: post.ImageURLs[0]}
		for _, url := range post.ImageURLs[1:] {
			embeds = append(embeds, embed{
				URL:   post.URL,
				Image: &embedMedia{URL: url},
			})
		}
	}
	return embeds
}

// Send implements domain.Dispatcher.
func (d *Dispatcher) Send(ctx context.Context, channelID, message string, post *domain.Post) error {
	path, ok := d.webhookFor(channelID)
	if !ok {
		return fmt.Errorf("no webhook registered for channel %s", channelID)
	}

	payload := webhookPayload{
		Content: message,
		Embeds:  toEmbeds(post),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	url := fmt.Sprintf("%s/webhooks/%s", d.apiBase, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("webhook error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}
