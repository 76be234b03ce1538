// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v57/github"
)

// CreateWebhookRequest contains the fields for creating a repository
// webhook.
type CreateWebhookRequest struct {
	// Events is the list of event types to deliver. Use ["*"] for all events.
	Events []string

	// Config holds the webhook endpoint configuration.
	Config CreateWebhookConfig

	// Active enables or disables the webhook. Defaults to true.
	Active *bool
}

// CreateWebhookConfig is the webhook endpoint configuration for creation.
type CreateWebhookConfig struct {
	URL         string
	ContentType string // "json" or "form"
	Secret      string
	InsecureSSL string // "0" (verify) or "1" (skip)
}

func (config CreateWebhookConfig) fields() map[string]interface{} {
	fields := map[string]interface{}{
		"url":          config.URL,
		"content_type": config.ContentType,
	}
	if config.Secret != "" {
		fields["secret"] = config.Secret
	}
	if config.InsecureSSL != "" {
		fields["insecure_ssl"] = config.InsecureSSL
	}
	return fields
}

// ListRepoWebhooks returns every webhook configured on a repository.
func (client *Client) ListRepoWebhooks(ctx context.Context, owner, repo string) ([]*Webhook, error) {
	hooks, err := collect(func(options *gh.ListOptions) ([]*Webhook, *gh.Response, error) {
		return client.api.Repositories.ListHooks(ctx, owner, repo, options)
	})
	if err != nil {
		return nil, fmt.Errorf("listing webhooks on %s/%s: %w", owner, repo, err)
	}
	return hooks, nil
}

// CreateRepoWebhook creates a webhook on a repository.
func (client *Client) CreateRepoWebhook(ctx context.Context, owner, repo string, request CreateWebhookRequest) (*Webhook, error) {
	active := true
	if request.Active != nil {
		active = *request.Active
	}
	hook, _, err := client.api.Repositories.CreateHook(ctx, owner, repo, &gh.Hook{
		Events: request.Events,
		Active: gh.Bool(active),
		Config: request.Config.fields(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating webhook on %s/%s: %w", owner, repo, convertError(err))
	}
	return hook, nil
}

// DeleteRepoWebhook deletes a repository webhook.
func (client *Client) DeleteRepoWebhook(ctx context.Context, owner, repo string, hookID int64) error {
	if _, err := client.api.Repositories.DeleteHook(ctx, owner, repo, hookID); err != nil {
		return fmt.Errorf("deleting webhook %d on %s/%s: %w", hookID, owner, repo, convertError(err))
	}
	return nil
}

// WebhookURL returns the delivery URL from a webhook's config, or ""
// if the hook has none. The hook's own URL field is its API address,
// not where it delivers.
func WebhookURL(hook *Webhook) string {
	if hook == nil || hook.Config == nil {
		return ""
	}
	deliveryURL, _ := hook.Config["url"].(string)
	return deliveryURL
}
