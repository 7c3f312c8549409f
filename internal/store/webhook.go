package store

import (
	"context"
	"fmt"

	"github.com/roach88/attest/internal/model"
)

// CreateWebhook registers an outbound webhook for an API key.
func (s *Store) CreateWebhook(ctx context.Context, apiKeyID int64, eventType, url string) (model.Webhook, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO webhooks (api_key_id, event_type, url) VALUES (?, ?, ?)`,
		apiKeyID, eventType, url,
	)
	if err != nil {
		return model.Webhook{}, fmt.Errorf("create webhook: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Webhook{}, fmt.Errorf("create webhook: %w", err)
	}
	return model.Webhook{ID: id, APIKeyID: apiKeyID, EventType: eventType, URL: url}, nil
}

// DeleteWebhook removes one webhook, scoped to its owning key.
// Returns ErrNotFound when no such row exists.
func (s *Store) DeleteWebhook(ctx context.Context, id, apiKeyID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM webhooks WHERE id = ? AND api_key_id = ?`,
		id, apiKeyID,
	)
	if err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// WebhooksByEvent lists an API key's webhooks for one event type.
func (s *Store) WebhooksByEvent(ctx context.Context, apiKeyID int64, eventType string) ([]model.Webhook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, api_key_id, event_type, url FROM webhooks
		 WHERE api_key_id = ? AND event_type = ? ORDER BY id ASC`,
		apiKeyID, eventType,
	)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	webhooks := []model.Webhook{}
	for rows.Next() {
		var w model.Webhook
		if err := rows.Scan(&w.ID, &w.APIKeyID, &w.EventType, &w.URL); err != nil {
			return nil, fmt.Errorf("scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhooks: %w", err)
	}
	return webhooks, nil
}
