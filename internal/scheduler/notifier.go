package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/attest/internal/model"
	"github.com/roach88/attest/internal/store"
)

// Notifier delivers run results to the owning key's webhooks.
// Delivery is best-effort: failures are logged and the remaining hooks are
// still attempted; there is no retry queue.
type Notifier struct {
	store *store.Store
	http  *http.Client
	log   *slog.Logger
}

// NewNotifier creates a Notifier with the given delivery timeout.
func NewNotifier(st *store.Store, timeout time.Duration, log *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		store: st,
		http:  &http.Client{Timeout: timeout},
		log:   log,
	}
}

// runEvent is the webhook payload for a completed run. Summary is the sum
// of the per-flow summaries.
type runEvent struct {
	Event       string        `json:"event"`
	ChecklistID int64         `json:"checklistId"`
	Summary     model.Summary `json:"summary"`
	Flows       []model.Flow  `json:"flows"`
}

// RunCompleted posts a checklist.run event to every matching webhook of the
// checklist's owning key.
func (n *Notifier) RunCompleted(ctx context.Context, checklist model.Checklist, flows []model.Flow) {
	hooks, err := n.store.WebhooksByEvent(ctx, checklist.APIKeyID, model.EventChecklistRun)
	if err != nil {
		n.log.Error("load webhooks", "checklist", checklist.ID, "error", err)
		return
	}
	if len(hooks) == 0 {
		return
	}

	event := runEvent{
		Event:       model.EventChecklistRun,
		ChecklistID: checklist.ID,
		Flows:       flows,
	}
	for _, f := range flows {
		event.Summary.Match += f.Summary.Match
		event.Summary.Miss += f.Summary.Miss
		event.Summary.New += f.Summary.New
	}

	body, err := json.Marshal(event)
	if err != nil {
		n.log.Error("encode webhook payload", "checklist", checklist.ID, "error", err)
		return
	}

	for _, hook := range hooks {
		if err := n.deliver(ctx, hook, body); err != nil {
			n.log.Warn("webhook delivery failed",
				"webhook", hook.ID, "url", hook.URL, "error", err)
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, hook model.Webhook, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
