// Package announce delivers call announcements to the external display/audio
// system. Announcements are fire-and-forget: the serving state has already
// committed, so delivery failures are logged and dropped.
package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (w *Webhook) Announce(ticketNumber int, windowName string) {
	go func() {
		payload := map[string]interface{}{
			"ticket_number": ticketNumber,
			"window_name":   windowName,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			log.Printf("announce marshal: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			log.Printf("announce request: %v", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := w.client.Do(req)
		if err != nil {
			log.Printf("announce ticket %d at %s: %v", ticketNumber, windowName, err)
			return
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Printf("announce ticket %d at %s: status %d", ticketNumber, windowName, resp.StatusCode)
		}
	}()
}

// Log announces to the process log only; used when no announcement endpoint
// is configured.
type Log struct{}

func (Log) Announce(ticketNumber int, windowName string) {
	log.Printf("announce ticket %d at %s", ticketNumber, windowName)
}
