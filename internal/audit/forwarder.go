package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Forwarder отправляет события журнала во внешний коллектор по HTTP.
// Доставка best effort: неудача логируется и не влияет на операцию.
type Forwarder struct {
	baseURL string
	client  *retryablehttp.Client
	logger  *zap.Logger
}

// NewForwarder создаёт Forwarder для коллектора по указанному адресу.
func NewForwarder(baseURL string, logger *zap.Logger) *Forwarder {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil

	return &Forwarder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger,
	}
}

// Record отправляет событие коллектору.
func (f *Forwarder) Record(ctx context.Context, e Event) {
	if err := f.send(ctx, e); err != nil {
		f.logger.Error("forward audit event",
			zap.Error(err),
			zap.String("eventType", string(e.Type)),
		)
	}
}

func (f *Forwarder) send(ctx context.Context, e Event) error {
	base := f.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, base+"/api/events", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return nil
}
