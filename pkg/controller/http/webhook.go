package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/herald/pkg/domain/interfaces"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/m-mizutani/herald/pkg/domain/types"
	"github.com/m-mizutani/herald/pkg/utils/async"
)

const maxPayloadSize = 1 << 20

// WebhookHandler handles Heroku app webhooks
type WebhookHandler struct {
	secret    string
	processor interfaces.WebhookProcessor
	archiver  interfaces.PayloadArchiver
}

// NewWebhookHandler creates a new WebhookHandler. archiver may be nil.
func NewWebhookHandler(secret string, processor interfaces.WebhookProcessor, archiver interfaces.PayloadArchiver) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		processor: processor,
		archiver:  archiver,
	}
}

// Handle processes webhook requests
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadSize+1))
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if len(body) > maxPayloadSize {
		writeError(ctx, w, goerr.New("payload too large"), http.StatusRequestEntityTooLarge)
		return
	}

	if h.secret != "" && !h.verifySignature(body, r.Header.Get("Heroku-Webhook-Hmac-SHA256")) {
		logger.Warn("Invalid webhook signature")
		writeError(ctx, w, goerr.New("invalid signature"), http.StatusUnauthorized)
		return
	}

	var hook model.HerokuWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		logger.Warn("Failed to parse webhook payload", "error", err)
		writeError(ctx, w, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
		return
	}
	hook.DeliveryID = r.Header.Get("Heroku-Webhook-Id")
	if hook.DeliveryID == "" {
		hook.DeliveryID = uuid.NewString()
	}
	hook.ReceivedAt = time.Now()
	hook.RawPayload = body

	ctx = ctxlog.With(ctx, logger.With("delivery_id", hook.DeliveryID))
	h.archive(ctx, &hook)

	result, err := h.processor.ProcessEvent(ctx, &hook)
	if err != nil {
		if goerr.HasTag(err, types.ErrTagInvalidPayload) {
			ctxlog.From(ctx).Warn("Rejected webhook payload", "error", err)
			writeError(ctx, w, err, http.StatusBadRequest)
			return
		}
		ctxlog.From(ctx).Error("Failed to process webhook event", "error", err)
		writeError(ctx, w, err, http.StatusInternalServerError)
		return
	}

	resp := map[string]string{
		"status": "success",
		"action": string(result.Action),
	}
	if result.TagName != "" {
		resp["tag"] = result.TagName
	}
	if result.Reason != "" {
		resp["reason"] = result.Reason
	}
	if result.URL != "" {
		resp["url"] = result.URL
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// archive stores the raw payload in the background
func (h *WebhookHandler) archive(ctx context.Context, hook *model.HerokuWebhook) {
	if h.archiver == nil {
		return
	}

	app := hook.Data.App.Name
	if app == "" {
		app = "unknown"
	}
	key := fmt.Sprintf("heroku/%s/%d/%d.json", app, hook.Data.Version, hook.ReceivedAt.UnixNano())
	payload := hook.RawPayload

	async.Dispatch(ctx, func(ctx context.Context) error {
		return h.archiver.Archive(ctx, key, payload)
	})
}

// verifySignature checks the base64 encoded HMAC-SHA256 of the body
func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	expectedMAC := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedMAC))
}
