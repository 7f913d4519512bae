package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	herokucontroller "github.com/m-mizutani/herald/pkg/controller/heroku"
	controller "github.com/m-mizutani/herald/pkg/controller/http"
	"github.com/m-mizutani/herald/pkg/domain/model"
	"github.com/m-mizutani/herald/pkg/domain/types"
	githubinfra "github.com/m-mizutani/herald/pkg/infra/github"
	"github.com/m-mizutani/herald/pkg/repository"
	"github.com/m-mizutani/herald/pkg/usecase"
)

// generateSignature generates the Heroku-Webhook-Hmac-SHA256 value for testing
func generateSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

type mockProcessor struct {
	processFunc func(ctx context.Context, hook *model.HerokuWebhook) (*model.SyncResult, error)
}

func (m *mockProcessor) ProcessEvent(ctx context.Context, hook *model.HerokuWebhook) (*model.SyncResult, error) {
	if m.processFunc != nil {
		return m.processFunc(ctx, hook)
	}
	return &model.SyncResult{Action: model.SyncActionSkipped}, nil
}

type mockArchiver struct {
	mu   sync.Mutex
	keys []string
	done chan struct{}
}

func (m *mockArchiver) Archive(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	m.keys = append(m.keys, key)
	m.mu.Unlock()
	close(m.done)
	return nil
}

const releasePayload = `{
	"id": "7b4a4d2c-0000-4000-8000-000000000001",
	"action": "update",
	"resource": "release",
	"data": {
		"id": "c1b0a4e6-0000-4000-8000-000000000002",
		"version": 42,
		"status": "succeeded",
		"description": "Deploy 1a2b3c4d",
		"current": true,
		"app": {"id": "01234567-89ab-cdef-0123-456789abcdef", "name": "acme-web"},
		"created_at": "2025-01-02T15:04:05Z",
		"updated_at": "2025-01-02T15:04:35Z"
	}
}`

func TestWebhookHandler_SignatureVerification(t *testing.T) {
	secret := "test-secret"
	handler := controller.NewWebhookHandler(secret, &mockProcessor{}, nil)

	tests := []struct {
		name           string
		signature      string
		wantStatusCode int
	}{
		{
			name:           "Valid signature",
			signature:      generateSignature(secret, []byte(releasePayload)),
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "Invalid signature",
			signature:      "invalid",
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "Signed with other secret",
			signature:      generateSignature("other-secret", []byte(releasePayload)),
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "Missing signature",
			signature:      "",
			wantStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/hooks/heroku/release", bytes.NewReader([]byte(releasePayload)))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Heroku-Webhook-Id", "test-delivery")
			if tt.signature != "" {
				req.Header.Set("Heroku-Webhook-Hmac-SHA256", tt.signature)
			}

			w := httptest.NewRecorder()
			handler.Handle(w, req)

			gt.Value(t, w.Code).Equal(tt.wantStatusCode)
		})
	}
}

func TestWebhookHandler_NoSecretSkipsVerification(t *testing.T) {
	handler := controller.NewWebhookHandler("", &mockProcessor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/hooks/heroku/release", bytes.NewReader([]byte(releasePayload)))
	w := httptest.NewRecorder()
	handler.Handle(w, req)

	gt.Value(t, w.Code).Equal(http.StatusOK)
}

func TestWebhookHandler_EventParsing(t *testing.T) {
	var received *model.HerokuWebhook
	processor := &mockProcessor{
		processFunc: func(ctx context.Context, hook *model.HerokuWebhook) (*model.SyncResult, error) {
			received = hook
			return &model.SyncResult{Action: model.SyncActionCreated, TagName: "v42"}, nil
		},
	}
	handler := controller.NewWebhookHandler("", processor, nil)

	req := httptest.NewRequest(http.MethodPost, "/hooks/heroku/release", bytes.NewReader([]byte(releasePayload)))
	req.Header.Set("Heroku-Webhook-Id", "delivery-1")
	w := httptest.NewRecorder()
	handler.Handle(w, req)

	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.NotNil(t, received)
	gt.Value(t, received.DeliveryID).Equal("delivery-1")
	gt.Value(t, received.Resource).Equal(model.ResourceRelease)
	gt.Value(t, received.Data.Version).Equal(42)
	gt.Value(t, received.Data.Status).Equal("succeeded")
	gt.Value(t, received.Data.App.Name).Equal("acme-web")
	gt.Value(t, string(received.RawPayload)).Equal(releasePayload)
	gt.False(t, received.ReceivedAt.IsZero())

	var response map[string]string
	gt.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	gt.Value(t, response["status"]).Equal("success")
	gt.Value(t, response["action"]).Equal("created")
	gt.Value(t, response["tag"]).Equal("v42")
}

func TestWebhookHandler_GeneratesDeliveryID(t *testing.T) {
	var received *model.HerokuWebhook
	processor := &mockProcessor{
		processFunc: func(ctx context.Context, hook *model.HerokuWebhook) (*model.SyncResult, error) {
			received = hook
			return &model.SyncResult{Action: model.SyncActionSkipped}, nil
		},
	}
	handler := controller.NewWebhookHandler("", processor, nil)

	req := httptest.NewRequest(http.MethodPost, "/hooks/heroku/release", bytes.NewReader([]byte(releasePayload)))
	w := httptest.NewRecorder()
	handler.Handle(w, req)

	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.NotNil(t, received)
	gt.Number(t, len(received.DeliveryID)).Equal(36)
}

func TestWebhookHandler_ErrorStatus(t *testing.T) {
	tests := []struct {
		name           string
		payload        string
		err            error
		wantStatusCode int
	}{
		{
			name:           "malformed JSON",
			payload:        `{"resource":`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "invalid payload",
			payload:        releasePayload,
			err:            goerr.New("unknown status", goerr.T(types.ErrTagInvalidPayload)),
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "internal error",
			payload:        releasePayload,
			err:            goerr.New("firestore is down"),
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := &mockProcessor{
				processFunc: func(ctx context.Context, hook *model.HerokuWebhook) (*model.SyncResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &model.SyncResult{Action: model.SyncActionSkipped}, nil
				},
			}
			handler := controller.NewWebhookHandler("", processor, nil)

			req := httptest.NewRequest(http.MethodPost, "/hooks/heroku/release", bytes.NewReader([]byte(tt.payload)))
			w := httptest.NewRecorder()
			handler.Handle(w, req)

			gt.Value(t, w.Code).Equal(tt.wantStatusCode)

			var response map[string]string
			gt.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			gt.True(t, response["error"] != "")
		})
	}
}

func TestWebhookHandler_PayloadTooLarge(t *testing.T) {
	handler := controller.NewWebhookHandler("", &mockProcessor{}, nil)

	payload := bytes.Repeat([]byte("a"), 1<<20+1)
	req := httptest.NewRequest(http.MethodPost, "/hooks/heroku/release", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handler.Handle(w, req)

	gt.Value(t, w.Code).Equal(http.StatusRequestEntityTooLarge)
}

func TestWebhookHandler_Archive(t *testing.T) {
	archiver := &mockArchiver{done: make(chan struct{})}
	handler := controller.NewWebhookHandler("", &mockProcessor{}, archiver)

	req := httptest.NewRequest(http.MethodPost, "/hooks/heroku/release", bytes.NewReader([]byte(releasePayload)))
	w := httptest.NewRecorder()
	handler.Handle(w, req)
	gt.Value(t, w.Code).Equal(http.StatusOK)

	select {
	case <-archiver.done:
	case <-time.After(3 * time.Second):
		t.Fatal("payload was not archived")
	}

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	gt.Number(t, len(archiver.keys)).Equal(1)
	gt.True(t, strings.HasPrefix(archiver.keys[0], "heroku/acme-web/42/"))
}

func TestWebhookHandler_Integration(t *testing.T) {
	ctx := context.Background()
	secret := "integration-test-secret"

	var mu sync.Mutex
	created := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/web/releases/tags/v42", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if created == 0 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       1,
			"tag_name": "v42",
			"html_url": "https://github.com/acme/web/releases/tag/v42",
		})
	})
	mux.HandleFunc("POST /repos/acme/web/releases", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		created++
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       1,
			"tag_name": "v42",
			"html_url": "https://github.com/acme/web/releases/tag/v42",
		})
	})
	githubServer := httptest.NewServer(mux)
	defer githubServer.Close()

	githubClient, err := githubinfra.NewClient("test-token", githubinfra.WithBaseURL(githubServer.URL))
	gt.NoError(t, err)

	releaseUC := usecase.NewRelease(repository.NewMemory(), githubClient, &model.RepoMapping{
		Default: model.GitHubRepo{Owner: "acme", Repo: "web"},
	})

	server, err := controller.NewServer(
		ctx,
		herokucontroller.NewEventProcessor(releaseUC),
		controller.WithAddr("localhost:0"),
		controller.WithWebhookSecret(secret),
	)
	gt.NoError(t, err)

	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	send := func() map[string]string {
		payload := []byte(releasePayload)
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/hooks/heroku/release", bytes.NewReader(payload))
		gt.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Heroku-Webhook-Id", "integration-test")
		req.Header.Set("Heroku-Webhook-Hmac-SHA256", generateSignature(secret, payload))

		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err)
		defer func() {
			_ = resp.Body.Close()
		}()
		gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

		var body map[string]string
		gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		return body
	}

	first := send()
	gt.Value(t, first["action"]).Equal("created")
	gt.Value(t, first["tag"]).Equal("v42")

	// redelivery of the same event does not create another release
	second := send()
	gt.Value(t, second["action"]).Equal("skipped")

	mu.Lock()
	defer mu.Unlock()
	gt.Number(t, created).Equal(1)
}
