package model

import (
	"time"
)

// WebhookResource is the resource name carried in a Heroku webhook
type WebhookResource string

const (
	ResourceRelease WebhookResource = "release"
)

// HerokuWebhook represents a Heroku app webhook delivery.
// See https://devcenter.heroku.com/articles/app-webhooks
type HerokuWebhook struct {
	ID          string           `json:"id"`
	Action      string           `json:"action"` // create or update
	Resource    WebhookResource  `json:"resource"`
	Data        HerokuRelease    `json:"data"`
	Actor       *HerokuActor     `json:"actor,omitempty"`
	PublishedAt *time.Time       `json:"published_at,omitempty"`
	Metadata    *WebhookMetadata `json:"webhook_metadata,omitempty"`

	// Fields below are not part of the payload
	DeliveryID string    `json:"-"` // Retrieved from Heroku-Webhook-Id header
	ReceivedAt time.Time `json:"-"`
	RawPayload []byte    `json:"-"`
}

// HerokuActor is the user who triggered the event
type HerokuActor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// WebhookMetadata carries Heroku's delivery bookkeeping
type WebhookMetadata struct {
	Attempt struct {
		ID string `json:"id"`
	} `json:"attempt"`
	Delivery struct {
		ID string `json:"id"`
	} `json:"delivery"`
	Event struct {
		ID      string `json:"id"`
		Include string `json:"include"`
	} `json:"event"`
	Webhook struct {
		ID string `json:"id"`
	} `json:"webhook"`
}

// HerokuRelease is the release object of the Platform API, as embedded in api:release webhooks
type HerokuRelease struct {
	ID          string      `json:"id"`
	Version     int         `json:"version"`
	Status      string      `json:"status"`
	Description string      `json:"description"`
	Current     bool        `json:"current"`
	App         HerokuApp   `json:"app"`
	Slug        *HerokuSlug `json:"slug,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// HerokuApp identifies a Heroku app
type HerokuApp struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HerokuSlug is the slug referenced by a release. Commit fields are only set when
// Heroku includes them or after they are resolved through the Platform API.
type HerokuSlug struct {
	ID                string `json:"id"`
	Commit            string `json:"commit,omitempty"`
	CommitDescription string `json:"commit_description,omitempty"`
}

// IsRelease checks if the webhook is about a release
func (w *HerokuWebhook) IsRelease() bool {
	return w.Resource == ResourceRelease
}

// ReleaseEvent converts the webhook into a release event. The event is not validated.
func (w *HerokuWebhook) ReleaseEvent() *ReleaseEvent {
	event := w.Data.ReleaseEvent()
	event.ReceivedAt = w.ReceivedAt
	return event
}

// ReleaseEvent converts the Platform API release into a release event
func (r *HerokuRelease) ReleaseEvent() *ReleaseEvent {
	event := &ReleaseEvent{
		AppID:           r.App.ID,
		AppName:         r.App.Name,
		Version:         r.Version,
		HerokuReleaseID: r.ID,
		Description:     r.Description,
		Status:          ReleaseStatus(r.Status),
		ReleaseType:     ReleaseTypeFromDescription(r.Description),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Slug != nil {
		event.SlugID = r.Slug.ID
		event.Commit = r.Slug.Commit
		event.CommitDescription = r.Slug.CommitDescription
	}
	return event
}
