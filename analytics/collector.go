package analytics

import (
	"context"
	"fmt"
	"time"
)

// DefaultAbnormalRequestCount is the burst length at which events are flagged.
const DefaultAbnormalRequestCount = 10

// PageRequest is the body of POST /api/collect/data.
type PageRequest struct {
	ApplicationToken string `json:"applicationToken" validate:"required,max=64"`
	ApplicationURL   string `json:"applicationUrl" validate:"required,url,max=2048"`
	CookieID         string `json:"cookieId" validate:"required,max=128"`
	CurrentURL       string `json:"currentUrl" validate:"required,max=2048"`
	BeforeURL        string `json:"beforeUrl,omitempty" validate:"max=2048"`
	Referrer         string `json:"referrer,omitempty" validate:"max=2048"`
	Language         string `json:"language,omitempty" validate:"max=35"`
	OSID             string `json:"osId,omitempty" validate:"max=64"`
	ResponseTime     int    `json:"responseTime,omitempty" validate:"gte=0,lte=600000"`
}

// ButtonRequest is the body of POST /api/collect/button.
type ButtonRequest struct {
	ApplicationToken string `json:"applicationToken" validate:"required,max=64"`
	ApplicationURL   string `json:"applicationUrl" validate:"required,url,max=2048"`
	CookieID         string `json:"cookieId" validate:"required,max=128"`
	Name             string `json:"name" validate:"required,max=256"`
	CurrentURL       string `json:"currentUrl" validate:"required,max=2048"`
}

// Publisher receives a notification for every stored event.
type Publisher interface {
	Publish(Notice)
}

// Notice is the realtime message sent after an event is stored.
type Notice struct {
	Type          string `json:"type"`
	ApplicationID int64  `json:"applicationId"`
	CurrentURL    string `json:"currentUrl"`
	Name          string `json:"name,omitempty"`
	Abnormal      bool   `json:"abnormal"`
	Time          string `json:"time"`
}

// Collector turns verified collect requests into stored events.
type Collector struct {
	store     *Store
	publisher Publisher
	threshold int
	now       func() time.Time
	newID     func() string
}

// NewCollector creates a collector. A non-positive threshold uses
// DefaultAbnormalRequestCount; publisher may be nil.
func NewCollector(store *Store, publisher Publisher, threshold int) *Collector {
	if threshold <= 0 {
		threshold = DefaultAbnormalRequestCount
	}
	return &Collector{
		store:     store,
		publisher: publisher,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     newActivityID,
	}
}

func (c *Collector) activity(ctx context.Context, m Measurement, appID int64, cookieID string, now time.Time) (Activity, error) {
	last, err := c.store.LastActivity(ctx, m, appID, cookieID, now.Add(-activityWindow))
	if err != nil {
		return Activity{}, err
	}
	return NextActivity(last, now, c.newID), nil
}

// RecordPage stores a page view for app and reports whether it was flagged abnormal.
func (c *Collector) RecordPage(ctx context.Context, app Application, req *PageRequest, userAgent string) (bool, error) {
	now := c.now()
	act, err := c.activity(ctx, MeasurementData, app.ID, req.CookieID, now)
	if err != nil {
		return false, fmt.Errorf("record page: %w", err)
	}

	osID := req.OSID
	if osID == "" && userAgent != "" {
		osID = ParseOS(userAgent)
	}

	ev := &PageEvent{
		ApplicationID:  app.ID,
		ActivityID:     act.ID,
		CookieID:       req.CookieID,
		CurrentURL:     req.CurrentURL,
		BeforeURL:      req.BeforeURL,
		Referrer:       CleanReferrer(req.Referrer),
		Language:       req.Language,
		OSID:           osID,
		ResponseTimeMs: req.ResponseTime,
		RequestCnt:     act.RequestCnt,
		Timestamp:      now,
	}
	if err := c.store.SavePageEvent(ctx, ev); err != nil {
		return false, err
	}

	abnormal := act.RequestCnt >= c.threshold
	if abnormal {
		if err := c.store.SaveAnomaly(ctx, app.ID, req.CookieID, req.CurrentURL, req.Language, osID, act.RequestCnt, now); err != nil {
			return true, err
		}
	}
	c.publish(Notice{
		Type:          string(MeasurementData),
		ApplicationID: app.ID,
		CurrentURL:    req.CurrentURL,
		Abnormal:      abnormal,
		Time:          now.Format(time.RFC3339),
	})
	return abnormal, nil
}

// RecordButton stores a button click for app and reports whether it was flagged abnormal.
func (c *Collector) RecordButton(ctx context.Context, app Application, req *ButtonRequest) (bool, error) {
	now := c.now()
	act, err := c.activity(ctx, MeasurementButton, app.ID, req.CookieID, now)
	if err != nil {
		return false, fmt.Errorf("record button: %w", err)
	}

	ev := &ButtonEvent{
		ApplicationID: app.ID,
		ActivityID:    act.ID,
		CookieID:      req.CookieID,
		Name:          req.Name,
		CurrentURL:    req.CurrentURL,
		RequestCnt:    act.RequestCnt,
		Timestamp:     now,
	}
	if err := c.store.SaveButtonEvent(ctx, ev); err != nil {
		return false, err
	}

	abnormal := act.RequestCnt >= c.threshold
	if abnormal {
		if err := c.store.SaveAnomaly(ctx, app.ID, req.CookieID, req.CurrentURL, "", "", act.RequestCnt, now); err != nil {
			return true, err
		}
	}
	c.publish(Notice{
		Type:          string(MeasurementButton),
		ApplicationID: app.ID,
		CurrentURL:    req.CurrentURL,
		Name:          req.Name,
		Abnormal:      abnormal,
		Time:          now.Format(time.RFC3339),
	})
	return abnormal, nil
}

func (c *Collector) publish(n Notice) {
	if c.publisher != nil {
		c.publisher.Publish(n)
	}
}
