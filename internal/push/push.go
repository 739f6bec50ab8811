package push

import (
	"context"
	"encoding/json"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"

	"github.com/edvart/arena-inhouse/internal/store"
)

// Service delivers web push notifications to stored subscriptions.
type Service struct {
	store        store.Store
	log          *logrus.Logger
	vapidPublic  string
	vapidPrivate string
	vapidSubject string
}

// Config holds the VAPID key pair and contact subject.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string // mailto:your-email@example.com
}

func NewService(st store.Store, cfg Config, log *logrus.Logger) *Service {
	return &Service{
		store:        st,
		log:          log,
		vapidPublic:  cfg.VAPIDPublicKey,
		vapidPrivate: cfg.VAPIDPrivateKey,
		vapidSubject: cfg.VAPIDSubject,
	}
}

// NotificationPayload is the JSON handed to the service worker.
type NotificationPayload struct {
	Title string                 `json:"title"`
	Body  string                 `json:"body"`
	Icon  string                 `json:"icon,omitempty"`
	Badge string                 `json:"badge,omitempty"`
	Data  map[string]interface{} `json:"data,omitempty"`
	Tag   string                 `json:"tag,omitempty"`
}

// SendToUser pushes the payload to every subscription a user holds.
// Subscriptions the push service reports gone are pruned on the way.
func (s *Service) SendToUser(ctx context.Context, userID string, payload NotificationPayload) error {
	subs, err := s.store.GetPushSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("get subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	sent := 0
	for _, sub := range subs {
		resp, err := webpush.SendNotification(body, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}, &webpush.Options{
			Subscriber:      s.vapidSubject,
			VAPIDPublicKey:  s.vapidPublic,
			VAPIDPrivateKey: s.vapidPrivate,
			TTL:             60,
		})
		if err != nil {
			s.log.Warnf("push to %s failed: %v", sub.Endpoint, err)
			lastErr = err
			continue
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == 410 || resp.StatusCode == 404:
			// The push service no longer knows this subscription.
			s.log.Infof("pruning dead push subscription %s", sub.Endpoint)
			if err := s.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
				s.log.Warnf("delete subscription: %v", err)
			}
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			lastErr = fmt.Errorf("push status %d", resp.StatusCode)
			s.log.Warnf("push to %s returned %d", sub.Endpoint, resp.StatusCode)
		default:
			sent++
		}
	}

	if sent > 0 || lastErr == nil {
		return nil
	}
	return lastErr
}

// SendToUsers fans a payload out to many users without blocking the
// caller.
func (s *Service) SendToUsers(ctx context.Context, userIDs []string, payload NotificationPayload) {
	for _, id := range userIDs {
		go func(id string) {
			if err := s.SendToUser(ctx, id, payload); err != nil {
				s.log.Warnf("push to user %s: %v", id, err)
			}
		}(id)
	}
}

// PublicKey returns the VAPID public key clients subscribe with.
func (s *Service) PublicKey() string {
	return s.vapidPublic
}
