package push

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/edvart/arena-inhouse/internal/engine"
)

// Notifier turns engine events into push notifications.
type Notifier struct {
	service *Service
	log     *logrus.Logger
}

func NewNotifier(service *Service, log *logrus.Logger) *Notifier {
	return &Notifier{service: service, log: log}
}

// Run consumes engine events until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, events <-chan engine.Event) {
	n.log.Info("push notifier started")
	for {
		select {
		case <-ctx.Done():
			n.log.Info("push notifier stopped")
			return
		case ev := <-events:
			n.handleEvent(ctx, ev)
		}
	}
}

func (n *Notifier) handleEvent(ctx context.Context, ev engine.Event) {
	switch e := ev.(type) {
	case engine.MatchCreated:
		n.handleMatchCreated(ctx, e)
	case engine.MatchFinalized:
		n.handleMatchFinalized(ctx, e)
	}
}

func (n *Notifier) handleMatchCreated(ctx context.Context, ev engine.MatchCreated) {
	n.log.Infof("notifying %d players of match %s", len(ev.Participants), ev.DisplayID)

	n.service.SendToUsers(ctx, ev.Participants, NotificationPayload{
		Title: "Match found!",
		Body:  fmt.Sprintf("Match %s on %s is starting its draft.", ev.DisplayID, ev.Map),
		Tag:   "match-created",
		Data: map[string]interface{}{
			"matchID": ev.MatchID,
			"url":     "/",
		},
	})
}

func (n *Notifier) handleMatchFinalized(ctx context.Context, ev engine.MatchFinalized) {
	n.service.SendToUsers(ctx, ev.Participants, NotificationPayload{
		Title: "Match result is in",
		Body:  fmt.Sprintf("Team %d won match %s.", ev.WinnerTeam, ev.DisplayID),
		Tag:   "match-finalized",
		Data: map[string]interface{}{
			"matchID": ev.MatchID,
			"url":     "/",
		},
	})
}
