// Package events dispatches outbound notifications. The next-fight
// announcement is fire-and-forget: the reconciler must never fail a pass
// because a broker is down.
package events

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/metrics"
)

// DefaultCooldown is how long a fight's next-up announcement suppresses
// repeats. Late polls and duplicate completion edges within this window
// produce one message.
const DefaultCooldown = 30 * time.Minute

// Publisher publishes next-fight messages
type Publisher interface {
	PublishNextFight(ctx context.Context, msg *kafka.NextFightMessage) error
}

// Cooldown guards against repeat announcements for the same fight
type Cooldown interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
}

// Notifier publishes next-fight announcements with a per-fight cooldown
type Notifier struct {
	publisher Publisher
	cooldown  Cooldown
	window    time.Duration
	logger    ectologger.Logger
}

// NewNotifier creates a notifier. A window of 0 uses DefaultCooldown.
func NewNotifier(publisher Publisher, cooldown Cooldown, window time.Duration, logger ectologger.Logger) *Notifier {
	if window <= 0 {
		window = DefaultCooldown
	}
	return &Notifier{
		publisher: publisher,
		cooldown:  cooldown,
		window:    window,
		logger:    logger,
	}
}

// NotifyNextFightStarting announces the fight as next up. At most one
// message per fight per cooldown window, cluster-wide.
func (n *Notifier) NotifyNextFightStarting(ctx context.Context, fightID uuid.UUID, fighterAName, fighterBName string) error {
	key := "notify:next_up:" + fightID.String()
	acquired, err := n.cooldown.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), n.window)
	if err != nil {
		// Cooldown unavailable: announce anyway, a duplicate beats silence.
		n.logger.WithContext(ctx).WithError(err).Warn("Notification cooldown check failed, publishing anyway")
	} else if !acquired {
		metrics.NotificationsTotal.WithLabelValues("suppressed").Inc()
		n.logger.WithContext(ctx).WithFields(map[string]any{
			"fight_id": fightID,
		}).Debug("Next-fight notification suppressed by cooldown")
		return nil
	}

	msg := &kafka.NextFightMessage{
		FightID:      fightID.String(),
		FighterAName: fighterAName,
		FighterBName: fighterBName,
	}
	if err := n.publisher.PublishNextFight(ctx, msg); err != nil {
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		return err
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	n.logger.WithContext(ctx).WithFields(map[string]any{
		"fight_id": fightID,
	}).Infof("Announced next fight: %s vs %s", fighterAName, fighterBName)
	return nil
}
