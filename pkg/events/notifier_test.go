package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/kafka"
)

type fakePublisher struct {
	messages []*kafka.NextFightMessage
	err      error
}

func (p *fakePublisher) PublishNextFight(_ context.Context, msg *kafka.NextFightMessage) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type fakeCooldown struct {
	keys map[string]bool
	err  error
}

func (c *fakeCooldown) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	if c.keys == nil {
		c.keys = make(map[string]bool)
	}
	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	return true, nil
}

func testNotifier(publisher *fakePublisher, cooldown *fakeCooldown) *Notifier {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return NewNotifier(publisher, cooldown, time.Minute, logger)
}

func TestNotify_PublishesOncePerCooldownWindow(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := testNotifier(publisher, &fakeCooldown{})
	fightID := uuid.New()

	require.NoError(t, notifier.NotifyNextFightStarting(context.Background(), fightID, "Alex Pereira", "Magomed Ankalaev"))
	require.NoError(t, notifier.NotifyNextFightStarting(context.Background(), fightID, "Alex Pereira", "Magomed Ankalaev"))

	require.Len(t, publisher.messages, 1)
	assert.Equal(t, fightID.String(), publisher.messages[0].FightID)
	assert.Equal(t, "Alex Pereira", publisher.messages[0].FighterAName)
}

func TestNotify_DistinctFightsBothAnnounced(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := testNotifier(publisher, &fakeCooldown{})

	require.NoError(t, notifier.NotifyNextFightStarting(context.Background(), uuid.New(), "A", "B"))
	require.NoError(t, notifier.NotifyNextFightStarting(context.Background(), uuid.New(), "C", "D"))
	assert.Len(t, publisher.messages, 2)
}

func TestNotify_PublishesWhenCooldownUnavailable(t *testing.T) {
	publisher := &fakePublisher{}
	notifier := testNotifier(publisher, &fakeCooldown{err: errors.New("redis down")})

	require.NoError(t, notifier.NotifyNextFightStarting(context.Background(), uuid.New(), "A", "B"))
	assert.Len(t, publisher.messages, 1)
}

func TestNotify_PublishErrorPropagates(t *testing.T) {
	publisher := &fakePublisher{err: errors.New("broker down")}
	notifier := testNotifier(publisher, &fakeCooldown{})

	err := notifier.NotifyNextFightStarting(context.Background(), uuid.New(), "A", "B")
	assert.Error(t, err)
}
