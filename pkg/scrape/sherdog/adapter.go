// Package sherdog adapts the Sherdog event feed. Sherdog has no explicit
// event-started flag, so the snapshot derives it from the bouts themselves.
package sherdog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/httpclient"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// Family is the source family key for this adapter
const Family = "sherdog"

// DefaultInterval is the poll cadence for sherdog feeds
const DefaultInterval = 60 * time.Second

type feed struct {
	Event struct {
		Status string `json:"status"`
		Fights []struct {
			Order      int    `json:"order"`
			Fighter1   string `json:"fighter1_name"`
			Fighter2   string `json:"fighter2_name"`
			TitleFight bool   `json:"title_fight"`
			Status     string `json:"status"`
			WinnerName string `json:"winner_name"`
			WinMethod  string `json:"win_method"`
			WinRound   int    `json:"win_round"`
			WinTime    string `json:"win_time"`
		} `json:"fights"`
	} `json:"event"`
}

// Adapter fetches and normalizes sherdog feeds
type Adapter struct {
	client *httpclient.Client
	logger ectologger.Logger
}

// NewAdapter creates a new sherdog adapter
func NewAdapter(client *httpclient.Client, logger ectologger.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Family returns the source family key
func (a *Adapter) Family() string { return Family }

// DefaultInterval returns the poll cadence
func (a *Adapter) DefaultInterval() time.Duration { return DefaultInterval }

// FetchSnapshot fetches the feed and normalizes it into a Snapshot. Sherdog
// orders fights chronologically already; its order field is the position.
func (a *Adapter) FetchSnapshot(ctx context.Context, url string) (*models.Snapshot, error) {
	var f feed
	if err := a.client.GetJSON(ctx, url, &f); err != nil {
		return nil, fmt.Errorf("sherdog fetch failed: %w", err)
	}

	snapshot := &models.Snapshot{
		SourceFamily: Family,
		SourceURL:    url,
		EventDone:    strings.EqualFold(f.Event.Status, "finished"),
		Fights:       make([]models.FightObservation, 0, len(f.Event.Fights)),
	}

	for _, fight := range f.Event.Fights {
		nameA := strings.TrimSpace(fight.Fighter1)
		nameB := strings.TrimSpace(fight.Fighter2)
		if nameA == "" || nameB == "" {
			a.logger.WithContext(ctx).Debugf("Skipping bout %d with missing fighter name", fight.Order)
			continue
		}

		obs := models.FightObservation{
			FighterAName: nameA,
			FighterBName: nameB,
			IsTitleFight: fight.TitleFight,
			Status:       normalizeStatus(fight.Status),
		}
		if fight.Order > 0 {
			order := fight.Order
			obs.Position = &order
		}
		if obs.Status == models.FightStatusCompleted {
			if fight.WinnerName != "" {
				winner := strings.TrimSpace(fight.WinnerName)
				obs.WinnerName = &winner
			}
			if fight.WinMethod != "" {
				method := fight.WinMethod
				obs.Method = &method
			}
			if fight.WinRound > 0 {
				round := fight.WinRound
				obs.ResultRound = &round
			}
			if fight.WinTime != "" {
				winTime := fight.WinTime
				obs.ResultTime = &winTime
			}
		}

		snapshot.Fights = append(snapshot.Fights, obs)
	}

	// No explicit started flag: the event has started once any bout is live
	// or done.
	for _, obs := range snapshot.Fights {
		if obs.Status == models.FightStatusLive || obs.Status == models.FightStatusCompleted {
			snapshot.EventStarted = true
			break
		}
	}
	if snapshot.EventDone {
		snapshot.EventStarted = true
	}

	return snapshot, nil
}

func normalizeStatus(status string) models.FightStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "live", "in progress":
		return models.FightStatusLive
	case "finished", "final", "completed":
		return models.FightStatusCompleted
	default:
		return models.FightStatusUpcoming
	}
}
