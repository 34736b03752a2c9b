// Package ufcstats adapts the UFC Stats live event feed. The feed lists
// bouts main event first; positions are normalized to ascend
// chronologically, opener first.
package ufcstats

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
const Family = "ufcstats"

// DefaultInterval is the poll cadence for ufcstats feeds
const DefaultInterval = 30 * time.Second

// feed is the wire shape of the UFC Stats live event endpoint
type feed struct {
	LiveEventDetail struct {
		EventStarted bool   `json:"EventStarted"`
		EventDone    bool   `json:"EventComplete"`
		FightCard    []bout `json:"FightCard"`
	} `json:"LiveEventDetail"`
}

type bout struct {
	FightID      int64  `json:"FightId"`
	CardSegment  string `json:"CardSegment"`
	TitleFight   bool   `json:"TitleFight"`
	Status       string `json:"Status"`
	CurrentRound int    `json:"CurrentRound"`
	Fighters     []struct {
		Name struct {
			First string `json:"FirstName"`
			Last  string `json:"LastName"`
		} `json:"Name"`
		Outcome string `json:"Outcome"`
	} `json:"Fighters"`
	Result struct {
		Method     string `json:"Method"`
		EndingTime string `json:"EndingTime"`
		EndRound   int    `json:"EndingRound"`
	} `json:"Result"`
}

// Adapter fetches and normalizes ufcstats feeds
type Adapter struct {
	client *httpclient.Client
	logger ectologger.Logger
}

// NewAdapter creates a new ufcstats adapter
func NewAdapter(client *httpclient.Client, logger ectologger.Logger) *Adapter {
	return &Adapter{client: client, logger: logger}
}

// Family returns the source family key
func (a *Adapter) Family() string { return Family }

// DefaultInterval returns the poll cadence
func (a *Adapter) DefaultInterval() time.Duration { return DefaultInterval }

// FetchSnapshot fetches the feed and normalizes it into a Snapshot. Bouts
// without two named fighters are dropped; a feed slot with a TBD opponent is
// not an observable fight yet.
func (a *Adapter) FetchSnapshot(ctx context.Context, url string) (*models.Snapshot, error) {
	var f feed
	if err := a.client.GetJSON(ctx, url, &f); err != nil {
		return nil, fmt.Errorf("ufcstats fetch failed: %w", err)
	}

	detail := f.LiveEventDetail
	snapshot := &models.Snapshot{
		SourceFamily: Family,
		SourceURL:    url,
		EventStarted: detail.EventStarted,
		EventDone:    detail.EventDone,
		Fights:       make([]models.FightObservation, 0, len(detail.FightCard)),
	}

	total := len(detail.FightCard)
	for i, b := range detail.FightCard {
		obs, ok := a.normalizeBout(ctx, b)
		if !ok {
			continue
		}
		// Feed order is main event first; flip it so position 1 opens the card.
		position := total - i
		obs.Position = &position
		snapshot.Fights = append(snapshot.Fights, *obs)
	}

	return snapshot, nil
}

func (a *Adapter) normalizeBout(ctx context.Context, b bout) (*models.FightObservation, bool) {
	if len(b.Fighters) != 2 {
		a.logger.WithContext(ctx).Debugf("Skipping bout %d with %d fighters", b.FightID, len(b.Fighters))
		return nil, false
	}

	nameA := fullName(b.Fighters[0].Name.First, b.Fighters[0].Name.Last)
	nameB := fullName(b.Fighters[1].Name.First, b.Fighters[1].Name.Last)
	if nameA == "" || nameB == "" {
		return nil, false
	}

	externalID := fmt.Sprintf("%d", b.FightID)
	obs := &models.FightObservation{
		FighterAName: nameA,
		FighterBName: nameB,
		ExternalID:   &externalID,
		Section:      normalizeSection(b.CardSegment),
		IsTitleFight: b.TitleFight,
		Status:       normalizeStatus(b.Status),
	}

	if b.CurrentRound > 0 && obs.Status == models.FightStatusLive {
		round := b.CurrentRound
		obs.CurrentRound = &round
	}

	if obs.Status == models.FightStatusCompleted {
		if b.Result.Method != "" {
			method := b.Result.Method
			obs.Method = &method
		}
		if b.Result.EndRound > 0 {
			round := b.Result.EndRound
			obs.ResultRound = &round
			completed := b.Result.EndRound
			obs.CompletedRounds = &completed
		}
		if b.Result.EndingTime != "" {
			endTime := b.Result.EndingTime
			obs.ResultTime = &endTime
		}
		for i, fighter := range b.Fighters {
			if strings.EqualFold(fighter.Outcome, "win") {
				winner := fullName(b.Fighters[i].Name.First, b.Fighters[i].Name.Last)
				obs.WinnerName = &winner
				break
			}
		}
	}

	return obs, true
}

func fullName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func normalizeStatus(status string) models.FightStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "inprogress", "in progress", "live":
		return models.FightStatusLive
	case "final", "finalized", "complete", "completed":
		return models.FightStatusCompleted
	default:
		return models.FightStatusUpcoming
	}
}

func normalizeSection(segment string) *models.CardSection {
	var section models.CardSection
	switch strings.ToLower(strings.TrimSpace(segment)) {
	case "main", "main card":
		section = models.CardSectionMain
	case "prelims", "prelim":
		section = models.CardSectionPrelim
	case "early prelims", "early prelim":
		section = models.CardSectionEarlyPrelim
	default:
		return nil
	}
	return &section
}
