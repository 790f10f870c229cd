package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/alohacamp/leadcheck/internal/match"
	"github.com/alohacamp/leadcheck/internal/store"
	"github.com/alohacamp/leadcheck/pkg/airtable"
	"github.com/alohacamp/leadcheck/pkg/hubspot"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	return st, nil
}

// initChecker wires the HubSpot and directory clients into a checker.
// The directory client is optional; without Airtable credentials the
// directory pass reports not-found without calling out.
func initChecker() (*match.Checker, error) {
	if cfg.HubSpot.Token == "" {
		return nil, eris.New("hubspot token is required (LEADCHECK_HUBSPOT_TOKEN)")
	}

	crm := hubspot.NewClient(cfg.HubSpot.Token,
		hubspot.WithBaseURL(cfg.HubSpot.BaseURL),
		hubspot.WithRateLimit(cfg.HubSpot.RateLimitRPS),
	)

	var directory airtable.Client
	if cfg.Airtable.Token != "" && cfg.Airtable.BaseID != "" {
		directory = airtable.NewClient(cfg.Airtable.Token, cfg.Airtable.BaseID,
			airtable.WithBaseURL(cfg.Airtable.BaseURL),
			airtable.WithTable(cfg.Airtable.Table),
		)
	} else {
		zap.L().Info("airtable credentials not set, directory checks disabled")
	}

	th, err := match.LoadThresholds(cfg.Match.ConfigPath)
	if err != nil {
		return nil, eris.Wrap(err, "load thresholds")
	}

	timeout := time.Duration(cfg.HubSpot.TimeoutSecs) * time.Second
	return match.NewChecker(crm, directory, th, timeout), nil
}
