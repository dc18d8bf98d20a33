package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pribylovaa/metrics-tracker/internal/models"
)

// subcommand делит "teams create -name x" на "create" и флаги.
func subcommand(name string, args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: %s: want list|create|update|delete", errUsage, name)
	}

	switch args[0] {
	case "list", "create", "update", "delete":
		return args[0], args[1:], nil
	default:
		return "", nil, fmt.Errorf("%w: %s: unknown subcommand %q", errUsage, name, args[0])
	}
}

func needID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s: -id is required", errUsage, name)
	}

	return nil
}

func cmdTeams(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand("teams", args)
	if err != nil {
		return err
	}

	name := "teams " + sub
	fs := a.flags(name)
	id := fs.Int64("id", 0, "team id")

	switch sub {
	case "list":
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		teams, err := a.cl.API.Teams(ctx)
		if err != nil {
			return err
		}
		return a.print(teams)

	case "delete":
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		if err := needID(name, *id); err != nil {
			return err
		}
		return a.cl.API.DeleteTeam(ctx, *id)
	}

	title := fs.String("name", "", "team name")
	desc := fs.String("description", "", "team description")
	if err := a.parse(fs, rest); err != nil {
		return err
	}
	if err := required(fs, "name"); err != nil {
		return err
	}

	in := models.Team{Name: *title, Description: *desc}

	var out *models.Team
	if sub == "create" {
		out, err = a.cl.API.CreateTeam(ctx, in)
	} else {
		if err := needID(name, *id); err != nil {
			return err
		}
		out, err = a.cl.API.UpdateTeam(ctx, *id, in)
	}
	if err != nil {
		return err
	}

	return a.print(out)
}

func cmdMetrics(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand("metrics", args)
	if err != nil {
		return err
	}

	name := "metrics " + sub
	fs := a.flags(name)
	id := fs.Int64("id", 0, "metric id")

	switch sub {
	case "list":
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		ms, err := a.cl.API.Metrics(ctx)
		if err != nil {
			return err
		}
		return a.print(ms)

	case "delete":
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		if err := needID(name, *id); err != nil {
			return err
		}
		return a.cl.API.DeleteMetric(ctx, *id)
	}

	title := fs.String("name", "", "metric name")
	desc := fs.String("description", "", "metric description")
	target := fs.Float64("target", 0, "target value")
	if err := a.parse(fs, rest); err != nil {
		return err
	}
	if err := required(fs, "name"); err != nil {
		return err
	}

	in := models.Metric{Name: *title, Description: *desc, Target: *target}

	var out *models.Metric
	if sub == "create" {
		out, err = a.cl.API.CreateMetric(ctx, in)
	} else {
		if err := needID(name, *id); err != nil {
			return err
		}
		out, err = a.cl.API.UpdateMetric(ctx, *id, in)
	}
	if err != nil {
		return err
	}

	return a.print(out)
}

func cmdRecords(ctx context.Context, a *app, args []string) error {
	sub, rest, err := subcommand("records", args)
	if err != nil {
		return err
	}

	name := "records " + sub
	fs := a.flags(name)
	id := fs.Int64("id", 0, "record id")

	switch sub {
	case "list":
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		rs, err := a.cl.API.Records(ctx)
		if err != nil {
			return err
		}
		return a.print(rs)

	case "delete":
		if err := a.parse(fs, rest); err != nil {
			return err
		}
		if err := needID(name, *id); err != nil {
			return err
		}
		return a.cl.API.DeleteRecord(ctx, *id)
	}

	metric := fs.Int64("metric", 0, "metric id")
	team := fs.Int64("team", 0, "team id")
	value := fs.Float64("value", 0, "recorded value")
	at := fs.String("at", "", "recorded_at, RFC 3339 (default now)")
	if err := a.parse(fs, rest); err != nil {
		return err
	}
	if *metric <= 0 || *team <= 0 {
		return fmt.Errorf("%w: %s: -metric and -team are required", errUsage, name)
	}

	recordedAt := *at
	if recordedAt == "" {
		recordedAt = a.now().UTC().Format(time.RFC3339)
	} else if _, err := time.Parse(time.RFC3339, recordedAt); err != nil {
		return fmt.Errorf("%w: %s: -at: %w", errUsage, name, err)
	}

	in := models.Record{Metric: *metric, Team: *team, Value: *value, RecordedAt: recordedAt}

	var out *models.Record
	if sub == "create" {
		out, err = a.cl.API.CreateRecord(ctx, in)
	} else {
		if err := needID(name, *id); err != nil {
			return err
		}
		out, err = a.cl.API.UpdateRecord(ctx, *id, in)
	}
	if err != nil {
		return err
	}

	return a.print(out)
}
