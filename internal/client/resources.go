package client

import (
	"context"
	"net/http"

	"github.com/pribylovaa/metrics-tracker/internal/models"
)

const (
	PathTeams   = "/teams/"
	PathMetrics = "/metrics/"
	PathRecords = "/records/"
	PathSummary = "/summary/"
)

func (c *Client) Teams(ctx context.Context) ([]models.Team, error) {
	return getList[models.Team](ctx, c, "client.Teams", PathTeams)
}

func (c *Client) CreateTeam(ctx context.Context, t models.Team) (*models.Team, error) {
	var out models.Team
	if err := c.do(ctx, "client.CreateTeam", http.MethodPost, PathTeams, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTeam(ctx context.Context, id int64, t models.Team) (*models.Team, error) {
	var out models.Team
	if err := c.do(ctx, "client.UpdateTeam", http.MethodPut, itemPath(PathTeams, id), t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTeam(ctx context.Context, id int64) error {
	return c.do(ctx, "client.DeleteTeam", http.MethodDelete, itemPath(PathTeams, id), nil, nil)
}

func (c *Client) Metrics(ctx context.Context) ([]models.Metric, error) {
	return getList[models.Metric](ctx, c, "client.Metrics", PathMetrics)
}

func (c *Client) CreateMetric(ctx context.Context, m models.Metric) (*models.Metric, error) {
	var out models.Metric
	if err := c.do(ctx, "client.CreateMetric", http.MethodPost, PathMetrics, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateMetric(ctx context.Context, id int64, m models.Metric) (*models.Metric, error) {
	var out models.Metric
	if err := c.do(ctx, "client.UpdateMetric", http.MethodPut, itemPath(PathMetrics, id), m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteMetric(ctx context.Context, id int64) error {
	return c.do(ctx, "client.DeleteMetric", http.MethodDelete, itemPath(PathMetrics, id), nil, nil)
}

func (c *Client) Records(ctx context.Context) ([]models.Record, error) {
	return getList[models.Record](ctx, c, "client.Records", PathRecords)
}

// CreateRecord - сервер ждёт metric/team (id), value и recorded_at.
func (c *Client) CreateRecord(ctx context.Context, r models.Record) (*models.Record, error) {
	var out models.Record
	if err := c.do(ctx, "client.CreateRecord", http.MethodPost, PathRecords, writable(r), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateRecord(ctx context.Context, id int64, r models.Record) (*models.Record, error) {
	var out models.Record
	if err := c.do(ctx, "client.UpdateRecord", http.MethodPut, itemPath(PathRecords, id), writable(r), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteRecord(ctx context.Context, id int64) error {
	return c.do(ctx, "client.DeleteRecord", http.MethodDelete, itemPath(PathRecords, id), nil, nil)
}

// Summary - агрегаты для графиков дашборда.
func (c *Client) Summary(ctx context.Context) (*models.Summary, error) {
	var out models.Summary
	if err := c.do(ctx, "client.Summary", http.MethodGet, PathSummary, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// writable убирает поля, которые сервер только отдаёт.
func writable(r models.Record) models.Record {
	r.ID = 0
	r.MetricName = ""
	r.TeamName = ""
	return r
}
