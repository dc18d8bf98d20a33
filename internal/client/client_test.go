package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/metrics-tracker/internal/models"
)

type captured struct {
	method string
	path   string
	body   map[string]any
	ctype  string
}

// newServer поднимает upstream с одним обработчиком и возвращает клиента к нему.
func newServer(t *testing.T, status int, respBody string, seen *captured) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen.method = r.Method
			seen.path = r.URL.Path
			seen.ctype = r.Header.Get("Content-Type")
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				require.NoError(t, json.Unmarshal(raw, &seen.body))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api/", srv.Client(), time.Second)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	_, err := New("/relative", nil, 0)
	require.Error(t, err)

	_, err = New("http://[::1", nil, 0)
	require.Error(t, err)
}

func TestLogin_OK(t *testing.T) {
	t.Parallel()

	var seen captured
	c := newServer(t, http.StatusOK, `{"access":"a1","refresh":"r1"}`, &seen)

	pair, err := c.Login(context.Background(), "user@example.com", "pw")
	require.NoError(t, err)
	require.Equal(t, &models.TokenPair{Access: "a1", Refresh: "r1"}, pair)

	require.Equal(t, http.MethodPost, seen.method)
	require.Equal(t, "/api/token/", seen.path)
	require.Equal(t, "application/json", seen.ctype)
	require.Equal(t, map[string]any{"username": "user@example.com", "password": "pw"}, seen.body)
}

func TestLogin_Unauthorized_ServerMessageVerbatim(t *testing.T) {
	t.Parallel()

	c := newServer(t, http.StatusUnauthorized, `{"detail":"No active account found with the given credentials"}`, nil)

	_, err := c.Login(context.Background(), "user@example.com", "bad")
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "No active account found with the given credentials", apiErr.Message())
}

func TestRefresh_WithAndWithoutRotation(t *testing.T) {
	t.Parallel()

	var seen captured
	c := newServer(t, http.StatusOK, `{"access":"a2"}`, &seen)

	resp, err := c.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "a2", resp.Access)
	require.Empty(t, resp.Refresh)
	require.Equal(t, "/api/token/refresh/", seen.path)
	require.Equal(t, map[string]any{"refresh": "r1"}, seen.body)

	c = newServer(t, http.StatusOK, `{"access":"a3","refresh":"r2"}`, nil)
	resp, err = c.Refresh(context.Background(), "r1")
	require.NoError(t, err)
	require.Equal(t, "r2", resp.Refresh)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	var seen captured
	c := newServer(t, http.StatusOK, `{}`, &seen)
	require.NoError(t, c.Verify(context.Background(), "tok"))
	require.Equal(t, "/api/token/verify/", seen.path)
	require.Equal(t, map[string]any{"token": "tok"}, seen.body)

	c = newServer(t, http.StatusUnauthorized, `{"detail":"Token is invalid or expired","code":"token_not_valid"}`, nil)
	err := c.Verify(context.Background(), "tok")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegister_PasswordMismatch_NoRequest(t *testing.T) {
	t.Parallel()

	var seen captured
	c := newServer(t, http.StatusCreated, `{}`, &seen)

	_, err := c.Register(context.Background(), "u@e.com", "a", "b")
	require.ErrorIs(t, err, ErrPasswordMismatch)
	require.ErrorIs(t, err, ErrValidation)
	require.Equal(t, "Passwords do not match.", ErrPasswordMismatch.Message())
	require.Empty(t, seen.path)
}

func TestRegister_OK_And_FieldErrors(t *testing.T) {
	t.Parallel()

	var seen captured
	c := newServer(t, http.StatusCreated, `{"message":"Check your email"}`, &seen)

	out, err := c.Register(context.Background(), "u@e.com", "pw", "pw")
	require.NoError(t, err)
	require.Equal(t, "Check your email", out.Message)
	require.Equal(t, "/api/register/", seen.path)
	require.Equal(t, map[string]any{
		"username": "u@e.com", "email": "u@e.com", "password": "pw", "confirm_password": "pw",
	}, seen.body)

	c = newServer(t, http.StatusBadRequest, `{"errors":{"email":["user with this email already exists."],"password":["too short"]}}`, nil)
	_, err = c.Register(context.Background(), "u@e.com", "pw", "pw")
	require.ErrorIs(t, err, ErrValidation)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, []string{"email: user with this email already exists.", "password: too short"}, apiErr.Messages)
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	var seen captured
	c := newServer(t, http.StatusOK, `{"message":"Email verified"}`, &seen)

	require.NoError(t, c.VerifyEmail(context.Background(), "tok", "MQ"))
	require.Equal(t, "/api/verify-email/", seen.path)
	require.Equal(t, map[string]any{"token": "tok", "uid": "MQ"}, seen.body)
}

func TestMe(t *testing.T) {
	t.Parallel()

	c := newServer(t, http.StatusOK, `{"id":3,"username":"u@e.com","email":"u@e.com"}`, nil)
	u, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), u.ID)
	require.Equal(t, "u@e.com", u.Email)
}

func TestErrors_StatusTaxonomy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		body   string
		want   error
		msg    string
	}{
		{http.StatusBadRequest, `{"name":["This field is required."]}`, ErrValidation, "name: This field is required."},
		{http.StatusForbidden, `{"detail":"You do not have permission"}`, ErrForbidden, ForbiddenMessage},
		{http.StatusNotFound, `{"detail":"Not found."}`, ErrNotFound, "Not found."},
		{http.StatusInternalServerError, `<html>oops</html>`, ErrServer, "<html>oops</html>"},
		{http.StatusBadGateway, ``, ErrServer, "Bad Gateway"},
		{http.StatusConflict, `{"non_field_errors":["dup"]}`, ErrUnexpected, "dup"},
	}

	for _, tt := range tests {
		c := newServer(t, tt.status, tt.body, nil)
		_, err := c.Teams(context.Background())
		require.ErrorIs(t, err, tt.want, tt.status)

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, tt.msg, apiErr.Message(), tt.status)
		require.Equal(t, tt.status, apiErr.Status)
	}
}

func TestTeams_CRUD(t *testing.T) {
	t.Parallel()

	var seen captured
	c := newServer(t, http.StatusOK, `[{"id":1,"name":"Core","description":"d"}]`, &seen)
	teams, err := c.Teams(context.Background())
	require.NoError(t, err)
	require.Equal(t, []models.Team{{ID: 1, Name: "Core", Description: "d"}}, teams)
	require.Equal(t, "/api/teams/", seen.path)

	c = newServer(t, http.StatusCreated, `{"id":2,"name":"New","description":""}`, &seen)
	team, err := c.CreateTeam(context.Background(), models.Team{Name: "New"})
	require.NoError(t, err)
	require.Equal(t, int64(2), team.ID)
	require.Equal(t, http.MethodPost, seen.method)
	require.Equal(t, map[string]any{"name": "New", "description": ""}, seen.body)

	c = newServer(t, http.StatusOK, `{"id":2,"name":"Renamed","description":""}`, &seen)
	_, err = c.UpdateTeam(context.Background(), 2, models.Team{Name: "Renamed"})
	require.NoError(t, err)
	require.Equal(t, http.MethodPut, seen.method)
	require.Equal(t, "/api/teams/2/", seen.path)

	c = newServer(t, http.StatusNoContent, ``, &seen)
	require.NoError(t, c.DeleteTeam(context.Background(), 2))
	require.Equal(t, http.MethodDelete, seen.method)
	require.Equal(t, "/api/teams/2/", seen.path)
}

func TestMetrics_PaginatedList(t *testing.T) {
	t.Parallel()

	c := newServer(t, http.StatusOK, `{"count":1,"results":[{"id":5,"name":"Velocity","description":"","target":40}]}`, nil)
	ms, err := c.Metrics(context.Background())
	require.NoError(t, err)
	require.Len(t, ms, 1)
	require.Equal(t, 40.0, ms[0].Target)
}

func TestRecords_WriteUsesIDsOnly(t *testing.T) {
	t.Parallel()

	var seen captured
	c := newServer(t, http.StatusCreated, `{"id":9,"metric":1,"team":2,"metric_name":"Velocity","team_name":"Core","value":3.5,"recorded_at":"2024-05-01T10:00:00Z"}`, &seen)

	rec, err := c.CreateRecord(context.Background(), models.Record{
		ID: 100, Metric: 1, Team: 2, MetricName: "ignored", TeamName: "ignored",
		Value: 3.5, RecordedAt: "2024-05-01T10:00:00Z",
	})
	require.NoError(t, err)
	require.Equal(t, "Velocity", rec.MetricName)
	require.Equal(t, map[string]any{"metric": 1.0, "team": 2.0, "value": 3.5, "recorded_at": "2024-05-01T10:00:00Z"}, seen.body)

	c = newServer(t, http.StatusOK, `[]`, &seen)
	recs, err := c.Records(context.Background())
	require.NoError(t, err)
	require.NotNil(t, recs)
	require.Empty(t, recs)
}

func TestSummary(t *testing.T) {
	t.Parallel()

	c := newServer(t, http.StatusOK, `{
		"metricTeamData":[{"metric__name":"Velocity","team__name":"Core","total_value":12}],
		"recordsByTeam":[{"team__name":"Core","total_records":4}],
		"recordTrends":[{"timestamp":"2024-05-01","total_value":7}],
		"teamContributions":[{"team__name":"Core","total_value":12}]
	}`, nil)

	s, err := c.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Velocity", s.MetricTeamData[0].MetricName)
	require.Equal(t, int64(4), s.RecordsByTeam[0].TotalRecords)
	require.Equal(t, "2024-05-01", s.RecordTrends[0].Timestamp)
	require.Equal(t, 12.0, s.TeamContributions[0].TotalValue)
}

func TestDo_TimeoutWhenNoDeadline(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, srv.Client(), 30*time.Millisecond)
	require.NoError(t, err)

	_, err = c.Teams(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
