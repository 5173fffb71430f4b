// Package api collects raw cumulative readings from the upstream statistics
// API and stores them through the statistics repository.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tejusbharadwaj/energyflow/internal/database"
	"github.com/tejusbharadwaj/energyflow/internal/models"
)

// StatisticsResponse is the upstream API payload for one point.
type StatisticsResponse struct {
	Result []struct {
		Time  int64    `json:"time"`
		Sum   *float64 `json:"sum"`
		State *float64 `json:"state"`
	} `json:"result"`
}

var (
	ErrUpstreamRequest = errors.New("error making upstream statistics request")
	ErrUpstreamStatus  = errors.New("error status from upstream statistics API")
)

// StatisticsCollector pulls readings per monitored point and batch-inserts them.
type StatisticsCollector struct {
	apiURL  string
	repo    database.StatisticsRepository
	client  *http.Client
	logger  *logrus.Logger
	timeout time.Duration
}

// NewStatisticsCollector creates a collector for the upstream API at apiURL.
func NewStatisticsCollector(apiURL string, repo database.StatisticsRepository, logger *logrus.Logger, timeout time.Duration) *StatisticsCollector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StatisticsCollector{
		apiURL:  apiURL,
		repo:    repo,
		client:  &http.Client{},
		logger:  logger,
		timeout: timeout,
	}
}

// Collect fetches [start, end) for every point and stores the readings.
// A failing point does not stop the others; all failures are returned joined.
func (c *StatisticsCollector) Collect(ctx context.Context, pointIDs []string, start, end time.Time) error {
	var errs []error
	inserted := 0
	for _, id := range pointIDs {
		n, err := c.CollectPoint(ctx, id, start, end)
		if err != nil {
			errs = append(errs, fmt.Errorf("point %s: %w", id, err))
			continue
		}
		inserted += n
	}

	c.logger.WithFields(logrus.Fields{
		"points":   len(pointIDs),
		"inserted": inserted,
		"failed":   len(errs),
	}).Info("Collected statistics")

	return errors.Join(errs...)
}

// CollectPoint fetches and stores the readings of a single point and returns
// the number of rows inserted.
func (c *StatisticsCollector) CollectPoint(ctx context.Context, pointID string, start, end time.Time) (int, error) {
	q := url.Values{}
	q.Set("point", pointID)
	q.Set("start", start.Format(time.RFC3339))
	q.Set("end", end.Format(time.RFC3339))
	reqURL := fmt.Sprintf("%s?%s", c.apiURL, q.Encode())

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamRequest, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: got %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var apiResp StatisticsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(apiResp.Result) == 0 {
		return 0, nil
	}

	rows := make([]models.StatisticRow, len(apiResp.Result))
	for i, data := range apiResp.Result {
		rows[i] = models.StatisticRow{
			PointID: pointID,
			Time:    time.Unix(data.Time, 0).UTC(),
			Sum:     data.Sum,
			State:   data.State,
		}
	}

	if err := c.repo.BatchInsertStatistics(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to insert statistics: %w", err)
	}

	return len(rows), nil
}

// Bootstrap collects the given history window up to now.
func (c *StatisticsCollector) Bootstrap(ctx context.Context, pointIDs []string, history time.Duration) error {
	end := time.Now()
	return c.Collect(ctx, pointIDs, end.Add(-history), end)
}
