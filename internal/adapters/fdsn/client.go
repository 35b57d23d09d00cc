// Package fdsn implements the catalog contract against FDSN web services
// (fdsnws-event and fdsnws-station) using their text output format.
package fdsn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"

	"github.com/okian/seisnear/internal/domain/catalog"
	"github.com/okian/seisnear/internal/domain/model"
	"github.com/okian/seisnear/pkg/logger"
	"github.com/okian/seisnear/pkg/metrics"
)

// Default service endpoints and limits.
const (
	DefaultEventServiceURL   = "https://earthquake.usgs.gov/fdsnws/event/1/"
	DefaultStationServiceURL = "https://service.iris.edu/fdsnws/station/1/"
	DefaultTimeout           = 30 * time.Second
	DefaultRatePerSecond     = 5
	DefaultRateBurst         = 5
	DefaultUserAgent         = "seisnear/1.0"

	maxErrorBody = 4 << 10

	opEvents   = "events"
	opStations = "stations"
)

// Client talks to an event service and a station service.
type Client struct {
	eventURL   string
	stationURL string
	timeout    time.Duration
	userAgent  string
	http       *http.Client
	limiter    *rate.Limiter
	log        logger.Logger
}

var _ catalog.Client = (*Client)(nil)

// New creates a client with the given options.
func New(opts ...Option) *Client {
	c := &Client{
		eventURL:   DefaultEventServiceURL,
		stationURL: DefaultStationServiceURL,
		timeout:    DefaultTimeout,
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRatePerSecond), DefaultRateBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.log == nil {
		c.log = logger.Get().Named("fdsn")
	}
	return c
}

// QueryEvents runs an fdsnws-event query. The returned events carry their
// origin time but no search window.
func (c *Client) QueryEvents(ctx context.Context, q catalog.EventQuery) ([]model.Event, error) {
	params := url.Values{}
	params.Set("format", "text")
	params.Set("latitude", strconv.FormatFloat(q.Origin.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(q.Origin.Longitude, 'f', -1, 64))
	params.Set("maxradius", strconv.FormatFloat(q.MaxRadius, 'f', -1, 64))
	if !q.Start.IsZero() {
		params.Set("starttime", q.Start.UTC().Format(fdsnTimeLayout))
	}
	if !q.End.IsZero() {
		params.Set("endtime", q.End.UTC().Format(fdsnTimeLayout))
	}
	if q.MinMagnitude > 0 {
		params.Set("minmagnitude", strconv.FormatFloat(q.MinMagnitude, 'f', -1, 64))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.OrderBy != "" {
		params.Set("orderby", q.OrderBy)
	}
	params.Set("nodata", "204")

	endpoint := strings.TrimRight(c.eventURL, "/") + "/query?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrTransport, err)
	}

	var events []model.Event
	err = c.do(ctx, opEvents, req, func(body io.Reader) error {
		parsed, skipped, perr := ParseEvents(body)
		if perr != nil {
			return perr
		}
		if skipped > 0 {
			c.log.Warn(ctx, "event rows skipped", logger.Int("skipped", skipped))
		}
		events = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, catalog.ErrNoData
	}
	return events, nil
}

// QueryStationsBulk posts a bulk channel-level station query.
func (c *Client) QueryStationsBulk(ctx context.Context, q catalog.StationQuery) (*catalog.Inventory, error) {
	endpoint := strings.TrimRight(c.stationURL, "/") + "/query"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(BulkBody(q)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "text/plain")

	var inv *catalog.Inventory
	err = c.do(ctx, opStations, req, func(body io.Reader) error {
		parsed, skipped, perr := ParseChannels(body)
		if perr != nil {
			return perr
		}
		if skipped > 0 {
			c.log.Warn(ctx, "channel rows skipped", logger.Int("skipped", skipped))
		}
		inv = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(inv.Networks) == 0 {
		return nil, catalog.ErrNoData
	}
	return inv, nil
}

// do sends req after waiting on the limiter, maps the status code onto the
// catalog error kinds and hands the decoded body to read.
func (c *Client) do(ctx context.Context, op string, req *http.Request, read func(io.Reader) error) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordCatalogRequest(op, outcomeOf(err), float64(time.Since(start).Milliseconds()))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", catalog.ErrTransport, err)
	}

	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrTransport, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug(ctx, "failed to close response body", logger.Error(cerr))
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return catalog.ErrNoData
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s returned %d: %s", catalog.ErrTransport, op, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var body io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: gzip: %v", catalog.ErrTransport, err)
		}
		defer gz.Close()
		body = gz
	}

	if err := read(body); err != nil {
		return fmt.Errorf("%w: %s: %v", catalog.ErrTransport, op, err)
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, catalog.ErrNoData):
		return "no_data"
	default:
		return "error"
	}
}
