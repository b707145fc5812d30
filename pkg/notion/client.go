// Package notion implements the read-only source client for the Notion API:
// database schema fetch and paginated, incrementally filtered record fetch.
package notion

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/snitinshk/notion-supabase-sync/pkg/config"
	"github.com/snitinshk/notion-supabase-sync/pkg/retry"
	"github.com/snitinshk/notion-supabase-sync/pkg/syncerrors"
)

// Client talks to the Notion API. It never mutates anything upstream.
type Client struct {
	apiKey     string
	baseURL    string
	version    string
	pageSize   int
	pageDelay  time.Duration
	httpClient *http.Client
	policy     *retry.Policy
	logger     *zap.Logger
}

// QueryOptions controls a full database fetch.
type QueryOptions struct {
	// Since constrains results server-side to pages last edited on or
	// after this instant. Nil means a full fetch.
	Since *time.Time
	// MaxRecords is a hard cap on fetched pages; 0 means unlimited.
	// The fetch truncates, it never re-requests.
	MaxRecords int
}

// NewClient creates a Notion API client.
func NewClient(cfg config.NotionConfig, policy *retry.Policy, logger *zap.Logger) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	if err := http2.ConfigureTransport(transport); err != nil {
		logger.Warn("failed to configure HTTP/2", zap.Error(err))
	}

	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		version:   cfg.Version,
		pageSize:  cfg.PageSize,
		pageDelay: cfg.PageDelay,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
		},
		policy: policy,
		logger: logger.With(zap.String("component", "notion_client")),
	}
}

// GetDatabaseSchema fetches the current property definitions of a database.
// The schema is fetched fresh each run and never cached across runs.
func (c *Client) GetDatabaseSchema(ctx context.Context, databaseID string) (*Database, error) {
	var db Database

	err := c.policy.ExecuteWithCondition(ctx, func() error {
		return c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, &db)
	}, retry.IsRetryable)
	if err != nil {
		return nil, syncerrors.Wrap(err, syncerrors.ErrorTypeSourceUnavailable,
			"failed to fetch database schema").WithDetail("database_id", databaseID)
	}

	c.logger.Info("fetched database schema",
		zap.String("database_id", databaseID),
		zap.Int("properties", len(db.Properties)))

	return &db, nil
}

// GetAllPages fetches every matching record of a database, following the
// pagination cursor until exhausted. Each page request is retried
// individually, and a small delay separates pages to respect upstream
// rate limits. When opts.Since is set the filter is applied server-side;
// no client-side re-filtering happens.
func (c *Client) GetAllPages(ctx context.Context, databaseID string, opts QueryOptions) ([]Page, error) {
	var (
		pages  []Page
		cursor string
	)

	for pageNum := 0; ; pageNum++ {
		req := queryRequest{
			PageSize:    c.pageSize,
			StartCursor: cursor,
		}

		if opts.Since != nil {
			req.Filter = &timestampFilter{
				Timestamp:      "last_edited_time",
				LastEditedTime: onOrAfterFilter{OnOrAfter: opts.Since.UTC().Format(time.RFC3339)},
			}
		}

		var resp queryResponse
		err := c.policy.ExecuteWithCondition(ctx, func() error {
			return c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", req, &resp)
		}, retry.IsRetryable)
		if err != nil {
			return nil, syncerrors.Wrap(err, syncerrors.ErrorTypeSourceUnavailable,
				"failed to query database").WithDetail("database_id", databaseID).WithDetail("page", pageNum)
		}

		pages = append(pages, resp.Results...)

		c.logger.Debug("fetched page",
			zap.Int("page", pageNum),
			zap.Int("results", len(resp.Results)),
			zap.Int("total", len(pages)),
			zap.Bool("has_more", resp.HasMore))

		if opts.MaxRecords > 0 && len(pages) >= opts.MaxRecords {
			pages = pages[:opts.MaxRecords]
			c.logger.Info("record cap reached, truncating fetch",
				zap.Int("max_records", opts.MaxRecords))
			break
		}

		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		cursor = *resp.NextCursor

		timer := time.NewTimer(c.pageDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.Info("fetched all pages",
		zap.String("database_id", databaseID),
		zap.Int("count", len(pages)),
		zap.Bool("incremental", opts.Since != nil))

	return pages, nil
}

// do performs one API request and decodes the response, classifying
// failures so the retry policy can tell transient from terminal.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return syncerrors.Wrap(err, syncerrors.ErrorTypeData, "failed to encode request body")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeInternal, "failed to build request")
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", c.version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeConnection, "request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeConnection, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return c.classifyStatus(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return syncerrors.Wrap(err, syncerrors.ErrorTypeData, "failed to decode response")
	}

	return nil
}

// classifyStatus maps an API error response to a structured error whose
// type drives retry classification.
func (c *Client) classifyStatus(status int, body []byte) error {
	var apiErr apiError
	message := "notion api error"
	code := ""
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		message = apiErr.Message
		code = apiErr.Code
	}

	errType := syncerrors.ErrorTypeValidation
	switch {
	case status == http.StatusTooManyRequests || code == "rate_limited":
		errType = syncerrors.ErrorTypeRateLimit
	case status == http.StatusRequestTimeout:
		errType = syncerrors.ErrorTypeTimeout
	case retry.RetryableStatus(status) || code == "service_unavailable":
		errType = syncerrors.ErrorTypeConnection
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = syncerrors.ErrorTypeConfig
	}

	return syncerrors.New(errType, message).
		WithDetail("status", status).
		WithDetail("code", code)
}
