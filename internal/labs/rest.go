package labs

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/labconnect/internal/domain"
)

const (
	restPath        = "/rest/v1/"
	contentType     = "application/json"
	contentEncoding = "gzip"
	userAgent       = "spigell/labconnect"
)

// RESTClient reads the lab table through a Supabase PostgREST endpoint.
type RESTClient struct {
	baseURL    string
	apiKey     string
	table      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

func NewRESTClient(baseURL, apiKey, table string, logger *zap.Logger) (*RESTClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("supabase url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse supabase url: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("supabase api key is required")
	}
	if table = strings.TrimSpace(table); table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RESTClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		table:   table,
		logger:  logger,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UserAgent: userAgent,
	}, nil
}

// All selects every column of every row. No filter, order or range is sent.
func (c *RESTClient) All(ctx context.Context) ([]domain.LabRecord, error) {
	endpoint := c.baseURL + restPath + url.PathEscape(c.table)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("select", "*")
	req.URL.RawQuery = q.Encode()
	c.setHeaders(req)

	var rows []map[string]any
	if err := c.getJSON(req, &rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", c.table, err)
	}

	c.logger.Debug("got rows from supabase", zap.String("table", c.table), zap.Int("rows", len(rows)))

	return decodeRows(rows)
}

func (c *RESTClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Accept", contentType)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("User-Agent", c.UserAgent)
}

func (c *RESTClient) getJSON(req *http.Request, target any) error {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.Status, Message: errorMessage(data)}
	}

	return json.Unmarshal(data, target)
}

// APIError is a non-200 reply from PostgREST.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bad status: %s", e.Status)
	}
	return fmt.Sprintf("bad status: %s: %s", e.Status, e.Message)
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
