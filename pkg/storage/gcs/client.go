package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/angelmondragon/medrec-backend/pkg/logger"
	"github.com/angelmondragon/medrec-backend/pkg/storage"
)

const (
	Driver = "gcs"

	defaultAPIBase = "https://storage.googleapis.com"
	defaultURLTTL  = 24 * time.Hour
	pingTimeout    = 5 * time.Second
)

// Client stores upload images in a single GCS bucket through the JSON API.
type Client struct {
	httpClient *http.Client
	bucket     string
	tokens     *tokenSource
	signer     *signer
	apiBase    string
	urlTTL     time.Duration
	now        func() time.Time
}

// NewClient authenticates with explicit service account credentials when
// configured and falls back to the metadata server otherwise.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}

	creds := []byte(gcp.CredentialsJSON)
	if len(creds) == 0 && gcp.ApplicationCredentials != "" {
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("reading credentials file: %w", err)
		}
		creds = raw
	}

	client := &Client{
		httpClient: httpClient,
		bucket:     cfg.BucketName,
		apiBase:    defaultAPIBase,
		urlTTL:     cfg.DownloadURLExpiry,
		now:        time.Now,
	}
	if len(creds) > 0 {
		s, tokenURI, err := parseServiceAccount(creds)
		if err != nil {
			return nil, err
		}
		client.signer = s
		client.tokens = &tokenSource{fetch: assertionFetcher(httpClient, s, tokenURI)}
	} else {
		client.tokens = &tokenSource{fetch: metadataFetcher(httpClient)}
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"bucket":      cfg.BucketName,
		"signed_urls": client.signer != nil,
	}), "gcs client initialized")
	return client, nil
}

func (c *Client) Driver() string { return Driver }

// Ping lists at most one object, which needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, c.bucketURL("/o")+"?maxResults=1", nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusError("gcs bucket check", resp)
	}
	return nil
}

// Put uploads an object with a single media request. Existing keys are never
// overwritten (ifGenerationMatch=0).
func (c *Client) Put(ctx context.Context, key string, body io.Reader, opts storage.PutOptions) (storage.Object, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Object{}, err
	}
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	q := url.Values{"uploadType": {"media"}, "name": {key}, "ifGenerationMatch": {"0"}}
	target := c.base() + "/upload/storage/v1/b/" + url.PathEscape(c.bucket) + "/o?" + q.Encode()

	resp, err := c.do(ctx, http.MethodPost, target, body, func(req *http.Request) {
		req.Header.Set("Content-Type", contentType)
		if opts.Size > 0 {
			req.ContentLength = opts.Size
		}
	})
	if err != nil {
		return storage.Object{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return storage.Object{}, statusError("gcs upload", resp)
	}

	var meta struct {
		Name        string `json:"name"`
		ContentType string `json:"contentType"`
		Size        string `json:"size"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return storage.Object{}, fmt.Errorf("decoding gcs upload response: %w", err)
	}
	size, _ := strconv.ParseInt(meta.Size, 10, 64)
	return storage.Object{Key: meta.Name, ContentType: meta.ContentType, Size: size}, nil
}

// Open streams an object's media.
func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodGet, c.objectURL(key)+"?alt=media", nil, nil)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		_ = resp.Body.Close()
		return nil, storage.ErrNotFound
	default:
		defer func() { _ = resp.Body.Close() }()
		return nil, statusError("gcs download", resp)
	}
}

// Delete removes an object; missing objects are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.objectURL(key), nil, nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("gcs delete", resp)
}

// URL returns a signed read URL, or the plain public URL when the driver
// runs on ambient credentials and cannot sign.
func (c *Client) URL(_ context.Context, key string) (string, error) {
	if c.signer == nil {
		return publicURL(c.bucket, key), nil
	}
	ttl := c.urlTTL
	if ttl <= 0 {
		ttl = defaultURLTTL
	}
	return c.signer.readURL(c.bucket, key, c.now(), ttl)
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, prepare func(*http.Request)) (*http.Response, error) {
	if c == nil || c.tokens == nil {
		return nil, errors.New("gcs client not initialized")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if prepare != nil {
		prepare(req)
	}
	return c.httpClient.Do(req)
}

func (c *Client) bucketURL(suffix string) string {
	return c.base() + "/storage/v1/b/" + url.PathEscape(c.bucket) + suffix
}

func (c *Client) objectURL(key string) string {
	return c.bucketURL("/o/" + url.PathEscape(key))
}

func (c *Client) base() string {
	if c.apiBase == "" {
		return defaultAPIBase
	}
	return c.apiBase
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(b)); msg != "" {
		return fmt.Errorf("%s failed: %s: %s", op, resp.Status, msg)
	}
	return fmt.Errorf("%s failed: %s", op, resp.Status)
}
