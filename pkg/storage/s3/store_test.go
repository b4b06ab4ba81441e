package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/medrec-backend/pkg/storage"
)

type memoryRoundTripper struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// path style: /<bucket>/<key>
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}
	respond := func(status int, body []byte, header http.Header) *http.Response {
		if header == nil {
			header = http.Header{}
		}
		return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: header, Request: req}
	}

	switch req.Method {
	case http.MethodPut:
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		if decoded, ok := decodeAWSChunked(data); ok {
			data = decoded
		}
		m.objects[key] = data
		return respond(http.StatusOK, nil, http.Header{"Etag": {"\"etag\""}}), nil
	case http.MethodGet:
		data, ok := m.objects[key]
		if !ok {
			body := []byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			return respond(http.StatusNotFound, body, http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return respond(http.StatusOK, data, http.Header{"Content-Type": {"image/png"}}), nil
	case http.MethodDelete:
		delete(m.objects, key)
		return respond(http.StatusNoContent, nil, nil), nil
	case http.MethodHead:
		return respond(http.StatusOK, nil, nil), nil
	}
	return respond(http.StatusBadRequest, nil, nil), nil
}

func newMemoryStore(t *testing.T) (*Store, *memoryRoundTripper) {
	t.Helper()
	rt := &memoryRoundTripper{objects: map[string][]byte{}}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
	})
	return newStore(client, "medrec-uploads", 15*time.Minute), rt
}

func TestStorePutOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, rt := newMemoryStore(t)

	key := "uploads/2026/03/04/abc/box.png"
	obj, err := store.Put(ctx, key, bytes.NewReader([]byte("png")), storage.PutOptions{ContentType: "image/png", Size: 3})
	require.NoError(t, err)
	assert.Equal(t, key, obj.Key)
	assert.Equal(t, []byte("png"), rt.objects[key])

	rc, err := store.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png", string(data))

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Open(ctx, key)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	require.NoError(t, store.Ping(ctx))
}

func TestStoreURLIsPresigned(t *testing.T) {
	store, _ := newMemoryStore(t)
	u, err := store.URL(context.Background(), "uploads/2026/03/04/abc/box.png")
	require.NoError(t, err)
	assert.Contains(t, u, "https://mock.s3.local/medrec-uploads/uploads/2026/03/04/abc/box.png")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.Contains(t, u, "X-Amz-Expires=900")
}

func TestStoreRejectsInvalidKey(t *testing.T) {
	store, _ := newMemoryStore(t)
	_, err := store.Put(context.Background(), "../escape", bytes.NewReader(nil), storage.PutOptions{})
	assert.Error(t, err)
}

// decodeAWSChunked unwraps a single-chunk aws-chunked body: <hex>\r\n<body>\r\n0\r\n<trailers>.
func decodeAWSChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || parts[2] != "0" {
		return nil, false
	}
	size, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int64(len(parts[1])) != size {
		return nil, false
	}
	return []byte(parts[1]), true
}
