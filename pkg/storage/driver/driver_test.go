package driver

import (
	"context"
	"testing"

	"github.com/angelmondragon/medrec-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFSDriver(t *testing.T) {
	cfg := &config.Config{
		App:     config.AppConfig{PublicBaseURL: "http://api.local/"},
		Storage: config.StorageConfig{Driver: "FS", FSRoot: t.TempDir()},
	}
	store, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "fs", store.Driver())

	u, err := store.URL(context.Background(), "uploads/x.png")
	require.NoError(t, err)
	assert.Equal(t, "http://api.local/media/uploads/x.png", u)
}

func TestNewUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), &config.Config{Storage: config.StorageConfig{Driver: "ftp"}}, nil)
	assert.Error(t, err)
}
