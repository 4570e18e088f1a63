package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	client, err := New(context.Background(), Options{Addr: mr.Addr(), Password: "s3cret", DB: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mr.Select(2)
	assert.True(t, mr.Exists("k"))
}

func TestNewWrongPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	_, err := New(context.Background(), Options{Addr: mr.Addr(), Password: "nope"})
	assert.Error(t, err)
}
