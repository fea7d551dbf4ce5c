package imagecache

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faunadex/internal/datastore"
	"faunadex/internal/httpclient"
)

func newTestService(t *testing.T, capacity int64) (*Service, *httpmock.MockTransport) {
	t.Helper()

	db, err := datastore.OpenMemory()
	require.NoError(t, err)

	transport := httpmock.NewMockTransport()
	client := httpclient.New(nil)
	client.SetTransport(transport)

	svc, err := New(db, client, t.TempDir(), capacity, nil, nil)
	require.NoError(t, err)
	return svc, transport
}

func registerImage(transport *httpmock.MockTransport, url string, size int) {
	transport.RegisterResponder(http.MethodGet, url,
		httpmock.NewStringResponder(http.StatusOK, strings.Repeat("x", size)))
}

func TestResolveDownloadsOnceThenHits(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t, 1<<20)
	registerImage(transport, "https://img.example.org/fox.jpg", 100)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "https://img.example.org/fox.jpg", ClassHD)
	require.NoError(t, err)
	require.FileExists(t, first)
	assert.True(t, strings.HasSuffix(first, ".jpg"))

	second, err := svc.Resolve(ctx, "https://img.example.org/fox.jpg", ClassHD)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Only the first call hit the network
	assert.Equal(t, 1, transport.GetTotalCallCount())

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Len(t, data, 100)
}

func TestResolveShardsByClassAndHashPrefix(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t, 1<<20)
	registerImage(transport, "https://img.example.org/fox.jpg", 10)
	ctx := context.Background()

	hd, err := svc.Resolve(ctx, "https://img.example.org/fox.jpg", ClassHD)
	require.NoError(t, err)
	thumb, err := svc.Resolve(ctx, "https://img.example.org/fox.jpg", ClassThumb)
	require.NoError(t, err)

	// Same URL under different classes yields two independent files
	assert.NotEqual(t, hd, thumb)
	assert.Contains(t, hd, string(os.PathSeparator)+"hd"+string(os.PathSeparator))
	assert.Contains(t, thumb, string(os.PathSeparator)+"thumb"+string(os.PathSeparator))
}

func TestUsageNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t, 150)
	ctx := context.Background()

	urls := []string{
		"https://img.example.org/a.jpg",
		"https://img.example.org/b.jpg",
		"https://img.example.org/c.jpg",
		"https://img.example.org/d.jpg",
	}
	for _, u := range urls {
		registerImage(transport, u, 60)
	}

	for _, u := range urls {
		_, err := svc.Resolve(ctx, u, ClassHD)
		require.NoError(t, err)

		usage, err := svc.UsageBytes()
		require.NoError(t, err)
		assert.LessOrEqual(t, usage, int64(150), "after caching %s", u)
	}
}

func TestEvictionIsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	// Room for exactly two 60-byte files
	svc, transport := newTestService(t, 120)
	ctx := context.Background()

	registerImage(transport, "https://img.example.org/a.jpg", 60)
	registerImage(transport, "https://img.example.org/b.jpg", 60)
	registerImage(transport, "https://img.example.org/c.jpg", 60)

	pathA, err := svc.Resolve(ctx, "https://img.example.org/a.jpg", ClassHD)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	pathB, err := svc.Resolve(ctx, "https://img.example.org/b.jpg", ClassHD)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	// Touch a so b becomes the least recently used
	_, err = svc.Resolve(ctx, "https://img.example.org/a.jpg", ClassHD)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	pathC, err := svc.Resolve(ctx, "https://img.example.org/c.jpg", ClassHD)
	require.NoError(t, err)

	assert.FileExists(t, pathA)
	assert.FileExists(t, pathC)
	assert.NoFileExists(t, pathB)
}

func TestDownloadFailureCachesNothing(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t, 1<<20)
	transport.RegisterResponder(http.MethodGet, "https://img.example.org/gone.jpg",
		httpmock.NewStringResponder(http.StatusNotFound, "not here"))

	_, err := svc.Resolve(context.Background(), "https://img.example.org/gone.jpg", ClassHD)
	require.Error(t, err)

	usage, err := svc.UsageBytes()
	require.NoError(t, err)
	assert.Zero(t, usage)
}

func TestMissingFileOnDiskIsRedownloaded(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t, 1<<20)
	registerImage(transport, "https://img.example.org/fox.jpg", 50)
	ctx := context.Background()

	first, err := svc.Resolve(ctx, "https://img.example.org/fox.jpg", ClassHD)
	require.NoError(t, err)
	require.NoError(t, os.Remove(first))

	second, err := svc.Resolve(ctx, "https://img.example.org/fox.jpg", ClassHD)
	require.NoError(t, err)
	assert.FileExists(t, second)
	assert.Equal(t, 2, transport.GetTotalCallCount())
}

func TestClearRemovesFilesAndIndex(t *testing.T) {
	t.Parallel()

	svc, transport := newTestService(t, 1<<20)
	registerImage(transport, "https://img.example.org/a.jpg", 40)
	registerImage(transport, "https://img.example.org/b.jpg", 40)
	ctx := context.Background()

	pathA, err := svc.Resolve(ctx, "https://img.example.org/a.jpg", ClassHD)
	require.NoError(t, err)
	pathB, err := svc.Resolve(ctx, "https://img.example.org/b.jpg", ClassThumb)
	require.NoError(t, err)

	require.NoError(t, svc.Clear())

	assert.NoFileExists(t, pathA)
	assert.NoFileExists(t, pathB)

	usage, err := svc.UsageBytes()
	require.NoError(t, err)
	assert.Zero(t, usage)
}

func TestRejectsNonPositiveCapacity(t *testing.T) {
	t.Parallel()

	db, err := datastore.OpenMemory()
	require.NoError(t, err)

	_, err = New(db, httpclient.New(nil), t.TempDir(), 0, nil, nil)
	assert.Error(t, err)
}
