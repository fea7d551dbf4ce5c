package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderDefaults(t *testing.T) {
	t.Parallel()

	ee := Newf("something failed: %d", 42).Build()
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.Equal(t, "something failed: 42", ee.Error())
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuilderContext(t *testing.T) {
	t.Parallel()

	ee := Newf("fetch failed").
		Component("provider").
		Category(CategoryNetwork).
		Context("status_code", 503).
		Context("provider", "gbif").
		Build()

	assert.Equal(t, "provider", ee.Component)
	assert.Equal(t, CategoryNetwork, ee.Category)

	ctx := ee.GetContext()
	require.NotNil(t, ctx)
	assert.Equal(t, 503, ctx["status_code"])
	assert.Equal(t, "gbif", ctx["provider"])

	// Mutating the copy must not affect the error
	ctx["status_code"] = 200
	assert.Equal(t, 503, ee.GetContext()["status_code"])
}

func TestUnwrapPreservesSentinel(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("sentinel")
	wrapped := New(sentinel).Category(CategoryDatabase).Build()

	assert.True(t, Is(wrapped, sentinel))

	var ee *EnhancedError
	require.True(t, As(wrapped, &ee))
	assert.Equal(t, CategoryDatabase, ee.Category)
}

func TestCategoryPredicates(t *testing.T) {
	t.Parallel()

	notFound := Newf("no record").Category(CategoryNotFound).Build()
	limited := Newf("slow down").Category(CategoryLimit).Build()

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(limited))
	assert.True(t, IsRetryable(limited))
	assert.False(t, IsRetryable(notFound))
	assert.False(t, IsNotFound(NewStd("plain")))
}
