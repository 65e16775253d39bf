package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelWrapping(t *testing.T) {
	err := NewSchemaConfigError("unknown validation function %q", "check_iban")
	require.Error(t, err)

	assert.True(t, Is(err, ErrSchemaConfig))
	assert.True(t, IsSchemaConfigError(err))
	assert.Contains(t, err.Error(), "check_iban")

	// Another layer of context must preserve the class.
	wrapped := Wrap(err, "compiling schema")
	assert.True(t, IsSchemaConfigError(wrapped))
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.False(t, Is(ErrUnknownDataset, ErrSchemaConfig))
	assert.False(t, Is(ErrExport, ErrEmptyFrame))
	assert.False(t, IsSchemaConfigError(nil))
}

func TestUnknownDatasetClass(t *testing.T) {
	err := Wrapf(ErrUnknownDataset, "no transformer for %q", "crypto_wallets")
	assert.True(t, IsUnknownDatasetError(err))
	assert.Contains(t, err.Error(), "crypto_wallets")
}
