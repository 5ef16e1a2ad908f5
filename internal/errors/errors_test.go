package errors_test

import (
	"testing"

	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapf(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.NoError(t, errors.Wrapf(nil, "[pkg Func] doing %s", "work"))
	})

	t.Run("wraps with context", func(t *testing.T) {
		err := errors.Wrapf(errors.ErrNetwork, "[apiclient Do] GET %s", "/auth/profile/")
		require.EqualError(t, err, "[apiclient Do] GET /auth/profile/: network error")
		require.True(t, errors.Is(err, errors.ErrNetwork))
	})
}
