package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scimbridge/scimbridge/pkg/utils/errs"
)

func TestWrap(t *testing.T) {
	t.Run("Should match both wrapped errors", func(t *testing.T) {
		base := errors.New("base")
		ext := errors.New("ext")

		wrapped := errs.Wrap(base, ext)
		assert.ErrorIs(t, wrapped, base)
		assert.ErrorIs(t, wrapped, ext)
	})
}

func TestWrapf(t *testing.T) {
	t.Run("Should keep base error and attach context", func(t *testing.T) {
		base := errors.New("base")

		wrapped := errs.Wrapf(base, "extra context")
		assert.ErrorIs(t, wrapped, base)
		assert.Contains(t, wrapped.Error(), "extra context")
	})
}
