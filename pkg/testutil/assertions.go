package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudscore/internal/domain/model"
)

// AssertFeatureError checks that err is an invalid feature value error
// localized to row and field.
func AssertFeatureError(t *testing.T, err error, row int, field string) {
	t.Helper()
	require.ErrorIs(t, err, model.ErrInvalidFeatureValue)

	var fe *model.FeatureValueError
	require.True(t, errors.As(err, &fe), "error %v is not a FeatureValueError", err)
	assert.Equal(t, row, fe.Row)
	assert.Equal(t, field, fe.Field)
}
