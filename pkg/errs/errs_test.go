package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	cause := errors.New("column Brake_Condition missing")
	err := E(KindSchema, "transform", cause)

	assert.True(t, errors.Is(err, ErrSchema))
	assert.False(t, errors.Is(err, ErrCoercion))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "transform: column Brake_Condition missing", err.Error())
}

func TestKindOfThroughWrapping(t *testing.T) {
	err := fmt.Errorf("serve: %w", Errorf(KindCoercion, "parse field", "value %q", "abc"))

	assert.Equal(t, KindCoercion, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.True(t, errors.Is(err, ErrCoercion))
}

func TestNilCauseStaysNil(t *testing.T) {
	assert.NoError(t, E(KindTraining, "fit", nil))
}

func TestUserFixable(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindSchema, true},
		{KindCoercion, true},
		{KindSerialization, false},
		{KindDataLoad, false},
		{KindTraining, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.UserFixable())
		})
	}
}
