package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionKind(t *testing.T) {
	for _, kind := range []ActionKind{ActionNone, ActionBuyIn, ActionRefund, ActionTransfer} {
		parsed, err := ParseActionKind(kind.String())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseActionKind("withdraw")
	assert.True(t, errors.Is(err, ErrUnknownAction))
}

func TestActionKind_Text(t *testing.T) {
	text, err := ActionRefund.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "refund", string(text))

	var kind ActionKind
	require.NoError(t, kind.UnmarshalText([]byte("transfer")))
	assert.Equal(t, ActionTransfer, kind)

	_, err = ActionKind(42).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "unknown", ActionKind(42).String())
}
