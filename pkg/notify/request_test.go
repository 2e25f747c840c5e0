package notify_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-notification-engine/pkg/notify"
)

func TestRequestTarget(t *testing.T) {
	t.Run("returns the only target", func(t *testing.T) {
		req := notify.Request{TopicTarget: &notify.TopicTarget{Topic: "news"}}
		target, err := req.Target()
		require.NoError(t, err)
		assert.Equal(t, notify.TopicTarget{Topic: "news"}, target)
	})

	t.Run("no target is an invalid argument", func(t *testing.T) {
		_, err := (&notify.Request{}).Target()
		require.Error(t, err)
		assert.True(t, errors.Is(err, notify.ErrInvalidArgument))
	})

	t.Run("two targets are an invalid argument", func(t *testing.T) {
		req := notify.Request{
			TopicTarget:    &notify.TopicTarget{Topic: "news"},
			DocumentTarget: &notify.DocumentTarget{Path: "users/u1", TokenField: "fcm"},
		}
		_, err := req.Target()

		var verr *notify.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "target", verr.Field)
		assert.ErrorIs(t, err, notify.ErrInvalidArgument)
	})
}

func TestRequestPayload(t *testing.T) {
	badge := 4
	req := notify.Request{
		Title:      "T",
		Body:       "B",
		Link:       "app://inbox",
		Data:       map[string]string{"k": "v"},
		ChannelID:  "alerts",
		BadgeCount: &badge,
	}

	payload := req.Payload()

	assert.Equal(t, map[string]string{"k": "v", notify.LinkDataKey: "app://inbox"}, payload.Data)
	assert.Equal(t, "alerts", payload.ChannelID)
	assert.Equal(t, 4, *payload.BadgeCount)
	assert.NotContains(t, req.Data, notify.LinkDataKey, "request data must not be mutated")

	t.Run("no link leaves data untouched", func(t *testing.T) {
		plain := notify.Request{Title: "T", Body: "B"}
		assert.Empty(t, plain.Payload().Data)
	})
}

func TestOperator(t *testing.T) {
	assert.True(t, notify.OpIn.Valid())
	assert.False(t, notify.Operator("between").Valid())
	assert.False(t, notify.OpIsNull.NeedsValue())
	assert.True(t, notify.OpEquals.NeedsValue())
	assert.True(t, notify.OpNotIn.NeedsList())
	assert.False(t, notify.OpArrayContains.NeedsList())
}
