package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/foodops-backend/pkg/enums"
)

func TestDeadLetterAndRequeue(t *testing.T) {
	row := OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPayoutRequested,
		AggregateType: enums.AggregatePayout,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":1,"eventId":"e-1","data":{}}`),
		AttemptCount:  4,
	}

	letter := row.DeadLetter(enums.OutboxDLQReasonMaxAttempts, errors.New("broker timeout"), 5)
	assert.Equal(t, row.ID, letter.EventID)
	assert.Equal(t, 5, letter.AttemptCount)
	assert.False(t, letter.FailedAt.IsZero())
	require.NotNil(t, letter.ErrorMessage)
	assert.Equal(t, "broker timeout", *letter.ErrorMessage)

	again := letter.Requeue()
	assert.NotEqual(t, row.ID, again.ID)
	assert.Equal(t, row.AggregateID, again.AggregateID)
	assert.Equal(t, row.EventType, again.EventType)
	assert.JSONEq(t, string(row.Payload), string(again.Payload))
	assert.Zero(t, again.AttemptCount)

	assert.Nil(t, row.DeadLetter(enums.OutboxDLQReasonNonRetryable, nil, 0).ErrorMessage)
}
