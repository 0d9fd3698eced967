package payments

import (
	"context"
	"regexp"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessedFirstSight(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processed_events")).
		WithArgs("stripe", "evt_1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewProcessedStoreWithExec(mock)
	fresh, err := store.MarkProcessed(context.Background(), "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, fresh)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessedDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO processed_events")).
		WithArgs("stripe", "evt_1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	store := NewProcessedStoreWithExec(mock)
	fresh, err := store.MarkProcessed(context.Background(), "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, fresh)
	require.NoError(t, mock.ExpectationsWereMet())
}
