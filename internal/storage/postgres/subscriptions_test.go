package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/sitesentry/sitesentry/internal/sentry"
)

func TestSubscriptionsListActive(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSubscriptions(mock)
	require.NoError(t, err)

	rows := pgxmock.NewRows([]string{"subscription_id", "rule_definition", "notification_channel", "is_active"}).
		AddRow("0198b7b2-0000-7000-8000-000000000001", []byte(`{"event_type":"SECTION_ADDED"}`), "alerts", true)

	mock.ExpectQuery("SELECT subscription_id, rule_definition").
		WillReturnRows(rows)

	subs, err := store.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "alerts", subs[0].Channel)
	require.Equal(t, "SECTION_ADDED", subs[0].Rule["event_type"])
	require.True(t, subs[0].IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriptionsUpsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewSubscriptions(mock)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO subscriptions").
		WithArgs(
			"0198b7b2-0000-7000-8000-000000000001",
			[]byte(`{"event_type":"SECTION_ADDED"}`),
			"alerts",
			true,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Upsert(context.Background(), sentry.Subscription{
		ID:       "0198b7b2-0000-7000-8000-000000000001",
		Rule:     map[string]any{"event_type": "SECTION_ADDED"},
		Channel:  "alerts",
		IsActive: true,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
