package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/KidRide/kidride-backend/internal/store"
)

func (q *queries) GetBookingEndDate(ctx context.Context, bookingID string) (time.Time, error) {
	var end time.Time
	if err := q.db.QueryRow(ctx, `SELECT end_date FROM bookings WHERE id = $1`, bookingID).Scan(&end); err != nil {
		return time.Time{}, mapError(err, "get booking end date")
	}
	return end, nil
}

func (q *queries) SetBookingStatus(ctx context.Context, bookingID, status, reason string) error {
	tag, err := q.db.Exec(ctx,
		`UPDATE bookings SET status = $2, status_reason = $3, updated_at = NOW() WHERE id = $1`,
		bookingID, status, reason)
	if err != nil {
		return mapError(err, "set booking status")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set booking status %s: %w", bookingID, store.ErrNotFound)
	}
	return nil
}
