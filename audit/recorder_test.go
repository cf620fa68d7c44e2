package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rishabhrocktheparty-ai/Blackgpt/apperr"
	"github.com/rishabhrocktheparty-ai/Blackgpt/database"
	"github.com/rishabhrocktheparty-ai/Blackgpt/logging"
	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAppendAndTrailNewestFirst(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(db, logging.Discard())

	_, err := rec.WithClock(fixedClock(base)).Append(ctx, Entry{SignalID: "s1", ActorID: "u1", Action: models.AuditCreated})
	require.NoError(t, err)
	_, err = rec.WithClock(fixedClock(base.Add(time.Minute))).Append(ctx, Entry{SignalID: "s1", ActorID: "u2", Action: models.AuditVerified, Notes: "looks right"})
	require.NoError(t, err)
	// same timestamp as the previous entry; insertion order breaks the tie
	_, err = rec.WithClock(fixedClock(base.Add(time.Minute))).Append(ctx, Entry{SignalID: "s1", ActorID: "u3", Action: models.AuditCorrelated})
	require.NoError(t, err)
	_, err = rec.Append(ctx, Entry{SignalID: "other", ActorID: "u1", Action: models.AuditCreated})
	require.NoError(t, err)

	trail, err := rec.Trail(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, models.AuditCorrelated, trail[0].Action)
	assert.Equal(t, models.AuditVerified, trail[1].Action)
	assert.Equal(t, "looks right", trail[1].Notes)
	assert.Equal(t, models.AuditCreated, trail[2].Action)

	recent, err := rec.Recent(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	n, err := rec.Count(ctx, "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestTrailEmpty(t *testing.T) {
	rec := NewRecorder(database.OpenTest(t), logging.Discard())
	trail, err := rec.Trail(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, trail)
	assert.Empty(t, trail)
}

func TestAppendRequiresFields(t *testing.T) {
	rec := NewRecorder(database.OpenTest(t), logging.Discard())
	_, err := rec.Append(context.Background(), Entry{SignalID: "s1", Action: models.AuditCreated})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestWithTxRollsBack(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()
	rec := NewRecorder(db, logging.Discard())

	boom := errors.New("state change failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := rec.WithTx(tx).Append(ctx, Entry{SignalID: "s1", ActorID: "u1", Action: models.AuditFlagged}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	n, err := rec.Count(ctx, "s1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEntriesCannotBeRewritten(t *testing.T) {
	db := database.OpenTest(t)
	ctx := context.Background()
	rec := NewRecorder(db, logging.Discard())

	row, err := rec.Append(ctx, Entry{SignalID: "s1", ActorID: "u1", Action: models.AuditCreated})
	require.NoError(t, err)

	row.Notes = "tampered"
	assert.ErrorIs(t, db.Save(row).Error, models.ErrAuditImmutable)
	assert.ErrorIs(t, db.Delete(row).Error, models.ErrAuditImmutable)

	trail, err := rec.Trail(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Empty(t, trail[0].Notes)
}
