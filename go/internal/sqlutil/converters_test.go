package sqlutil_test

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/hackjudge/go/internal/models"
	"github.com/mcdev12/hackjudge/go/internal/sqlutil"
)

func TestNullJSONKeepsNilAsNull(t *testing.T) {
	raw, err := sqlutil.ToNullJSON[models.PresentationSlot](nil)
	require.NoError(t, err)
	assert.False(t, raw.Valid)

	slots, err := sqlutil.FromNullJSON[models.PresentationSlot](raw)
	require.NoError(t, err)
	assert.Nil(t, slots)
}

func TestNullJSONSlots(t *testing.T) {
	in := []models.PresentationSlot{{
		ProjectDevpostID: "rover",
		ProjectName:      "Rover",
		DurationMinutes:  5,
		Status:           models.SlotStatusUpcoming,
		TimerState:       models.TimerState{RemainingSeconds: 300},
	}}

	raw, err := sqlutil.ToNullJSON(in)
	require.NoError(t, err)
	require.True(t, raw.Valid)
	assert.Contains(t, string(raw.RawMessage), `"remainingSeconds":300`)

	out, err := sqlutil.FromNullJSON[models.PresentationSlot](raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNullableConverters(t *testing.T) {
	assert.Nil(t, sqlutil.FromNullUUID(uuid.NullUUID{}))
	id := uuid.New()
	assert.Equal(t, &id, sqlutil.FromNullUUID(sqlutil.ToNullUUID(&id)))

	assert.Nil(t, sqlutil.FromSqlStringPtr(sql.NullString{}))
	name := "rover"
	assert.Equal(t, &name, sqlutil.FromSqlStringPtr(sqlutil.ToSqlString(&name)))
}
