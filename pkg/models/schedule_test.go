package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule_Recurring(t *testing.T) {
	schedule, err := NewSchedule("sch-1", "wf-1", "tenant-1", "0 9 * * 1", nil)
	require.NoError(t, err)

	assert.True(t, schedule.Recurring())
	assert.True(t, schedule.Active)
	assert.True(t, schedule.NextDueAt.After(time.Now().UTC()))
}

func TestNewSchedule_OneShot(t *testing.T) {
	fireAt := time.Now().UTC().Add(time.Hour)

	schedule, err := NewSchedule("sch-2", "wf-1", "tenant-1", "", &fireAt)
	require.NoError(t, err)

	assert.False(t, schedule.Recurring())
	assert.Equal(t, fireAt, schedule.NextDueAt)
}

func TestNewSchedule_MissingSpec(t *testing.T) {
	_, err := NewSchedule("sch-3", "wf-1", "tenant-1", "", nil)
	assert.ErrorIs(t, err, ErrScheduleSpecMissing)
}

func TestNewSchedule_InvalidCron(t *testing.T) {
	_, err := NewSchedule("sch-4", "wf-1", "tenant-1", "every tuesday", nil)
	assert.ErrorIs(t, err, ErrCronExpressionInvalid)
}

func TestSchedule_Advance_Recurring(t *testing.T) {
	schedule, err := NewSchedule("sch-5", "wf-1", "tenant-1", "*/5 * * * *", nil)
	require.NoError(t, err)

	first := schedule.NextDueAt

	require.NoError(t, schedule.Advance())
	assert.True(t, schedule.Active)
	assert.True(t, schedule.NextDueAt.After(time.Now().UTC()))
	assert.False(t, schedule.NextDueAt.Before(first))
}

func TestSchedule_Advance_OneShotDeactivates(t *testing.T) {
	fireAt := time.Now().UTC().Add(-time.Minute)

	schedule, err := NewSchedule("sch-6", "wf-1", "tenant-1", "", &fireAt)
	require.NoError(t, err)

	require.NoError(t, schedule.Advance())
	assert.False(t, schedule.Active)
}
