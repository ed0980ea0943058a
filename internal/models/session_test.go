package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionState(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := Session{StartTS: start, EndTS: start.Add(20 * time.Minute)}

	assert.Equal(t, SessionStateOpen, s.State(start))
	assert.True(t, s.Open(s.EndTS))
	assert.Equal(t, SessionStateExpired, s.State(s.EndTS.Add(time.Nanosecond)))
	assert.False(t, s.Open(s.EndTS.Add(time.Second)))
}

func TestAttendanceMethodValid(t *testing.T) {
	for _, m := range []AttendanceMethod{MethodQR, MethodCode, MethodNFC} {
		assert.True(t, m.Valid(), string(m))
	}
	assert.False(t, AttendanceMethod("face").Valid())
	assert.False(t, UserRole("superadmin").Valid())
	assert.True(t, RoleTeacher.Valid())
}
