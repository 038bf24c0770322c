package pg

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opinio-dev/opinio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCreateSession(t *testing.T, adminId domain.AdminId) domain.Session {
	t.Helper()
	sess := domain.Session{
		Id:        uuid.NewString(),
		AdminId:   adminId,
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond),
	}
	require.NoError(t, storage.CreateSession(sess))
	return sess
}

func TestSessionRoundTrip(t *testing.T) {
	adminId := mustSaveAdmin(t, uniqueEmail("sess"))
	sess := mustCreateSession(t, adminId)

	got, err := storage.Session(sess.Id)
	require.NoError(t, err)
	assert.Equal(t, sess.Id, got.Id)
	assert.Equal(t, adminId, got.AdminId)
	assert.False(t, got.ResetVerified)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)
}

func TestSessionNotFound(t *testing.T) {
	_, err := storage.Session(uuid.NewString())
	require.Error(t, err)
	assertStatus(t, err, http.StatusNotFound)
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	adminId := mustSaveAdmin(t, uniqueEmail("sess-del"))
	sess := mustCreateSession(t, adminId)

	require.NoError(t, storage.DeleteSession(sess.Id))
	_, err := storage.Session(sess.Id)
	require.Error(t, err)

	// repeatable deletion is what makes logout idempotent
	require.NoError(t, storage.DeleteSession(sess.Id))
	require.NoError(t, storage.DeleteSession(uuid.NewString()))
}

func TestResetMarkerRoundTrip(t *testing.T) {
	adminId := mustSaveAdmin(t, uniqueEmail("sess-reset"))
	sess := domain.Session{
		Id:            uuid.NewString(),
		AdminId:       adminId,
		ResetVerified: true,
		ExpiresAt:     time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond),
	}
	require.NoError(t, storage.CreateSession(sess))

	got, err := storage.Session(sess.Id)
	require.NoError(t, err)
	assert.True(t, got.ResetVerified)
}

func TestDeletingAdminCascadesSessions(t *testing.T) {
	email := uniqueEmail("sess-cascade")
	adminId := mustSaveAdmin(t, email)
	sess := mustCreateSession(t, adminId)

	_, err := storage.db.Exec("DELETE FROM admins WHERE id = $1", adminId)
	require.NoError(t, err)

	_, err = storage.Session(sess.Id)
	require.Error(t, err)
	assertStatus(t, err, http.StatusNotFound)
}
