package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/gemchat/internal/model"
	"github.com/xxxsen/gemchat/internal/pkg/dbutil"
	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
	"github.com/xxxsen/gemchat/internal/repo"
	"github.com/xxxsen/gemchat/test/testutil"
)

func TestUploadedFileReuseWindow(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	uploads := repo.NewUploadedFileRepo(db, dbutil.DriverSQLite)
	now := int64(1_700_000_000_000)

	old := &model.UploadedFile{
		ID: "file_1", LocalPath: "/tmp/a.pdf", FileHash: "hash-a",
		RemoteURI: "files/old", MimeType: "application/pdf",
		Ctime: now - 1000, ExpiresAt: now + 1000,
	}
	newer := &model.UploadedFile{
		ID: "file_2", LocalPath: "/tmp/a_copy.pdf", FileHash: "hash-a",
		RemoteURI: "files/new", MimeType: "application/pdf",
		Ctime: now, ExpiresAt: now + 2000,
	}
	require.NoError(t, uploads.Create(context.Background(), old))
	require.NoError(t, uploads.Create(context.Background(), newer))

	got, err := uploads.GetByHash(context.Background(), "hash-a", now)
	require.NoError(t, err)
	require.Equal(t, "files/new", got.RemoteURI) // newest unexpired wins

	// expiry boundary: after everything lapsed, nothing is reusable
	_, err = uploads.GetByHash(context.Background(), "hash-a", now+2000)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = uploads.GetByHash(context.Background(), "hash-unknown", now)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestUploadedFileDeleteExpired(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	uploads := repo.NewUploadedFileRepo(db, dbutil.DriverSQLite)
	now := int64(1_700_000_000_000)

	rows := []model.UploadedFile{
		{ID: "file_1", LocalPath: "/tmp/a", FileHash: "h1", RemoteURI: "files/1", MimeType: "image/png", Ctime: now - 100, ExpiresAt: now - 1},
		{ID: "file_2", LocalPath: "/tmp/b", FileHash: "h2", RemoteURI: "files/2", MimeType: "image/png", Ctime: now - 100, ExpiresAt: now},
		{ID: "file_3", LocalPath: "/tmp/c", FileHash: "h3", RemoteURI: "files/3", MimeType: "image/png", Ctime: now - 100, ExpiresAt: now + 500},
	}
	for i := range rows {
		require.NoError(t, uploads.Create(context.Background(), &rows[i]))
	}

	removed, err := uploads.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	// the surviving row is still reusable
	got, err := uploads.GetByHash(context.Background(), "h3", now)
	require.NoError(t, err)
	require.Equal(t, "files/3", got.RemoteURI)

	removed, err = uploads.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 0, removed)
}
