package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brokerhub/internal/database"
	brokertest "brokerhub/internal/testing"
)

// fakeStore is an in-memory ObjectStore
type fakeStore struct {
	objects map[string][]byte
	deleted []string
	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (f *fakeStore) Upload(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]types.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []types.Object
	for key, data := range f.objects {
		out = append(out, types.Object{
			Key:  aws.String(key),
			Size: aws.Int64(int64(len(data))),
		})
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func TestCreateAndUpload(t *testing.T) {
	accountsDB, cleanupAccounts := brokertest.NewTestDB(t, "accounts")
	defer cleanupAccounts()
	ledgerDB, cleanupLedger := brokertest.NewTestDB(t, "ledger")
	defer cleanupLedger()

	store := newFakeStore()
	svc := NewBackupService(map[string]*database.DB{
		"accounts": accountsDB,
		"ledger":   ledgerDB,
	}, store, t.TempDir(), zerolog.Nop())

	require.NoError(t, svc.CreateAndUpload(context.Background()))
	require.Len(t, store.objects, 1)

	// Inspect the uploaded archive
	var archive []byte
	for _, data := range store.objects {
		archive = data
	}

	gzr, err := gzip.NewReader(bytes.NewReader(archive))
	require.NoError(t, err)
	tr := tar.NewReader(gzr)

	found := map[string][]byte{}
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		found[header.Name] = data
	}

	assert.Contains(t, found, "accounts.db")
	assert.Contains(t, found, "ledger.db")
	require.Contains(t, found, "backup-metadata.json")

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(found["backup-metadata.json"], &metadata))
	require.Len(t, metadata.Databases, 2)
	for _, db := range metadata.Databases {
		assert.Contains(t, db.Checksum, "sha256:")
		assert.Greater(t, db.SizeBytes, int64(0))
	}
}

func seedBackups(store *fakeStore, ages ...time.Duration) {
	for _, age := range ages {
		name := backupPrefix + time.Now().Add(-age).Format("2006-01-02-150405") + ".tar.gz"
		store.objects[name] = []byte("archive")
	}
}

func TestListBackupsNewestFirst(t *testing.T) {
	store := newFakeStore()
	seedBackups(store, 72*time.Hour, 24*time.Hour, 48*time.Hour)
	store.objects["unrelated.txt"] = []byte("junk")

	svc := NewBackupService(nil, store, t.TempDir(), zerolog.Nop())

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3, "non-backup objects ignored")
	assert.True(t, backups[0].Timestamp.After(backups[1].Timestamp))
	assert.True(t, backups[1].Timestamp.After(backups[2].Timestamp))
}

func TestRotateOldBackups(t *testing.T) {
	store := newFakeStore()
	// Three recent, two beyond the 7 day retention
	seedBackups(store,
		time.Hour,
		2*time.Hour,
		3*time.Hour,
		10*24*time.Hour,
		20*24*time.Hour,
	)

	svc := NewBackupService(nil, store, t.TempDir(), zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background(), 7))
	assert.Len(t, store.deleted, 2)
	assert.Len(t, store.objects, 3)
}

func TestRotateKeepsMinimum(t *testing.T) {
	store := newFakeStore()
	// All ancient, but below the floor
	seedBackups(store, 100*24*time.Hour, 200*24*time.Hour, 300*24*time.Hour)

	svc := NewBackupService(nil, store, t.TempDir(), zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background(), 7))
	assert.Empty(t, store.deleted)
}

func TestRotateDisabled(t *testing.T) {
	store := newFakeStore()
	store.listErr = io.ErrUnexpectedEOF

	svc := NewBackupService(nil, store, t.TempDir(), zerolog.Nop())

	// Retention 0 never touches the store
	assert.NoError(t, svc.RotateOldBackups(context.Background(), 0))
}
