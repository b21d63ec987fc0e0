package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"brokerhub/internal/database"
)

// backupPrefix names every archive this service writes
const backupPrefix = "brokerhub-backup-"

// minBackupsToKeep are never rotated away regardless of age
const minBackupsToKeep = 3

// ObjectStore is the object storage surface the backup service needs
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	List(ctx context.Context, prefix string) ([]types.Object, error)
	Delete(ctx context.Context, key string) error
}

// BackupService snapshots the sqlite databases into a tar.gz archive and
// ships it to object storage.
type BackupService struct {
	databases map[string]*database.DB
	store     ObjectStore
	dataDir   string
	log       zerolog.Logger
}

// BackupMetadata describes the contents of one backup archive
type BackupMetadata struct {
	Timestamp time.Time          `json:"timestamp"`
	Databases []DatabaseMetadata `json:"databases"`
}

// DatabaseMetadata describes a single database file in the backup
type DatabaseMetadata struct {
	Name      string `json:"name"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupInfo describes a backup stored remotely
type BackupInfo struct {
	Filename  string    `json:"filename"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
}

// NewBackupService creates a backup service over the given databases
func NewBackupService(databases map[string]*database.DB, store ObjectStore, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		store:     store,
		dataDir:   dataDir,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload snapshots every database and uploads one archive.
// Snapshots use VACUUM INTO, which is atomic against concurrent writers.
func (s *BackupService) CreateAndUpload(ctx context.Context) error {
	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Databases: make([]DatabaseMetadata, 0, len(s.databases)),
	}

	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		snapshotPath := filepath.Join(stagingDir, name+".db")
		if err := s.snapshotDatabase(name, snapshotPath); err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", name, err)
		}

		info, err := os.Stat(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to stat %s snapshot: %w", name, err)
		}
		checksum, err := checksumFile(snapshotPath)
		if err != nil {
			return fmt.Errorf("failed to checksum %s snapshot: %w", name, err)
		}

		metadata.Databases = append(metadata.Databases, DatabaseMetadata{
			Name:      name,
			Filename:  name + ".db",
			SizeBytes: info.Size(),
			Checksum:  checksum,
		})
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	archiveName := backupPrefix + time.Now().Format("2006-01-02-150405") + ".tar.gz"
	archivePath := filepath.Join(stagingDir, archiveName)

	files := make([]string, 0, len(names)+1)
	for _, name := range names {
		files = append(files, name+".db")
	}
	files = append(files, "backup-metadata.json")

	if err := createArchive(archivePath, stagingDir, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()

	if err := s.store.Upload(ctx, archiveName, archive); err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}

	s.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Str("archive", archiveName).
		Int("databases", len(names)).
		Msg("Backup completed")

	return nil
}

// ListBackups lists the backups stored remotely, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		filename := *obj.Key

		timestampStr := strings.TrimPrefix(filename, backupPrefix)
		timestampStr = strings.TrimSuffix(timestampStr, ".tar.gz")
		timestamp, err := time.Parse("2006-01-02-150405", timestampStr)
		if err != nil {
			s.log.Warn().Str("filename", filename).Msg("Skipping object with unparseable timestamp")
			continue
		}

		var size int64
		if obj.Size != nil {
			size = *obj.Size
		}

		backups = append(backups, BackupInfo{
			Filename:  filename,
			Timestamp: timestamp,
			SizeBytes: size,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always
// keeping the newest few. retentionDays == 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= minBackupsToKeep {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted := 0

	for i, backup := range backups {
		if i < minBackupsToKeep || !backup.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, backup.Filename); err != nil {
			s.log.Error().Err(err).Str("filename", backup.Filename).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("filename", backup.Filename).Msg("Deleted old backup")
		deleted++
	}

	s.log.Info().
		Int("deleted", deleted).
		Int("remaining", len(backups)-deleted).
		Msg("Backup rotation completed")
	return nil
}

// snapshotDatabase copies one database atomically via VACUUM INTO
func (s *BackupService) snapshotDatabase(name, destPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("unknown database %q", name)
	}
	if _, err := db.Conn().Exec(fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return fmt.Errorf("VACUUM INTO failed: %w", err)
	}
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeMetadata(path string, metadata BackupMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(metadata)
}

// createArchive writes the named files from sourceDir into a tar.gz
func createArchive(archivePath, sourceDir string, filenames []string) error {
	archive, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer archive.Close()

	gzw := gzip.NewWriter(archive)
	defer gzw.Close()

	tw := tar.NewWriter(gzw)
	defer tw.Close()

	for _, filename := range filenames {
		if err := addFileToArchive(tw, filepath.Join(sourceDir, filename), filename); err != nil {
			return fmt.Errorf("failed to add %s to archive: %w", filename, err)
		}
	}
	return nil
}

func addFileToArchive(tw *tar.Writer, filePath, nameInArchive string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:    nameInArchive,
		Size:    info.Size(),
		Mode:    int64(info.Mode()),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
