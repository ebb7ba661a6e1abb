package backup

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ledgerviz/internal/config"
	apphttp "ledgerviz/internal/http"
	"ledgerviz/internal/logging"
	"ledgerviz/internal/services/storage"
	"ledgerviz/internal/version"
)

var (
	cfg   *config.Config
	store *storage.Storage
)

// Initialize sets up the backup package with required dependencies
func Initialize(c *config.Config, s *storage.Storage) {
	cfg = c
	store = s
}

// RegisterRoutes registers the health, backup and storage routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/health", HandleHealth)
	r.Get("/api/version", HandleVersion)
	r.Get("/api/backup", HandleBackup)
	r.Post("/api/restore", HandleRestore)
	r.Delete("/api/data", HandleDeleteAllData)

	r.Get("/api/storage/status", HandleStorageStatus)
	r.Post("/api/storage/enable", HandleEnableEncryption)
	r.Post("/api/storage/disable", HandleDisableEncryption)
	r.Post("/api/storage/unlock", HandleUnlock)
	r.Post("/api/storage/lock", HandleLock)
}

func HandleHealth(w http.ResponseWriter, r *http.Request) {
	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"storage": store.Status(),
	})
}

func HandleVersion(w http.ResponseWriter, r *http.Request) {
	apphttp.JSON(w, http.StatusOK, version.Get())
}

// backupEntry reports files that belong in a backup: everything except the
// encryption bookkeeping files and half-written temporaries
func backupEntry(path string) bool {
	base := filepath.Base(path)
	return base != ".encrypted" && base != ".encryption-verify" && !strings.HasSuffix(base, ".tmp")
}

// writeBackup zips the data directory into w. Files are stored decrypted
// so the archive can be restored anywhere.
func writeBackup(w io.Writer) (int, error) {
	zw := zip.NewWriter(w)
	count := 0

	dataDir := store.BaseDir()
	err := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !backupEntry(path) {
			return nil
		}

		relPath, err := filepath.Rel(dataDir, path)
		if err != nil {
			return err
		}

		data, err := store.ReadFile(path)
		if err != nil {
			return err
		}

		f, err := zw.Create(filepath.ToSlash(relPath))
		if err != nil {
			return err
		}
		if _, err := f.Write(data); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, zw.Close()
}

func HandleBackup(w http.ResponseWriter, r *http.Request) {
	if !store.IsUnlocked() {
		apphttp.ErrorResponse(w, r, storage.ErrLocked)
		return
	}

	var buf bytes.Buffer
	count, err := writeBackup(&buf)
	if err != nil {
		apphttp.ErrorResponse(w, r, fmt.Errorf("create backup: %w", err))
		return
	}

	filename := fmt.Sprintf("ledgerviz_backup_%s.zip", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Write(buf.Bytes())

	logging.FromContext(r.Context()).Info("backup created", zap.Int("files", count), zap.Int("bytes", buf.Len()))
}

// restoreArchive writes every CSV export in the archive into the data
// directory, flattening paths
func restoreArchive(zr *zip.Reader, log *zap.Logger) (int, error) {
	restored := 0
	for _, zipFile := range zr.File {
		if zipFile.FileInfo().IsDir() || !strings.HasSuffix(strings.ToLower(zipFile.Name), ".csv") {
			continue
		}

		baseName := filepath.Base(zipFile.Name)
		if strings.Contains(baseName, "..") {
			continue
		}

		rc, err := zipFile.Open()
		if err != nil {
			log.Warn("skipping unreadable backup entry", zap.String("entry", zipFile.Name), zap.Error(err))
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			log.Warn("skipping unreadable backup entry", zap.String("entry", zipFile.Name), zap.Error(err))
			continue
		}

		if err := store.WriteFile(store.Path(baseName), data, 0644); err != nil {
			return restored, fmt.Errorf("restore %s: %w", baseName, err)
		}
		restored++
		log.Debug("restored file", zap.String("file", baseName))
	}
	return restored, nil
}

func HandleRestore(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(50 << 20); err != nil {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("file too large"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("missing file"))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".zip") {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("only ZIP backup files are allowed"))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		apphttp.ErrorResponse(w, r, fmt.Errorf("read upload: %w", err))
		return
	}

	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("invalid ZIP file"))
		return
	}

	log := logging.FromContext(r.Context())
	restored, err := restoreArchive(zr, log)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	if restored == 0 {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("no CSV files found in backup"))
		return
	}

	log.Info("restore complete", zap.Int("files", restored))
	apphttp.JSON(w, http.StatusOK, map[string]int{"restored": restored})
}

// HandleDeleteAllData removes every ledger export from the data directory
func HandleDeleteAllData(w http.ResponseWriter, r *http.Request) {
	files, err := store.Glob("*.csv")
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	log := logging.FromContext(r.Context())
	deleted := 0
	for _, path := range files {
		if err := store.Remove(path); err != nil {
			log.Warn("failed to delete file", zap.String("file", filepath.Base(path)), zap.Error(err))
			continue
		}
		deleted++
	}

	log.Info("deleted data files", zap.Int("files", deleted))
	apphttp.JSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}
