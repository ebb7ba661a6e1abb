package files

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ledgerviz/internal/config"
	apphttp "ledgerviz/internal/http"
	"ledgerviz/internal/logging"
	"ledgerviz/internal/models"
	"ledgerviz/internal/services/dataloader"
	"ledgerviz/internal/services/storage"
)

var (
	loader   *dataloader.DataLoader
	store    *storage.Storage
	settings *config.SettingsStore
)

// Initialize sets up the files package with required dependencies
func Initialize(l *dataloader.DataLoader, s *storage.Storage, us *config.SettingsStore) {
	loader = l
	store = s
	settings = us
}

// RegisterRoutes registers the ledger export management routes
func RegisterRoutes(r chi.Router) {
	r.Get("/api/files", handleList)
	r.Post("/api/files/toggle", handleToggle)
	r.Post("/api/files/upload", handleUpload)
	r.Delete("/api/files/{filename}", handleDelete)
}

// validName rejects anything that is not a plain file name
func validName(name string) bool {
	return name != "" && name != "." &&
		!strings.Contains(name, "/") && !strings.Contains(name, "\\") && !strings.Contains(name, "..")
}

// validExport accepts only plain CSV export names, keeping the storage
// marker files out of reach
func validExport(name string) bool {
	return validName(name) && strings.HasSuffix(strings.ToLower(name), ".csv")
}

func writeFileList(w http.ResponseWriter, r *http.Request) {
	current, err := settings.Load()
	if err != nil {
		logging.FromContext(r.Context()).Warn("using default user settings", zap.Error(err))
	}
	loader.SetDisabledFiles(current.DisabledFiles)

	infos, err := loader.GetFileInfo()
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	if infos == nil {
		infos = []models.FileInfo{}
	}
	apphttp.JSON(w, http.StatusOK, map[string]interface{}{"files": infos})
}

func handleList(w http.ResponseWriter, r *http.Request) {
	writeFileList(w, r)
}

// handleToggle enables or disables one export; the choice is saved in the
// user settings
func handleToggle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("invalid form: %v", err))
		return
	}

	filename := r.FormValue("file")
	enabled := r.FormValue("enabled") == "true"
	if !validExport(filename) {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("invalid filename %q", filename))
		return
	}

	if _, err := settings.Update(func(s *config.UserSettings) {
		s.DisabledFiles = setMember(s.DisabledFiles, filename, !enabled)
	}); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("file toggled", zap.String("file", filename), zap.Bool("enabled", enabled))
	writeFileList(w, r)
}

// setMember returns list with name present or absent
func setMember(list []string, name string, present bool) []string {
	result := make([]string, 0, len(list)+1)
	for _, f := range list {
		if f != name {
			result = append(result, f)
		}
	}
	if present {
		result = append(result, name)
	}
	return result
}

// uniqueName keeps name unless an export of that name exists, in which case
// a short random suffix is added before the extension
func uniqueName(name string) string {
	if _, err := os.Stat(store.Path(name)); errors.Is(err, os.ErrNotExist) {
		return name
	}
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "-" + uuid.NewString()[:8] + ext
}

func handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("file too large"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("missing file"))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !validExport(name) {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("only CSV files are allowed"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	name = uniqueName(name)
	if err := store.WriteFile(store.Path(name), data, 0644); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("uploaded file", zap.String("file", name), zap.Int("bytes", len(data)))
	writeFileList(w, r)
}

func handleDelete(w http.ResponseWriter, r *http.Request) {
	filename, err := url.PathUnescape(chi.URLParam(r, "filename"))
	if err != nil || !validExport(filename) {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("invalid filename"))
		return
	}

	path := store.Path(filename)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	if err := store.Remove(path); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	if _, err := settings.Update(func(s *config.UserSettings) {
		s.DisabledFiles = setMember(s.DisabledFiles, filename, false)
	}); err != nil {
		logging.FromContext(r.Context()).Warn("could not update user settings", zap.Error(err))
	}

	logging.FromContext(r.Context()).Info("deleted file", zap.String("file", filename))
	writeFileList(w, r)
}
