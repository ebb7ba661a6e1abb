package backup

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apphttp "ledgerviz/internal/http"
	"ledgerviz/internal/logging"
)

// readPassword takes the password from a JSON body or a form field
func readPassword(r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", apphttp.BadRequest("invalid JSON body")
		}
		if body.Password == "" {
			return "", apphttp.BadRequest("password is required")
		}
		return body.Password, nil
	}

	password := r.FormValue("password")
	if password == "" {
		return "", apphttp.BadRequest("password is required")
	}
	return password, nil
}

func HandleStorageStatus(w http.ResponseWriter, r *http.Request) {
	apphttp.JSON(w, http.StatusOK, store.Status())
}

func HandleEnableEncryption(w http.ResponseWriter, r *http.Request) {
	passwordAction(w, r, "encryption enabled", store.EnableEncryption)
}

func HandleDisableEncryption(w http.ResponseWriter, r *http.Request) {
	passwordAction(w, r, "encryption disabled", store.DisableEncryption)
}

func HandleUnlock(w http.ResponseWriter, r *http.Request) {
	passwordAction(w, r, "storage unlocked", store.Unlock)
}

func HandleLock(w http.ResponseWriter, r *http.Request) {
	store.Lock()
	logging.FromContext(r.Context()).Info("storage locked")
	apphttp.JSON(w, http.StatusOK, store.Status())
}

// passwordAction runs fn with the request's password and replies with the
// resulting storage status
func passwordAction(w http.ResponseWriter, r *http.Request, msg string, fn func(string) error) {
	password, err := readPassword(r)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	if err := fn(password); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info(msg, zap.Bool("encrypted", store.IsEncrypted()))
	apphttp.JSON(w, http.StatusOK, store.Status())
}
