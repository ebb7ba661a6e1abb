package visualization

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerviz/internal/config"
	"ledgerviz/internal/models"
	"ledgerviz/internal/services/classifier"
	"ledgerviz/internal/services/dataloader"
	"ledgerviz/internal/services/metrics"
	"ledgerviz/internal/services/render"
	"ledgerviz/internal/services/storage"
	viz "ledgerviz/internal/services/visualization"
	"ledgerviz/internal/templates"
)

const ledgerCSV = `Date,Account,Amount,Description
2024-01-05,Income:Salary,-1000,Pay
2024-01-05,Assets:Checking,1000,Pay
2024-02-10,Expenses:Rent,400,Rent
2024-02-10,Assets:Checking,-400,Rent
2024-03-20,Expenses:Food,100,Groceries
2024-03-20,Assets:Checking,-100,Groceries
`

func setup(t *testing.T) (http.Handler, *config.SettingsStore) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ledger.csv"), []byte(ledgerCSV), 0644))

	store, err := storage.New(dir)
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.DataDirectory = dir

	tmpl, err := templates.New(templates.Files, false)
	require.NoError(t, err)

	settings := config.NewSettingsStore(filepath.Join(dir, "settings", "user_settings.json"), store)
	c := classifier.Default()

	Initialize(Dependencies{
		Config:     cfg,
		Loader:     dataloader.New(store),
		Settings:   settings,
		Classifier: c,
		Builder:    viz.NewBuilder(viz.WithClassifier(c)),
		Charts:     render.New(600, 300),
		Metrics:    metrics.New(c),
		Templates:  tmpl,
	})

	r := chi.NewRouter()
	RegisterRoutes(r)
	return r, settings
}

type viewJSON struct {
	Mode   string               `json:"mode"`
	Type   string               `json:"type"`
	Labels []string             `json:"labels"`
	Series []models.Series      `json:"series"`
	Ratio  *models.BalanceRatio `json:"ratio"`
	Legend []models.LegendEntry `json:"legend"`
	Data   struct {
		Labels []string        `json:"labels"`
		Series json.RawMessage `json:"series"`
	} `json:"data"`
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) viewJSON {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var v viewJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestBalanceData(t *testing.T) {
	h, _ := setup(t)

	v := decodeView(t, get(t, h, "/visualization/data/balance?interval=month"))

	assert.Equal(t, "balance", v.Mode)
	assert.Equal(t, "Line", v.Type)
	assert.Equal(t, []string{"2024-01-05", "2024-02-05", "2024-03-05"}, v.Labels)
	assert.Equal(t, v.Labels, v.Data.Labels)

	require.Len(t, v.Series, 3)
	assert.Equal(t, "Income", v.Series[0].Name)
	assert.Equal(t, "Expenses", v.Series[1].Name)
	assert.Equal(t, "Assets", v.Series[2].Name)
	assert.Equal(t, []float64{-1000, -1000, -1000}, v.Series[0].Data)
	assert.Equal(t, []float64{0, 0, 400}, v.Series[1].Data)
	assert.Equal(t, []float64{1000, 1000, 600}, v.Series[2].Data)

	require.Len(t, v.Legend, 3)
	assert.Equal(t, "ct-series-0", v.Legend[0].ClassName)
	assert.True(t, strings.HasPrefix(v.Legend[0].Color, "#"))
}

func TestPnLData(t *testing.T) {
	h, _ := setup(t)

	v := decodeView(t, get(t, h, "/visualization/data/pnl?accounts=Assets:Checking"))

	assert.Equal(t, "Bar", v.Type)
	require.Len(t, v.Series, 1)
	assert.Equal(t, []float64{1000, 0, -400}, v.Series[0].Data)
}

func TestPercentData(t *testing.T) {
	h, _ := setup(t)

	v := decodeView(t, get(t, h, "/visualization/data/percent"))

	assert.Equal(t, "Pie", v.Type)
	require.NotNil(t, v.Ratio)
	assert.InDelta(t, 1600, v.Ratio.Baseline, 1e-9)
	assert.Equal(t, []string{"25.00%", "75.00%"}, v.Ratio.Labels)
	assert.Equal(t, []float64{400, 1200}, v.Ratio.Series)
}

func TestDataRejectsBadInput(t *testing.T) {
	h, _ := setup(t)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown mode", "/visualization/data/radar"},
		{"unknown interval", "/visualization/data/balance?interval=decade"},
		{"bad date", "/visualization/data/balance?start=05/01/2024"},
		{"end before start", "/visualization/data/balance?start=2024-03-01&end=2024-02-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, get(t, h, tt.target).Code)
		})
	}
}

func TestDataFromProps(t *testing.T) {
	h, _ := setup(t)

	body := `{
		"dailyAccountBalanceMap": {
			"2024-01-01": {"Income": -100, "Expenses": 40},
			"2024-02-01": {"Income": -250, "Expenses": 90}
		},
		"allAccounts": ["Income", "Expenses"],
		"selectedAccounts": ["Income", "Expenses", "Income"],
		"startDate": "2024-01-01",
		"endDate": "2024-02-01",
		"interval": "month"
	}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/visualization/data/pnl", strings.NewReader(body)))

	v := decodeView(t, rec)
	assert.Equal(t, []string{"2024-01-01", "2024-02-01"}, v.Labels)
	require.Len(t, v.Series, 2)
	assert.Equal(t, []float64{-100, -150}, v.Series[0].Data)
	assert.Equal(t, []float64{40, 50}, v.Series[1].Data)
}

func TestDataFromPropsBadBody(t *testing.T) {
	h, _ := setup(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/visualization/data/pnl",
		strings.NewReader(`{"startDate": "yesterday"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDataFromPropsRejectsBadMapDates(t *testing.T) {
	h, _ := setup(t)

	for _, key := range []string{"2024-1-5", "2024-01-05T00:00:00Z", "05/01/2024"} {
		t.Run(key, func(t *testing.T) {
			body := `{
				"dailyAccountBalanceMap": {"2024-01-01": {"Income": -100}, "` + key + `": {"Income": -200}},
				"allAccounts": ["Income"],
				"selectedAccounts": ["Income"],
				"startDate": "2024-01-01",
				"endDate": "2024-02-01",
				"interval": "month"
			}`
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/visualization/data/balance", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), key)
		})
	}
}

func TestChartImages(t *testing.T) {
	h, _ := setup(t)

	tests := []struct {
		target      string
		contentType string
		marker      string
	}{
		{"/visualization/chart/balance.png", "image/png", "PNG"},
		{"/visualization/chart/pnl.svg", "image/svg+xml", "<svg"},
		{"/visualization/chart/percent.png", "image/png", "PNG"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, h, tt.target)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.marker)
		})
	}
}

func TestChartErrors(t *testing.T) {
	h, _ := setup(t)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/visualization/chart/balance.gif").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/visualization/chart/radar.png").Code)
	// a single bucket cannot be drawn as a line
	assert.Equal(t, http.StatusUnprocessableEntity,
		get(t, h, "/visualization/chart/balance.png?start=2024-01-05&end=2024-01-05").Code)
}

func TestPage(t *testing.T) {
	h, _ := setup(t)

	rec := get(t, h, "/visualization")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, `<option value="balance" selected>Account Balance</option>`)
	assert.Contains(t, body, "/visualization/chart/balance.svg?")
	assert.Contains(t, body, `<li class="ct-series-2"`)
	assert.Contains(t, body, "Net worth")
}

func TestSelectModePersists(t *testing.T) {
	h, settings := setup(t)

	form := url.Values{"mode": {"pnl"}, "return": {"start=2024-01-05&mode=balance"}}
	req := httptest.NewRequest(http.MethodPost, "/visualization/mode", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/visualization?start=2024-01-05", rec.Header().Get("Location"))

	saved, err := settings.Load()
	require.NoError(t, err)
	assert.Equal(t, models.ModePnL, saved.Mode)

	page := get(t, h, "/visualization")
	assert.Contains(t, page.Body.String(), `<option value="pnl" selected>Profit and Loss</option>`)
	assert.Contains(t, page.Body.String(), "/visualization/chart/pnl.svg?")
}

func TestSelectModeUnknown(t *testing.T) {
	h, settings := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/visualization/mode", strings.NewReader("mode=radar"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	saved, err := settings.Load()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMode, saved.Mode)
}

func TestBuckets(t *testing.T) {
	h, _ := setup(t)

	rec := get(t, h, "/visualization/buckets?start=2024-01-31&end=2024-04-30&interval=month")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Interval string   `json:"interval"`
		Buckets  []string `json:"buckets"`
		Previous string   `json:"previous"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "month", resp.Interval)
	assert.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}, resp.Buckets)
	assert.Equal(t, "2023-12-31", resp.Previous)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/visualization/buckets?start=2024-01-01").Code)
}

func TestAccounts(t *testing.T) {
	h, _ := setup(t)

	rec := get(t, h, "/api/accounts")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Accounts   []string            `json:"accounts"`
		Categories map[string][]string `json:"categories"`
		Defaults   []string            `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Accounts, "Expenses:Food")
	assert.Equal(t, []string{"Expenses", "Expenses:Food", "Expenses:Rent"}, resp.Categories["Expenses"])
	assert.Equal(t, []string{"Income", "Expenses", "Assets"}, resp.Defaults)
}

func TestSelectModeNormalizes(t *testing.T) {
	h, settings := setup(t)

	req := httptest.NewRequest(http.MethodPost, "/visualization/mode", strings.NewReader("mode=PERCENT"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/visualization", rec.Header().Get("Location"))

	saved, err := settings.Load()
	require.NoError(t, err)
	assert.Equal(t, models.ModePercent, saved.Mode)
}
