package visualization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ledgerviz/internal/config"
	apphttp "ledgerviz/internal/http"
	"ledgerviz/internal/logging"
	"ledgerviz/internal/models"
	"ledgerviz/internal/services/classifier"
	"ledgerviz/internal/services/dataloader"
	"ledgerviz/internal/services/dates"
	"ledgerviz/internal/services/metrics"
	"ledgerviz/internal/services/render"
	viz "ledgerviz/internal/services/visualization"
	"ledgerviz/internal/templates"
)

// Dependencies are the services the visualization routes use
type Dependencies struct {
	Config     *config.Config
	Loader     *dataloader.DataLoader
	Settings   *config.SettingsStore
	Classifier *classifier.Classifier
	Builder    *viz.Builder
	Charts     *render.Renderer
	Metrics    *metrics.Service
	Templates  *templates.Renderer
}

var deps Dependencies

// Initialize sets up the visualization package with required dependencies
func Initialize(d Dependencies) {
	deps = d
}

// RegisterRoutes registers all visualization routes
func RegisterRoutes(r chi.Router) {
	r.Get("/visualization", handlePage)
	r.Post("/visualization/mode", handleSelectMode)
	r.Get("/visualization/data/{mode}", handleData)
	r.Post("/visualization/data/{mode}", handleDataFromProps)
	r.Get("/visualization/chart/{mode}.{format}", handleChart)
	r.Get("/visualization/buckets", handleBuckets)
	r.Get("/api/accounts", handleAccounts)
}

// request is a parsed chart query
type request struct {
	ledger *models.Ledger
	props  viz.Props
	mode   models.ChartMode
}

func userSettings(r *http.Request) config.UserSettings {
	settings, err := deps.Settings.Load()
	if err != nil {
		logging.FromContext(r.Context()).Warn("using default user settings", zap.Error(err))
	}
	return settings
}

func loadLedger(settings config.UserSettings) (*models.Ledger, error) {
	deps.Loader.SetDisabledFiles(settings.DisabledFiles)
	return deps.Loader.LoadData()
}

// defaultAccounts returns the category roots present in the ledger
func defaultAccounts(ledger *models.Ledger) []string {
	known := make(map[string]bool, len(ledger.AllAccounts))
	for _, a := range ledger.AllAccounts {
		known[a] = true
	}

	var roots []string
	for _, cat := range models.Categories() {
		if root := deps.Classifier.Root(cat); known[root] {
			roots = append(roots, root)
		}
	}
	return roots
}

// parseRequest reads the date range, interval, accounts and mode of a chart
// query. modeParam overrides the saved mode when set.
func parseRequest(r *http.Request, modeParam string) (*request, error) {
	settings := userSettings(r)

	ledger, err := loadLedger(settings)
	if err != nil {
		return nil, err
	}

	q := r.URL.Query()
	start, end, err := apphttp.ParseDateRange(q.Get("start"), q.Get("end"), ledger.MinDate(), ledger.MaxDate())
	if err != nil {
		return nil, err
	}

	fallback := deps.Config.DefaultInterval
	if settings.Interval.Valid() {
		fallback = settings.Interval
	}
	interval, err := apphttp.ParseInterval(q.Get("interval"), fallback)
	if err != nil {
		return nil, err
	}

	mode := settings.Mode
	if modeParam != "" {
		if mode, err = models.ParseChartMode(modeParam); err != nil {
			return nil, err
		}
	}

	selected := apphttp.SelectedAccounts(r)
	if len(selected) == 0 {
		selected = settings.DefaultAccounts
	}
	if len(selected) == 0 {
		selected = defaultAccounts(ledger)
	}

	return &request{
		ledger: ledger,
		mode:   mode,
		props: viz.Props{
			DailyAccountBalanceMap: ledger.Balances,
			AllAccounts:            ledger.AllAccounts,
			SelectedAccounts:       selected,
			StartDate:              start,
			EndDate:                end,
			Interval:               interval,
		},
	}, nil
}

// chartQuery encodes the chart parameters of req for links back to the page
func chartQuery(req *request) url.Values {
	q := url.Values{}
	q.Set("start", req.props.StartDate.Format(models.DateFormat))
	q.Set("end", req.props.EndDate.Format(models.DateFormat))
	q.Set("interval", string(req.props.Interval))
	q.Set("accounts", strings.Join(req.props.SelectedAccounts, ","))
	return q
}

func handlePage(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r, r.URL.Query().Get("mode"))
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	view, err := deps.Builder.Build(req.props, req.mode)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	render.ColorLegend(view)

	var notice string
	switch {
	case req.ledger.Len() == 0:
		notice = "No postings found. Upload a ledger export to get started."
	case view.Type == models.ChartLine && len(view.Labels) < 2:
		notice = "Pick a longer date range or a finer interval to draw a line."
	}

	query := chartQuery(req)
	chartURL := ""
	if notice == "" {
		chartURL = fmt.Sprintf("/visualization/chart/%s.svg?%s", req.mode, query.Encode())
	}

	data := map[string]interface{}{
		"Title":       "Visualization",
		"Modes":       models.ModeOptions(),
		"Mode":        req.mode,
		"ModeTitle":   req.mode.Title(),
		"ReturnQuery": query.Encode(),
		"Start":       req.props.StartDate.Format(models.DateFormat),
		"End":         req.props.EndDate.Format(models.DateFormat),
		"Interval":    req.props.Interval,
		"Intervals":   models.Intervals(),
		"Accounts":    req.props.SelectedAccounts,
		"Summary":     deps.Metrics.Summarize(req.ledger, req.props.StartDate, req.props.EndDate),
		"Notice":      notice,
		"ChartURL":    chartURL,
		"Legend":      view.Legend,
		"ChartData":   view.ChartistData(),
	}

	apphttp.RenderTemplate(w, deps.Templates, "base", data)
}

// handleSelectMode saves the chosen mode and sends the browser back to the
// page it came from
func handleSelectMode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("invalid form: %v", err))
		return
	}

	selector := models.NewModeSelector()
	if err := selector.Select(models.ChartMode(r.FormValue("mode"))); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	if _, err := deps.Settings.Update(func(s *config.UserSettings) {
		s.Mode = selector.Current()
	}); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("chart mode selected", zap.String("mode", string(selector.Current())))

	target := "/visualization"
	// only the query string is taken from the form so the redirect stays local
	if values, err := url.ParseQuery(r.FormValue("return")); err == nil {
		values.Del("mode")
		if len(values) > 0 {
			target += "?" + values.Encode()
		}
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// dataResponse is a chart view plus the same data in Chartist's shape
type dataResponse struct {
	*models.ChartView
	Data map[string]interface{} `json:"data"`
}

func writeView(w http.ResponseWriter, view *models.ChartView) {
	render.ColorLegend(view)
	apphttp.JSON(w, http.StatusOK, dataResponse{ChartView: view, Data: view.ChartistData()})
}

func handleData(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r, chi.URLParam(r, "mode"))
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	view, err := deps.Builder.Build(req.props, req.mode)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	writeView(w, view)
}

// propsRequest is the JSON body accepted by handleDataFromProps. Dates are
// YYYY-MM-DD or RFC 3339.
type propsRequest struct {
	DailyAccountBalanceMap models.BalanceMap `json:"dailyAccountBalanceMap"`
	AllAccounts            []string          `json:"allAccounts"`
	SelectedAccounts       []string          `json:"selectedAccounts"`
	StartDate              string            `json:"startDate"`
	EndDate                string            `json:"endDate"`
	Interval               string            `json:"interval"`
}

func parseBodyDate(name, s string) (time.Time, error) {
	if t, err := dates.ParseDate(s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, apphttp.BadRequest("invalid %s %q", name, s)
}

// handleDataFromProps builds a view from caller-supplied balances instead of
// the loaded ledger
func handleDataFromProps(w http.ResponseWriter, r *http.Request) {
	mode, err := models.ParseChartMode(chi.URLParam(r, "mode"))
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	var body propsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 10<<20)).Decode(&body); err != nil {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("invalid JSON body: %v", err))
		return
	}

	// lookups compare keys as strings, so only YYYY-MM-DD keys order correctly
	for key := range body.DailyAccountBalanceMap {
		if _, err := dates.ParseDate(key); err != nil {
			apphttp.ErrorResponse(w, r, apphttp.BadRequest("invalid dailyAccountBalanceMap date %q", key))
			return
		}
	}

	start, err := parseBodyDate("startDate", body.StartDate)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	end, err := parseBodyDate("endDate", body.EndDate)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	if end.Before(start) {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("endDate is before startDate"))
		return
	}

	interval, err := apphttp.ParseInterval(body.Interval, deps.Config.DefaultInterval)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	view, err := deps.Builder.Build(viz.Props{
		DailyAccountBalanceMap: body.DailyAccountBalanceMap,
		AllAccounts:            body.AllAccounts,
		SelectedAccounts:       body.SelectedAccounts,
		StartDate:              start,
		EndDate:                end,
		Interval:               interval,
	}, mode)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	writeView(w, view)
}

func handleChart(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	req, err := parseRequest(r, chi.URLParam(r, "mode"))
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	view, err := deps.Builder.Build(req.props, req.mode)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := deps.Charts.Render(view, format, &buf); err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// handleBuckets lists the date buckets for a range, plus the bucket before
// the first one that deltas are measured from
func handleBuckets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		apphttp.ErrorResponse(w, r, apphttp.BadRequest("start and end are required"))
		return
	}

	start, end, err := apphttp.ParseDateRange(q.Get("start"), q.Get("end"), time.Time{}, time.Time{})
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	interval, err := apphttp.ParseInterval(q.Get("interval"), deps.Config.DefaultInterval)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	buckets, err := dates.MakeBucketNames(interval, start, end)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}
	previous, err := dates.PreviousBucket(interval, start)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"interval": interval,
		"buckets":  buckets,
		"previous": previous,
	})
}

// handleAccounts lists every account in the ledger grouped by category
func handleAccounts(w http.ResponseWriter, r *http.Request) {
	settings := userSettings(r)
	ledger, err := loadLedger(settings)
	if err != nil {
		apphttp.ErrorResponse(w, r, err)
		return
	}

	apphttp.JSON(w, http.StatusOK, map[string]interface{}{
		"accounts":   ledger.AllAccounts,
		"categories": deps.Classifier.Partition(ledger.AllAccounts),
		"defaults":   defaultAccounts(ledger),
	})
}
