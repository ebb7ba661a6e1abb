package templates

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ledgerviz/internal/logging"
)

//go:embed html
var embedded embed.FS

// Files holds the built-in templates
var Files, _ = fs.Sub(embedded, "html")

// templateDirs are scanned in order; later files may use templates
// defined by earlier ones
var templateDirs = []string{"layouts", "pages", "partials"}

// Renderer handles template rendering
type Renderer struct {
	fsys      fs.FS
	debug     bool
	mu        sync.RWMutex
	templates *template.Template
}

// New parses every template in fsys. In debug mode templates are reparsed
// on each render.
func New(fsys fs.FS, debug bool) (*Renderer, error) {
	r := &Renderer{fsys: fsys, debug: debug}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"formatMoney":   formatMoney,
		"formatPercent": formatPercent,
		"formatDate":    formatDate,
		"colorClass":    colorClass,
		"toJSON":        toJSON,
		"join":          strings.Join,
		"lower":         strings.ToLower,
	}
}

// Reload parses the templates again
func (r *Renderer) Reload() error {
	tmpl := template.New("").Funcs(funcMap())

	var files []string
	for _, dir := range templateDirs {
		matches, err := fs.Glob(r.fsys, dir+"/*.html")
		if err != nil {
			return fmt.Errorf("glob %s: %w", dir, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no template files found")
	}

	var parseErrors []string
	for _, file := range files {
		content, err := fs.ReadFile(r.fsys, file)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Sprintf("%s: %v", file, err))
			continue
		}
		if _, err := tmpl.New(file).Parse(string(content)); err != nil {
			parseErrors = append(parseErrors, describeParseError(file, string(content), err))
		}
	}
	if len(parseErrors) > 0 {
		for _, e := range parseErrors {
			logging.Log.Error("template parse error", zap.String("detail", e))
		}
		return fmt.Errorf("template parsing failed with %d error(s)", len(parseErrors))
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	logging.Log.Debug("templates loaded", zap.Int("files", len(files)))
	return nil
}

var lineNumberRe = regexp.MustCompile(`:(\d+):`)

// describeParseError adds the offending source line to a parse error
func describeParseError(file, content string, err error) string {
	msg := fmt.Sprintf("%s: %v", file, err)

	m := lineNumberRe.FindStringSubmatch(err.Error())
	if len(m) < 2 {
		return msg
	}
	line, convErr := strconv.Atoi(m[1])
	lines := strings.Split(content, "\n")
	if convErr != nil || line < 1 || line > len(lines) {
		return msg
	}
	return fmt.Sprintf("%s\n  %4d | %s", msg, line, lines[line-1])
}

// Render writes the named template as an HTML response
func (r *Renderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	if r.debug {
		if err := r.Reload(); err != nil {
			logging.Log.Warn("template reload failed", zap.Error(err))
		}
	}

	var buf strings.Builder
	if err := r.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Log.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := io.WriteString(w, buf.String())
	return err
}

// ExecuteTemplate executes a template to a writer
func (r *Renderer) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	r.mu.RLock()
	tmpl := r.templates
	r.mu.RUnlock()
	return tmpl.ExecuteTemplate(w, name, data)
}

// Template functions

func formatMoney(v float64) string {
	negative := v < 0
	if negative {
		v = -v
	}
	intPart, frac, _ := strings.Cut(strconv.FormatFloat(v, 'f', 2, 64), ".")

	var sb strings.Builder
	if negative {
		sb.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	sb.WriteByte('.')
	sb.WriteString(frac)
	return sb.String()
}

func formatPercent(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.1f%%", v)
	}
	return fmt.Sprintf("%.1f%%", v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func colorClass(v float64) string {
	switch {
	case v > 0:
		return "positive"
	case v < 0:
		return "negative"
	}
	return "neutral"
}

func toJSON(v interface{}) (template.JS, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(data), nil
}
