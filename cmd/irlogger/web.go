package main

import (
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/mtraver/irthermo/cache"
	"github.com/mtraver/irthermo/measurement"
)

const indexTemplate = `<!DOCTYPE html>
<html>
<head><title>{{.DeviceID}}</title></head>
<body>
<h1>{{.DeviceID}}</h1>
{{with .Latest}}
<h2>Latest</h2>
<p>{{RFC3339 .Timestamp}}</p>
<table>
{{range $name, $v := .ValueMap}}<tr><td>{{$name}}</td><td>{{printf "%.2f" $v}} °C</td></tr>
{{end}}</table>
{{else}}
<p>No measurements yet.</p>
{{end}}
{{if .Stats}}
<h2>Last {{.Count}} measurements</h2>
<table>
<tr><th></th><th>min</th><th>max</th><th>mean</th><th>std dev</th></tr>
{{range $name, $s := .Stats}}<tr><td>{{$name}}</td><td>{{printf "%.2f" $s.Min}}</td><td>{{printf "%.2f" $s.Max}}</td><td>{{printf "%.2f" $s.Mean}}</td><td>{{printf "%.3f" $s.StdDev}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`

var templates = template.Must(template.New("index").Funcs(
	template.FuncMap{
		"RFC3339": func(t time.Time) string {
			return t.Format(time.RFC3339)
		},
	}).Parse(indexTemplate))

type indexData struct {
	DeviceID string
	Latest   *measurement.Measurement
	Count    int
	Stats    map[string]measurement.Summary
}

// indexHandler renders the latest measurement and stats over the recent history.
type indexHandler struct {
	DeviceID string
	Latest   *cache.Cache[measurement.Measurement]
	History  *cache.Cache[[]measurement.Measurement]
	Template *template.Template
}

func (h indexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// "/" matches every path not matched by another pattern.
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := indexData{
		DeviceID: h.DeviceID,
	}

	if m, ok := h.Latest.Lookup(measurement.CacheKeyLatest(h.DeviceID)); ok {
		data.Latest = &m
	}

	history := h.History.Get(measurement.CacheKeyHistory(h.DeviceID))
	data.Count = len(history)
	data.Stats = measurement.Summarize(history)

	if err := h.Template.ExecuteTemplate(w, "index", data); err != nil {
		log.Printf("[web] Could not execute template: %v", err)
	}
}

// latestHandler serves the latest measurement as JSON.
type latestHandler struct {
	DeviceID string
	Latest   *cache.Cache[measurement.Measurement]
}

func (h latestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m, ok := h.Latest.Lookup(measurement.CacheKeyLatest(h.DeviceID))
	if !ok {
		http.Error(w, "no measurements yet", http.StatusNotFound)
		return
	}

	b, err := m.ToJSON("  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}
