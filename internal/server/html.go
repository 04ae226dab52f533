package server

import (
	"html/template"
	"net/http"

	"github.com/IshaanNene/NewsSort/internal/classifier"
)

type formView struct {
	Headline   string
	Prediction *classifier.Prediction
	Error      string
}

var formTemplate = template.Must(template.New("form").Funcs(template.FuncMap{
	"percent": func(f float64) float64 { return f * 100 },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>News Category Classifier</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body { font-family: 'Inter', -apple-system, system-ui, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; }
        .header { background: linear-gradient(135deg, #1e293b, #334155); padding: 1.5rem 2rem; border-bottom: 1px solid #475569; }
        .header h1 { font-size: 1.5rem; background: linear-gradient(135deg, #38bdf8, #818cf8); background-clip: text; -webkit-background-clip: text; -webkit-text-fill-color: transparent; }
        .header p { color: #94a3b8; margin-top: 0.25rem; font-size: 0.875rem; }
        main { max-width: 720px; margin: 2rem auto; padding: 0 1rem; }
        textarea { width: 100%; min-height: 6rem; background: #1e293b; color: #f1f5f9; border: 1px solid #334155; border-radius: 12px; padding: 1rem; font-size: 1rem; }
        button { margin-top: 1rem; background: #38bdf8; color: #0f172a; border: 0; border-radius: 9999px; padding: 0.5rem 1.5rem; font-weight: 600; cursor: pointer; }
        .card { background: #1e293b; border: 1px solid #334155; border-radius: 12px; padding: 1.5rem; margin-top: 1.5rem; }
        .card.success { border-color: #4ade80; }
        .card.success .value { color: #4ade80; font-size: 1.5rem; font-weight: 700; }
        .card.warning { border-color: #fbbf24; color: #fbbf24; }
        .card .label { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.05em; color: #94a3b8; margin-bottom: 0.5rem; }
        .footer { text-align: center; padding: 1rem; color: #475569; font-size: 0.75rem; }
    </style>
</head>
<body>
    <div class="header">
        <h1>News Category Classifier</h1>
        <p>Enter a news headline to predict its category.</p>
    </div>
    <main>
        <form method="post" action="/classify">
            <textarea name="headline" placeholder="News headline">{{.Headline}}</textarea>
            <button type="submit">Classify</button>
        </form>
        {{if .Error}}<div class="card warning">{{.Error}}</div>{{end}}
        {{with .Prediction}}<div class="card success">
            <div class="label">Predicted Category</div>
            <div class="value">{{.Label}}</div>
            {{if .Confidence}}<div class="label">Confidence {{printf "%.1f%%" (percent .Confidence)}}</div>{{end}}
        </div>{{end}}
    </main>
    <div class="footer">NewsSort</div>
</body>
</html>`))

func (s *Server) renderForm(w http.ResponseWriter, status int, view formView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, view); err != nil {
		s.logger.Error("render form", "error", err)
	}
}
