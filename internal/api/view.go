package api

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	noteNotStructured = "No structured data available"
	noteInvalidData   = "Invalid data format"
)

var userViewTmpl = template.Must(template.New("user").Parse(`<html>
  <head><title>User Info</title></head>
  <body>
    <table border="1" cellpadding="8">
      <thead>
        <tr><th colspan="2">Phone: {{.Phone}}</th></tr>
      </thead>
      <tbody>
        <tr><td>Email</td><td>{{.Email}}</td></tr>
        <tr><td colspan="2"><b>Data</b></td></tr>
        {{- range .Rows}}
        <tr><td>{{.Key}}</td><td>{{.Value}}</td></tr>
        {{- end}}
        {{- with .Note}}
        <tr><td colspan="2">{{.}}</td></tr>
        {{- end}}
      </tbody>
    </table>
  </body>
</html>
`))

var notFoundTmpl = template.Must(template.New("notfound").Parse(`<h3>User ID {{.}} Not Found</h3>`))

type dataRow struct {
	Key   string
	Value string
}

type userView struct {
	Phone string
	Email string
	Rows  []dataRow
	Note  string
}

// UserView renders a user's stored record as an HTML table.
func (h *Handler) UserView(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, "id")
	userID, err := parseUserID(r)
	if err != nil {
		renderHTML(w, http.StatusNotFound, notFoundTmpl, rawID)
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil {
		slog.Error("Searching user failed", "error", err, "user_id", userID)
		http.Error(w, "Server Error", http.StatusInternalServerError)
		return
	}
	if user == nil {
		renderHTML(w, http.StatusNotFound, notFoundTmpl, rawID)
		return
	}

	rows, note := flattenData(user.Data)
	renderHTML(w, http.StatusOK, userViewTmpl, userView{
		Phone: user.Phone,
		Email: user.Email,
		Rows:  rows,
		Note:  note,
	})
}

// flattenData turns a JSON object into key/value rows in document order.
// Empty data has no rows. Valid JSON that is not an object, or invalid JSON,
// yields a note instead.
func flattenData(data string) ([]dataRow, string) {
	if data == "" {
		return nil, ""
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	tok, err := dec.Token()
	if err != nil {
		return nil, noteInvalidData
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		if !json.Valid([]byte(data)) {
			return nil, noteInvalidData
		}
		return nil, noteNotStructured
	}

	var rows []dataRow
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, noteInvalidData
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, noteInvalidData
		}
		rows = append(rows, dataRow{Key: key, Value: renderValue(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, noteInvalidData
	}
	return rows, ""
}

func renderValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}

func renderHTML(w http.ResponseWriter, status int, tmpl *template.Template, data interface{}) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		slog.Error("Failed to render template", "template", tmpl.Name(), "error", err)
		http.Error(w, "Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
