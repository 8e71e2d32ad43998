//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/contactform/internal/domain"
)

func TestUserViewRendersDataInOrder(t *testing.T) {
	repo := newFakeRepo(&domain.User{
		ID:    1,
		Email: "a@x.com",
		Phone: "5551234567",
		Data:  `{"typeOfConsultation":"Medical","country":"United States","urgencyLevel":"High"}`,
	})
	router, _ := newTestRouter(t, repo, nil, time.Hour)

	rr := do(t, router, http.MethodGet, "/api/form/user/1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected HTML, got %q", ct)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"Phone: 5551234567",
		"<td>Email</td><td>a@x.com</td>",
		"<td>typeOfConsultation</td><td>Medical</td>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q:\n%s", want, body)
		}
	}
	if strings.Index(body, "typeOfConsultation") > strings.Index(body, "urgencyLevel") {
		t.Error("expected data rows in stored order")
	}
}

func TestUserViewNotFound(t *testing.T) {
	router, _ := newTestRouter(t, newFakeRepo(), nil, time.Hour)

	rr := do(t, router, http.MethodGet, "/api/form/user/99", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "User ID 99 Not Found") {
		t.Fatalf("unexpected body: %s", body)
	}
	if strings.Contains(body, "<table") {
		t.Fatal("expected no record to be rendered")
	}
}

func TestUserViewEscapesValues(t *testing.T) {
	repo := newFakeRepo(&domain.User{ID: 1, Email: "<script>x</script>", Phone: "1", Data: `{"k":"<b>v</b>"}`})
	router, _ := newTestRouter(t, repo, nil, time.Hour)

	body := do(t, router, http.MethodGet, "/api/form/user/1", "").Body.String()
	if strings.Contains(body, "<script>") || strings.Contains(body, "<b>v</b>") {
		t.Fatalf("expected values to be escaped:\n%s", body)
	}
}

func TestFlattenData(t *testing.T) {
	tests := []struct {
		name string
		data string
		rows []dataRow
		note string
	}{
		{"empty", "", nil, ""},
		{"object", `{"b":"2","a":1,"n":{"x":true}}`, []dataRow{{"b", "2"}, {"a", "1"}, {"n", `{"x":true}`}}, ""},
		{"array", `[1,2]`, nil, noteNotStructured},
		{"null", `null`, nil, noteNotStructured},
		{"invalid", `{"a":`, nil, noteInvalidData},
		{"garbage", `not json`, nil, noteInvalidData},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rows, note := flattenData(tc.data)
			if note != tc.note {
				t.Fatalf("expected note %q, got %q", tc.note, note)
			}
			if len(rows) != len(tc.rows) {
				t.Fatalf("expected %d rows, got %d (%v)", len(tc.rows), len(rows), rows)
			}
			for i := range rows {
				if rows[i] != tc.rows[i] {
					t.Errorf("row %d: expected %v, got %v", i, tc.rows[i], rows[i])
				}
			}
		})
	}
}
