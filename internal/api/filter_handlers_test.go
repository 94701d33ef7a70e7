package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yuigahama/tsundoku/internal/models"
	"github.com/yuigahama/tsundoku/internal/testutil"
)

func TestFilterHandlers(t *testing.T) {
	server, _ := testutil.SetupTestServer(t)
	router := server.Router()
	cookie := testutil.GetAuthCookie(t, server, "filteruser", "password", "user")

	t.Run("List Starts Empty", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/api/filters", nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
		var filters []models.ContentFilter
		if err := json.Unmarshal(rr.Body.Bytes(), &filters); err != nil {
			t.Fatalf("Could not unmarshal response body: %v", err)
		}
		if len(filters) != 0 {
			t.Errorf("Expected no filters, got %d", len(filters))
		}
	})

	var created models.ContentFilter
	t.Run("Add Filter", func(t *testing.T) {
		payload := `{"provider_id":"mockdex","kind":"language","value":"en"}`
		req, _ := http.NewRequest("POST", "/api/filters", bytes.NewBufferString(payload))
		req.AddCookie(cookie)
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusCreated {
			t.Fatalf("handler returned wrong status code: got %v want %v: %s", rr.Code, http.StatusCreated, rr.Body.String())
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
			t.Fatalf("Could not unmarshal response body: %v", err)
		}
		if created.ID == 0 || created.Kind != "language" {
			t.Errorf("Unexpected created filter: %+v", created)
		}
	})

	t.Run("Rejects Unknown Kind", func(t *testing.T) {
		payload := `{"kind":"regex","value":".*"}`
		req, _ := http.NewRequest("POST", "/api/filters", bytes.NewBufferString(payload))
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
		}
	})

	t.Run("Rejects Empty Value", func(t *testing.T) {
		payload := `{"kind":"keyword","value":""}`
		req, _ := http.NewRequest("POST", "/api/filters", bytes.NewBufferString(payload))
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
		}
	})

	t.Run("Delete Filter", func(t *testing.T) {
		req, _ := http.NewRequest("DELETE", fmt.Sprintf("/api/filters/%d", created.ID), nil)
		req.AddCookie(cookie)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Fatalf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusNoContent)
		}

		req, _ = http.NewRequest("GET", "/api/filters", nil)
		req.AddCookie(cookie)
		rr = httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		var filters []models.ContentFilter
		if err := json.Unmarshal(rr.Body.Bytes(), &filters); err != nil {
			t.Fatalf("Could not unmarshal response body: %v", err)
		}
		if len(filters) != 0 {
			t.Errorf("Expected no filters after delete, got %d", len(filters))
		}
	})
}
