package labs

import (
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

const labRowsJSON = `[
  {"id": 3, "Department": "CS", "Professor Name": "Ada Lovelace", "Contact": "ada@uni.edu", "Lab Name": "ML Lab", "Major": "Computer Science", "How to apply": "Email the professor", "Description": "Machine learning"},
  {"id": 7, "Department": "ME", "Professor Name": "Nikola Tesla", "Contact": "tesla@uni.edu", "Lab Name": "Robotics Lab", "Department/Major": "Mechanical Engineering", "How to apply": "Fill the form", "Description": "Robots", "created_at": "2024-01-01"}
]`

func TestRESTClientAll(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(labRowsJSON))
	}))
	defer srv.Close()

	client, err := NewRESTClient(srv.URL+"/", "anon-key", "", zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := client.All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/rest/v1/labconnect" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotQuery != "select=%2A" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
	if gotKey != "anon-key" || gotAuth != "Bearer anon-key" {
		t.Fatalf("unexpected auth headers: apikey=%q authorization=%q", gotKey, gotAuth)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.ID != 3 || first.ProfessorName != "Ada Lovelace" || first.LabName != "ML Lab" || first.HowToApply != "Email the professor" {
		t.Fatalf("unexpected first record: %+v", first)
	}

	if records[1].Major != "Mechanical Engineering" {
		t.Fatalf("expected major from alternate column, got %q", records[1].Major)
	}
	if records[1].Columns["Department/Major"] != "Mechanical Engineering" {
		t.Fatalf("expected the row to keep its original columns, got %+v", records[1].Columns)
	}
}

func TestRESTClientAllGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(labRowsJSON))
		_ = gz.Close()
	}))
	defer srv.Close()

	client, err := NewRESTClient(srv.URL, "key", "labconnect", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := client.All(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestRESTClientAllBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"relation \"public.labconnect\" does not exist"}`))
	}))
	defer srv.Close()

	client, err := NewRESTClient(srv.URL, "key", "labconnect", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = client.All(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected upstream message in error, got %v", err)
	}
}

func TestNewRESTClientValidation(t *testing.T) {
	if _, err := NewRESTClient("", "key", "", nil); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewRESTClient("https://example.supabase.co", " ", "", nil); err == nil {
		t.Fatal("expected error for empty key")
	}
}
