package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestErrorWithReference(t *testing.T) {
	rec := httptest.NewRecorder()
	BadGateway(rec, "provider unavailable", "AIR-1-ABCD")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Error == nil {
		t.Fatalf("expected error body, got %+v", body)
	}
	if body.Error.Reference != "AIR-1-ABCD" || body.Error.Code != "UPSTREAM_FAILURE" {
		t.Fatalf("unexpected error info %+v", body.Error)
	}
}

func TestNewMeta(t *testing.T) {
	meta := NewMeta(41, 2, 20)
	if meta.Pages != 3 || !meta.HasNext || !meta.HasPrev {
		t.Fatalf("unexpected meta %+v", meta)
	}

	last := NewMeta(40, 2, 20)
	if last.HasNext {
		t.Fatalf("page 2 of 2 should not have next: %+v", last)
	}
}
