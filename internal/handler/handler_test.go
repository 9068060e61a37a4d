package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/Fronut/Picture-management-website/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseSearchCriteria(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet,
		"/api/images/search?keyword=sunset&tags=beach,%20sea%20,&min_width=800&privacy_level=private&only_own=true&sort_by=fileSize&sort_dir=asc&page=2&per_page=50",
		nil)

	criteria, err := parseSearchCriteria(r)
	if err != nil {
		t.Fatalf("parseSearchCriteria() error: %v", err)
	}

	if criteria.Keyword != "sunset" {
		t.Errorf("keyword = %q", criteria.Keyword)
	}
	if len(criteria.Tags) != 2 || criteria.Tags[0] != "beach" || criteria.Tags[1] != "sea" {
		t.Errorf("tags = %v, want [beach sea] trimmed", criteria.Tags)
	}
	if criteria.MinWidth == nil || *criteria.MinWidth != 800 {
		t.Errorf("min_width = %v, want 800", criteria.MinWidth)
	}
	if criteria.PrivacyLevel == nil || *criteria.PrivacyLevel != domain.PrivacyPrivate {
		t.Errorf("privacy_level = %v, want PRIVATE (uppercased)", criteria.PrivacyLevel)
	}
	if !criteria.OnlyOwn {
		t.Error("only_own not parsed")
	}
	if criteria.SortBy != "fileSize" || criteria.SortDir != "asc" {
		t.Errorf("sort = %s/%s", criteria.SortBy, criteria.SortDir)
	}
	if criteria.Page != 2 || criteria.PerPage != 50 {
		t.Errorf("pagination = %d/%d, want 2/50", criteria.Page, criteria.PerPage)
	}
}

func TestParseSearchCriteriaBadValues(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"bad width", "/api/images/search?min_width=wide"},
		{"bad time", "/api/images/search?uploaded_from=yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if _, err := parseSearchCriteria(r); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestRequesterID(t *testing.T) {
	userID := uuid.New()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if id, err := requesterID(r); err != nil || id != nil {
		t.Errorf("no header: id=%v err=%v, want nil/nil", id, err)
	}

	r.Header.Set(userIDHeader, userID.String())
	id, err := requesterID(r)
	if err != nil || id == nil || *id != userID {
		t.Errorf("valid header: id=%v err=%v, want %s", id, err, userID)
	}

	r.Header.Set(userIDHeader, "not-a-uuid")
	if _, err := requesterID(r); err == nil {
		t.Error("invalid header must be rejected")
	}
}

func TestRespondWithDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", domain.NewValidationError("field", "msg"), http.StatusBadRequest},
		{"out of bounds", &domain.OutOfBoundsError{SrcWidth: 10, SrcHeight: 10, Width: 20, Height: 20}, http.StatusBadRequest},
		{"duplicate", &domain.DuplicateContentError{Filenames: []string{"a.png"}}, http.StatusConflict},
		{"not found", &domain.NotFoundError{Resource: "изображение"}, http.StatusNotFound},
		{"permission", &domain.PermissionError{Action: "удаление"}, http.StatusForbidden},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			respondWithDomainError(w, tt.err, discardLogger())
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %s, want application/json", ct)
			}
		})
	}
}
