package search

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Fronut/Picture-management-website/internal/domain"
)

func fragmentByName(q *Query, name string) *Fragment {
	for i := range q.Fragments {
		if q.Fragments[i].Name == name {
			return &q.Fragments[i]
		}
	}
	return nil
}

func TestBuildVisibility(t *testing.T) {
	userID := uuid.New()
	public := domain.PrivacyPublic
	private := domain.PrivacyPrivate

	tests := []struct {
		name      string
		criteria  Criteria
		requester *uuid.UUID
		wantCond  string
		wantArgs  []any
	}{
		{
			name:      "anonymous sees only public",
			requester: nil,
			wantCond:  "images.privacy_level = ?",
			wantArgs:  []any{"PUBLIC"},
		},
		{
			name:      "anonymous ignores private filter",
			criteria:  Criteria{PrivacyLevel: &private},
			requester: nil,
			wantCond:  "images.privacy_level = ?",
			wantArgs:  []any{"PUBLIC"},
		},
		{
			name:      "only own takes precedence",
			criteria:  Criteria{OnlyOwn: true, PrivacyLevel: &public},
			requester: &userID,
			wantCond:  "images.user_id = ?",
			wantArgs:  []any{userID},
		},
		{
			name:      "explicit private limited to own",
			criteria:  Criteria{PrivacyLevel: &private},
			requester: &userID,
			wantCond:  "(images.privacy_level = ? AND images.user_id = ?)",
			wantArgs:  []any{"PRIVATE", userID},
		},
		{
			name:      "explicit public shows everyone's public",
			criteria:  Criteria{PrivacyLevel: &public},
			requester: &userID,
			wantCond:  "images.privacy_level = ?",
			wantArgs:  []any{"PUBLIC"},
		},
		{
			name:      "default is public plus own",
			requester: &userID,
			wantCond:  "(images.privacy_level = ? OR images.user_id = ?)",
			wantArgs:  []any{"PUBLIC", userID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Build(tt.criteria, tt.requester)
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}

			// предикат видимости всегда первый
			frag := q.Fragments[0]
			if frag.Name != "visibility" {
				t.Fatalf("first fragment = %s, want visibility", frag.Name)
			}
			if frag.Cond != tt.wantCond {
				t.Errorf("cond = %q, want %q", frag.Cond, tt.wantCond)
			}
			if len(frag.Args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", frag.Args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if frag.Args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %v, want %v", i, frag.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestBuildKeywordFragment(t *testing.T) {
	q, err := Build(Criteria{Keyword: "  Sunset  "}, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	frag := fragmentByName(q, "keyword")
	if frag == nil {
		t.Fatal("keyword fragment missing")
	}
	if frag.Args[0] != "%sunset%" {
		t.Errorf("pattern = %v, want %%sunset%%", frag.Args[0])
	}
	if !strings.Contains(frag.Cond, "original_filename") || !strings.Contains(frag.Cond, "description") {
		t.Errorf("keyword must cover filename and description: %s", frag.Cond)
	}
}

func TestBuildBlankKeywordSkipped(t *testing.T) {
	q, err := Build(Criteria{Keyword: "   "}, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if fragmentByName(q, "keyword") != nil {
		t.Error("blank keyword must not add a fragment")
	}
}

func TestBuildRangeFragments(t *testing.T) {
	minW, maxW := 800, 4000
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	q, err := Build(Criteria{
		MinWidth:     &minW,
		MaxWidth:     &maxW,
		UploadedFrom: &from,
		UploadedTo:   &to,
	}, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	for _, name := range []string{"min_width", "max_width", "uploaded_from", "uploaded_to"} {
		if fragmentByName(q, name) == nil {
			t.Errorf("fragment %s missing", name)
		}
	}
}

func TestBuildInvertedRangeRejected(t *testing.T) {
	minW, maxW := 4000, 800
	_, err := Build(Criteria{MinWidth: &minW, MaxWidth: &maxW}, nil)

	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Build() error = %v, want *domain.ValidationError", err)
	}
}

func TestBuildCameraJoinAttachedOnce(t *testing.T) {
	q, err := Build(Criteria{CameraMake: "Canon", CameraModel: "EOS R5"}, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	joins := 0
	for _, frag := range q.Fragments {
		if frag.Join != "" {
			joins++
		}
	}
	if joins != 1 {
		t.Errorf("exif join attached %d times, want 1", joins)
	}

	makeFrag := fragmentByName(q, "camera_make")
	if makeFrag == nil || makeFrag.Args[0] != "canon" {
		t.Errorf("camera_make args = %v, want lowercased canon", makeFrag)
	}
}

func TestBuildTagsFragmentForcesDistinct(t *testing.T) {
	q, err := Build(Criteria{Tags: []string{"sunset", "beach"}}, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if !q.Distinct {
		t.Error("tag join must force DISTINCT")
	}
	frag := fragmentByName(q, "tags")
	if frag == nil || frag.Join == "" {
		t.Fatal("tags fragment with join missing")
	}
}

func TestBuildWithoutTagsNoDistinct(t *testing.T) {
	q, err := Build(Criteria{Keyword: "x"}, nil)
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if q.Distinct {
		t.Error("DISTINCT must not be set without tag join")
	}
}

func TestBuildSorting(t *testing.T) {
	tests := []struct {
		sortBy   string
		sortDir  string
		wantCol  string
		wantDesc bool
	}{
		{"", "", "upload_time", true},
		{"fileSize", "asc", "file_size", false},
		{"size", "", "file_size", true},
		{"width", "ASC", "width", false},
		{"originalFilename", "desc", "original_filename", true},
		{"upload_time; DROP TABLE images", "", "upload_time", true}, // вне белого списка
	}

	for _, tt := range tests {
		t.Run(tt.sortBy+"/"+tt.sortDir, func(t *testing.T) {
			q, err := Build(Criteria{SortBy: tt.sortBy, SortDir: tt.sortDir}, nil)
			if err != nil {
				t.Fatalf("Build() error: %v", err)
			}
			if q.OrderBy != tt.wantCol {
				t.Errorf("OrderBy = %s, want %s", q.OrderBy, tt.wantCol)
			}
			if q.Desc != tt.wantDesc {
				t.Errorf("Desc = %v, want %v", q.Desc, tt.wantDesc)
			}
		})
	}
}

func TestCriteriaNormalize(t *testing.T) {
	tests := []struct {
		name        string
		page        int
		perPage     int
		wantPage    int
		wantPerPage int
	}{
		{"defaults", 0, 0, 1, 20},
		{"negative page", -3, 50, 1, 50},
		{"per page capped", 2, 500, 2, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Criteria{Page: tt.page, PerPage: tt.perPage}
			c.Normalize()
			if c.Page != tt.wantPage || c.PerPage != tt.wantPerPage {
				t.Errorf("got page=%d per_page=%d, want page=%d per_page=%d",
					c.Page, c.PerPage, tt.wantPage, tt.wantPerPage)
			}
		})
	}
}
