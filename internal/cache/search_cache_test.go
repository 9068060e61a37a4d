package cache

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Fronut/Picture-management-website/internal/search"
)

func TestBuildKeyDeterministic(t *testing.T) {
	userID := uuid.New()
	criteria := search.Criteria{Keyword: "sunset", Page: 1, PerPage: 20}

	first := BuildKey(3, &userID, criteria)
	second := BuildKey(3, &userID, criteria)
	if first != second {
		t.Errorf("equal criteria produced different keys: %s vs %s", first, second)
	}
}

func TestBuildKeyDiffersByInputs(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	base := search.Criteria{Keyword: "sunset", Page: 1, PerPage: 20}

	baseKey := BuildKey(1, &userA, base)

	tests := []struct {
		name string
		key  string
	}{
		{"different generation", BuildKey(2, &userA, base)},
		{"different requester", BuildKey(1, &userB, base)},
		{"anonymous requester", BuildKey(1, nil, base)},
		{"different keyword", BuildKey(1, &userA, search.Criteria{Keyword: "beach", Page: 1, PerPage: 20})},
		{"different page", BuildKey(1, &userA, search.Criteria{Keyword: "sunset", Page: 2, PerPage: 20})},
		{"only own flag", BuildKey(1, &userA, search.Criteria{Keyword: "sunset", OnlyOwn: true, Page: 1, PerPage: 20})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.key == baseKey {
				t.Errorf("key must differ from base: %s", tt.key)
			}
		})
	}
}

func TestBuildKeyStructure(t *testing.T) {
	userID := uuid.New()

	key := BuildKey(7, &userID, search.Criteria{Page: 1, PerPage: 20})
	if !strings.HasPrefix(key, "search:g7:u:"+userID.String()+":") {
		t.Errorf("unexpected key layout: %s", key)
	}

	anonKey := BuildKey(0, nil, search.Criteria{Page: 1, PerPage: 20})
	if !strings.HasPrefix(anonKey, "search:g0:u:anon:") {
		t.Errorf("anonymous key layout: %s", anonKey)
	}
}
