package classifier

import (
	"slices"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		flagged    bool
		categories []string
		nilVerdict bool
		wantErr    bool
	}{
		{"plain json", `{"flagged": true, "categories": ["Hate", " harassment "]}`, true, []string{"hate", "harassment"}, false, false},
		{"fenced", "```json\n{\"flagged\": false, \"categories\": []}\n```", false, []string{}, false, false},
		{"bare fence", "```\n{\"flagged\": true, \"categories\": [\"spam\"]}\n```", true, []string{"spam"}, false, false},
		{"empty", "  ", false, nil, true, false},
		{"prose", "This testimonial looks fine to me.", false, nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseVerdict: %v", err)
			}
			if tt.nilVerdict {
				if v != nil {
					t.Errorf("verdict = %+v, want nil", v)
				}
				return
			}
			if v.Flagged != tt.flagged {
				t.Errorf("Flagged = %v, want %v", v.Flagged, tt.flagged)
			}
			if len(v.Categories) != len(tt.categories) || (len(tt.categories) > 0 && !slices.Equal(v.Categories, tt.categories)) {
				t.Errorf("Categories = %v, want %v", v.Categories, tt.categories)
			}
		})
	}
}
