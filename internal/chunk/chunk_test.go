package chunk

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("valid chunk", func(t *testing.T) {
		c, err := New("passage text", "doc.pdf", "2", "Methods", "store/uploads/doc.pdf", 0)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.ID != "doc.pdf_p2_s0" {
			t.Errorf("ID = %q, want doc.pdf_p2_s0", c.ID)
		}
		if c.Hash != Fingerprint("doc.pdf", "2", "passage text") {
			t.Error("Hash does not match Fingerprint of source|page|text")
		}
		if c.Section != "Methods" {
			t.Errorf("Section = %q, want Methods", c.Section)
		}
	})

	t.Run("section defaults to Unknown", func(t *testing.T) {
		c, err := New("text", "doc.txt", "", "", "", 3)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if c.Section != DefaultSection {
			t.Errorf("Section = %q, want %q", c.Section, DefaultSection)
		}
		if c.ID != "doc.txt_s3" {
			t.Errorf("ID = %q, want doc.txt_s3", c.ID)
		}
	})

	t.Run("empty text rejected", func(t *testing.T) {
		if _, err := New("   ", "doc.txt", "", "", "", 0); !errors.Is(err, ErrEmptyText) {
			t.Errorf("New() error = %v, want ErrEmptyText", err)
		}
	})

	t.Run("empty source rejected", func(t *testing.T) {
		if _, err := New("text", "", "", "", "", 0); !errors.Is(err, ErrEmptySource) {
			t.Errorf("New() error = %v, want ErrEmptySource", err)
		}
	})
}

func TestMakeID(t *testing.T) {
	tests := []struct {
		source, page string
		ordinal      int
		want         string
	}{
		{"report.pdf", "12", 4, "report.pdf_p12_s4"},
		{"report.pdf", "", 4, "report.pdf_s4"},
		{"sheet.xlsx", "Summary", 0, "sheet.xlsx_pSummary_s0"},
	}
	for _, tt := range tests {
		if got := MakeID(tt.source, tt.page, tt.ordinal); got != tt.want {
			t.Errorf("MakeID(%q,%q,%d) = %q, want %q", tt.source, tt.page, tt.ordinal, got, tt.want)
		}
	}
}
