package level

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"lv1", Lv1, false},
		{"LV2", Lv2, false},
		{" 3 ", Lv3, false},
		{"lv4", Lv4, false},
		{"lv0", 0, true},
		{"lv5", 0, true},
		{"level1", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownLevel) {
					t.Fatalf("Parse(%q) error = %v; want ErrUnknownLevel", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v; want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevel_TagAndKey(t *testing.T) {
	if got := Lv3.Tag(); got != "lv3" {
		t.Errorf("Tag() = %q; want lv3", got)
	}
	if got := Lv2.ThresholdKey(); got != "PASS_THRESHOLD_LV2" {
		t.Errorf("ThresholdKey() = %q; want PASS_THRESHOLD_LV2", got)
	}
}

func TestLevel_Prev(t *testing.T) {
	if _, ok := Lv1.Prev(); ok {
		t.Error("Lv1.Prev() should report no predecessor")
	}
	for _, l := range []Level{Lv2, Lv3, Lv4} {
		prev, ok := l.Prev()
		if !ok || prev != l-1 {
			t.Errorf("%v.Prev() = %v, %v; want %v, true", l, prev, ok, l-1)
		}
	}
}

func TestSchemaFor(t *testing.T) {
	tests := []struct {
		level     Level
		fixed     bool
		count     int
		firstType QuestionType
		lastType  QuestionType
	}{
		{Lv1, false, 1, "", ""},
		{Lv2, true, 4, Scenario, FreeText},
		{Lv3, true, 5, Scenario, FreeText},
		{Lv4, true, 6, Scenario, FreeText},
	}

	for _, tt := range tests {
		t.Run(tt.level.Tag(), func(t *testing.T) {
			s, err := SchemaFor(tt.level)
			if err != nil {
				t.Fatalf("SchemaFor() error = %v", err)
			}
			if s.Fixed() != tt.fixed {
				t.Errorf("Fixed() = %v; want %v", s.Fixed(), tt.fixed)
			}
			if s.ExpectedCount() != tt.count {
				t.Errorf("ExpectedCount() = %d; want %d", s.ExpectedCount(), tt.count)
			}
			if !tt.fixed {
				return
			}
			if got, _ := s.TypeForStep(1); got != tt.firstType {
				t.Errorf("TypeForStep(1) = %q; want %q", got, tt.firstType)
			}
			if got, _ := s.TypeForStep(tt.count); got != tt.lastType {
				t.Errorf("TypeForStep(%d) = %q; want %q", tt.count, got, tt.lastType)
			}
			if _, ok := s.TypeForStep(tt.count + 1); ok {
				t.Errorf("TypeForStep(%d) should be out of range", tt.count+1)
			}
		})
	}

	if _, err := SchemaFor(Level(9)); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("SchemaFor(9) error = %v; want ErrUnknownLevel", err)
	}
}

func TestSchema_Lv3StepFourIsScenario(t *testing.T) {
	s := MustSchema(Lv3)
	if got, _ := s.TypeForStep(4); got != Scenario {
		t.Errorf("lv3 step 4 = %q; want scenario", got)
	}
}

func TestSchema_Allows(t *testing.T) {
	open := MustSchema(Lv1)
	for _, qt := range []QuestionType{MultipleChoice, FreeText, Scenario} {
		if !open.Allows(qt) {
			t.Errorf("lv1 should allow %q", qt)
		}
	}
	if open.Allows("essay") {
		t.Error("lv1 should not allow essay")
	}
	if open.ChoiceType != MultipleChoice {
		t.Errorf("lv1 ChoiceType = %q; want multiple_choice", open.ChoiceType)
	}
}
