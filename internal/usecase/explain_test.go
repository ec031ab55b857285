package usecase

import (
	"reflect"
	"testing"
)

func TestExplanations_Buckets(t *testing.T) {
	cases := []struct {
		distanceZ      float64
		wantStructural string
	}{
		{0.0, explainStructuralClose},
		{0.49, explainStructuralClose},
		{0.5, explainStructuralMinor},
		{0.99, explainStructuralMinor},
		{1.0, explainStructuralNotic},
		{1.49, explainStructuralNotic},
		{1.5, explainStructuralMajor},
		{1.99, explainStructuralMajor},
		{2.0, explainStructuralAlien},
		{4.2, explainStructuralAlien},
	}
	for _, tc := range cases {
		got := Explanations(tc.distanceZ, 0.1)
		if len(got) != 2 {
			t.Fatalf("z=%v: expected exactly two findings, got %d", tc.distanceZ, len(got))
		}
		if got[0] != tc.wantStructural {
			t.Fatalf("z=%v: expected %q, got %q", tc.distanceZ, tc.wantStructural, got[0])
		}
	}
}

func TestExplanations_ScoreBuckets(t *testing.T) {
	cases := []struct {
		score string
		value float64
		want  string
	}{
		{"low", 0.39, explainScoreLow},
		{"medium lower bound", 0.4, explainScoreMid},
		{"medium upper", 0.69, explainScoreMid},
		{"high lower bound", 0.7, explainScoreHigh},
		{"high", 0.95, explainScoreHigh},
	}
	for _, tc := range cases {
		t.Run(tc.score, func(t *testing.T) {
			got := Explanations(0.0, tc.value)
			if got[1] != tc.want {
				t.Fatalf("score %v: expected %q, got %q", tc.value, tc.want, got[1])
			}
		})
	}
}

func TestExplanations_Deterministic(t *testing.T) {
	first := Explanations(1.2, 0.85)
	for i := 0; i < 5; i++ {
		if got := Explanations(1.2, 0.85); !reflect.DeepEqual(got, first) {
			t.Fatalf("identical inputs produced different findings: %v vs %v", first, got)
		}
	}
}
