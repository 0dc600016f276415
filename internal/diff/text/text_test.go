package text

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDistance(t *testing.T) {
	type in struct {
		a string
		b string
	}

	tests := []struct {
		name string
		in   in
		want int
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"abc", "abd"},
			1,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"kitten", "sitting"},
			3,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"", "abc"},
			3,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"flaw", ""},
			4,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			in{"", ""},
			0,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			// Multi-byte characters count once.
			in{"café", "cafe"},
			1,
		},
	}
	for _, tt := range tests {
		name := tt.name
		in := tt.in
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(want, Distance(in.a, in.b)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(want, Distance(in.b, in.a)); diff != "" {
				t.Errorf("symmetric (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	if got := Similarity("", ""); got != 1 {
		t.Errorf("Expected 1 for two empty strings, got %v", got)
	}
	if got := Similarity("same", "same"); got != 1 {
		t.Errorf("Expected 1 for equal strings, got %v", got)
	}
	if got := Similarity("abc", "abd"); math.Abs(got-2.0/3.0) > 1e-9 {
		t.Errorf("Expected 2/3, got %v", got)
	}
	if got := Similarity("abc", "xyz"); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
	if got := Similarity("", "abc"); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
}

func TestWordChanges(t *testing.T) {
	t.Run("PositionalComparison", func(t *testing.T) {
		got := WordChanges("a b c", "a x c d")

		want := []Change{
			{Position: 1, From: "b", To: "x", Kind: KindChanged},
			{Position: 3, From: "", To: "d", Kind: KindAdded},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Removed", func(t *testing.T) {
		got := WordChanges("one two\tthree", "one  two")

		want := []Change{{Position: 2, From: "three", To: "", Kind: KindRemoved}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("InsertionShiftsFollowingWords", func(t *testing.T) {
		got := WordChanges("a b", "z a b")

		want := []Change{
			{Position: 0, From: "a", To: "z", Kind: KindChanged},
			{Position: 1, From: "b", To: "a", Kind: KindChanged},
			{Position: 2, From: "", To: "b", Kind: KindAdded},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("Identical", func(t *testing.T) {
		got := WordChanges("hello world", "hello world")

		if diff := cmp.Diff([]Change{}, got); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("BothEmpty", func(t *testing.T) {
		if got := WordChanges("", ""); len(got) != 0 {
			t.Errorf("Expected no changes, got %v", got)
		}
	})
}

func TestWordDiff_Calculate(t *testing.T) {
	got := NewWordDiff().Calculate("  Total: 10\nItems 3 ", "Total: 12\nItems 3")

	want := &Result{
		Similarity: 1 - 1.0/17.0,
		Changes:    []Change{{Position: 1, From: "10", To: "12", Kind: KindChanged}},
		Lines:      "- Total: 10\n+ Total: 12\n  Items 3",
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(x, y float64) bool {
		return math.Abs(x-y) < 1e-9
	})); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	b, err := json.Marshal(got.Changes[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(`{"position":1,"from":"10","to":"12","type":"changed"}`, string(b)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
		want   string
	}{
		{
			name:   "Identical",
			before: "a\nb",
			after:  "a\nb",
			want:   "  a\n  b",
		},
		{
			name:   "Added",
			before: "a",
			after:  "a\nb",
			want:   "  a\n+ b",
		},
		{
			name:   "Removed",
			before: "a\nb\nc",
			after:  "a\nc",
			want:   "  a\n- b\n  c",
		},
		{
			name:   "Empty",
			before: "",
			after:  "",
			want:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Lines(tt.before, tt.after)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
