package faq

import (
	"context"
	"strings"
	"testing"
)

func TestAnswerMatchesCategory(t *testing.T) {
	k := NewKeywordAnswerer(nil)
	tests := []struct {
		question string
		wantPart string
	}{
		{"Where is the clinic located?", "123 Medical Center Drive"},
		{"Do you take my insurance?", "insurance plans"},
		{"What are your hours?", "8:00 AM to 6:00 PM"},
		{"What should I bring to a first visit?", "photo ID"},
		{"What is your cancellation policy?", "24 hours in advance"},
		{"Can I do a video visit?", "telehealth"},
		{"Do I need a mask?", "Masks are optional"},
	}
	for _, tt := range tests {
		answer, ok, err := k.Answer(context.Background(), tt.question)
		if err != nil {
			t.Fatalf("Answer(%q): %v", tt.question, err)
		}
		if !ok {
			t.Errorf("Answer(%q): no match", tt.question)
			continue
		}
		if !strings.Contains(answer, tt.wantPart) {
			t.Errorf("Answer(%q) = %q, want it to mention %q", tt.question, answer, tt.wantPart)
		}
	}
}

func TestAnswerPrefersMoreKeywordHits(t *testing.T) {
	entries := []Entry{
		{Category: "a", Keywords: []string{"parking"}, Answer: "answer a"},
		{Category: "b", Keywords: []string{"parking", "garage"}, Answer: "answer b"},
	}
	k := NewKeywordAnswerer(entries)

	answer, ok, err := k.Answer(context.Background(), "is there parking in the garage?")
	if err != nil || !ok {
		t.Fatalf("Answer: ok=%v err=%v", ok, err)
	}
	if answer != "answer b" {
		t.Errorf("answer = %q, want the entry with two hits", answer)
	}
}

func TestAnswerUnmatched(t *testing.T) {
	k := NewKeywordAnswerer(nil)
	_, ok, err := k.Answer(context.Background(), "how tall is the doctor")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no match")
	}
}

func TestIsLikelyQuestion(t *testing.T) {
	k := NewKeywordAnswerer(nil)
	tests := []struct {
		text string
		want bool
	}{
		{"where are you?", true},
		{"do you accept Aetna", true},
		{"what is the no-show fee", true},
		{"tomorrow afternoon please", false},
		{"Maria Garcia", false},
	}
	for _, tt := range tests {
		if got := k.IsLikelyQuestion(tt.text); got != tt.want {
			t.Errorf("IsLikelyQuestion(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
