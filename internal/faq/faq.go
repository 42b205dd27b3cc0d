// Package faq answers clinic questions. The retrieval index behind a real
// deployment sits outside this process; the engine only needs Answer.
package faq

import (
	"context"
	"sort"
	"strings"
)

// Answerer resolves a free-form question to an answer text.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, bool, error)
}

// Entry is one corpus item matched by keywords.
type Entry struct {
	Category string
	Keywords []string
	Answer   string
}

// KeywordAnswerer scores corpus entries by keyword hits. It is the default
// Answerer and the fallback when a retrieval service is unavailable.
type KeywordAnswerer struct {
	entries []Entry
}

// NewKeywordAnswerer builds an answerer over the given corpus. With a nil
// corpus the built-in clinic corpus is used.
func NewKeywordAnswerer(entries []Entry) *KeywordAnswerer {
	if entries == nil {
		entries = defaultCorpus
	}
	return &KeywordAnswerer{entries: entries}
}

// Answer returns the best-matching entry's answer. The second return value is
// false when no entry matches.
func (k *KeywordAnswerer) Answer(ctx context.Context, question string) (string, bool, error) {
	q := strings.ToLower(question)

	type scored struct {
		entry Entry
		hits  int
	}
	var matches []scored
	for _, e := range k.entries {
		hits := 0
		for _, kw := range e.Keywords {
			if strings.Contains(q, kw) {
				hits++
			}
		}
		if hits > 0 {
			matches = append(matches, scored{entry: e, hits: hits})
		}
	}
	if len(matches) == 0 {
		return "", false, nil
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].hits > matches[j].hits })
	return matches[0].entry.Answer, true, nil
}

// IsLikelyQuestion reports whether the text looks like a clinic FAQ rather
// than a scheduling instruction.
func (k *KeywordAnswerer) IsLikelyQuestion(text string) bool {
	q := strings.ToLower(text)
	for _, e := range k.entries {
		for _, kw := range e.Keywords {
			if strings.Contains(q, kw) {
				return true
			}
		}
	}
	return false
}

var defaultCorpus = []Entry{
	{
		Category: "location",
		Keywords: []string{"where", "location", "address", "parking", "directions"},
		Answer:   "We are at 123 Medical Center Drive, Suite 200, Springfield, IL 62701. Free patient parking is available in the lot behind the building.",
	},
	{
		Category: "insurance",
		Keywords: []string{"insurance", "accept", "payment", "cost", "price", "billing"},
		Answer:   "We accept most major insurance plans, including BlueCross, Aetna, Cigna and UnitedHealth. Self-pay rates are available; please bring your insurance card to your visit.",
	},
	{
		Category: "hours",
		Keywords: []string{"hours", "open", "close", "when are you"},
		Answer:   "The clinic is open Monday through Friday, 8:00 AM to 6:00 PM, with a lunch closure from 12:00 to 1:00 PM. We are closed on weekends and public holidays.",
	},
	{
		Category: "first_visit",
		Keywords: []string{"bring", "documents", "prepare", "first visit", "new patient"},
		Answer:   "For a first visit please bring a photo ID, your insurance card, a list of current medications, and any relevant medical records. Arriving 15 minutes early helps with intake paperwork.",
	},
	{
		Category: "cancellation_policy",
		Keywords: []string{"cancellation policy", "late", "no-show", "fee", "policy"},
		Answer:   "Appointments can be cancelled or rescheduled free of charge up to 24 hours in advance. Later cancellations or no-shows may incur a fee.",
	},
	{
		Category: "telehealth",
		Keywords: []string{"telehealth", "virtual", "video", "remote"},
		Answer:   "Yes, we offer telehealth visits for follow-ups and some consultations. Ask for a virtual appointment when booking and we will send you a video link.",
	},
	{
		Category: "covid",
		Keywords: []string{"covid", "mask", "protocol", "vaccine"},
		Answer:   "Masks are optional in the clinic. If you have respiratory symptoms, please wear one and let the front desk know on arrival.",
	},
}
