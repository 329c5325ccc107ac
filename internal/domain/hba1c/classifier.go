package hba1c

import "strings"

// The unit taxonomy is an ordered table of substring rules over the
// lower-cased unit description. IFCC rules are evaluated before DCCT
// rules and the last match wins, so a string matching both vocabularies
// classifies DCCT. That precedence is an output-compatibility constraint
// and is pinned by tests; see classifier_test.go.

// excludeVocab marks descriptions that belong to a different analyte
// entirely. Matching records are removed from the working set.
var excludeVocab = []string{
	"total haemoglobin",
	"total hemoglobin",
	"hba0",
	"unknown",
}

// includeVocab is the survival gate: a description matching none of
// these is discarded before category assignment.
var includeVocab = []string{
	"%",
	"dcct",
	"per cent",
	"ifcc",
	"mmol/mol",
	"mmol / mol",
	"mmols/mol",
	"mmol per mol",
	"mmol/l",
	"hba1c",
	"iu/l",
}

type categoryRule struct {
	pattern  string
	category UnitCategory
}

// categoryRules is evaluated in order with last-match-wins semantics.
// IFCC patterns first, DCCT patterns second.
var categoryRules = []categoryRule{
	{"ifcc", UnitIFCC},
	{"mmol/mol", UnitIFCC},
	{"mmol / mol", UnitIFCC},
	{"mmols/mol", UnitIFCC},
	{"mmol per mol", UnitIFCC},
	{"%", UnitDCCT},
	{"dcct", UnitDCCT},
	{"per cent", UnitDCCT},
	{"iu/l", UnitDCCT},
}

// normalizeUnit is the canonical form every rule matches against.
func normalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}

// excludedAnalyte reports whether the description names a different
// analyte (used only to attribute discards in the run report).
func excludedAnalyte(unit string) bool {
	s := normalizeUnit(unit)
	for _, p := range excludeVocab {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Classify assigns a unit category to a free-text unit description.
// It returns false when the record should be discarded, either because
// the description names a different analyte or because it matches
// nothing in the inclusion vocabulary. Survivors that match neither
// category vocabulary are Unknown and are resolved later by value range.
func Classify(unit string) (UnitCategory, bool) {
	s := normalizeUnit(unit)

	for _, p := range excludeVocab {
		if strings.Contains(s, p) {
			return UnitUnknown, false
		}
	}

	included := false
	for _, p := range includeVocab {
		if strings.Contains(s, p) {
			included = true
			break
		}
	}
	if !included {
		return UnitUnknown, false
	}

	cat := UnitUnknown
	for _, r := range categoryRules {
		if strings.Contains(s, r.pattern) {
			cat = r.category
		}
	}
	return cat, true
}
