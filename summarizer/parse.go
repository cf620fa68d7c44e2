package summarizer

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	summaryRe       = regexp.MustCompile(`(?s)SUMMARY:\s*(.+?)(?:CONFIDENCE:|$)`)
	confidenceRe    = regexp.MustCompile(`CONFIDENCE:\s*(\d+)`)
	signalsRe       = regexp.MustCompile(`(?s)SIGNALS:\s*(.+?)$`)
	contradictionRe = regexp.MustCompile(`(?i)CONTRADICTION:\s*(YES|NO)`)
	evidenceRe      = regexp.MustCompile(`(?s)EVIDENCE:\s*(.+?)$`)
)

const maxRawGist = 300

var defaultTopSignals = []string{"Source correlation", "Pattern analysis", "Market consensus"}

// ParseSummary reads the SUMMARY/CONFIDENCE/SIGNALS reply format. A reply
// that ignores the format is kept as a truncated gist with 0.5 confidence.
func ParseSummary(reply string) *Summary {
	s := &Summary{Confidence: 0.5, TopSignals: defaultTopSignals}

	if m := summaryRe.FindStringSubmatch(reply); m != nil {
		s.Gist = strings.TrimSpace(m[1])
	}
	if s.Gist == "" {
		s.Gist = truncate(strings.TrimSpace(reply), maxRawGist)
	}
	if c, ok := parsePercent(reply); ok {
		s.Confidence = c
	}
	if m := signalsRe.FindStringSubmatch(reply); m != nil {
		var sigs []string
		for _, part := range strings.Split(m[1], ",") {
			part = strings.Trim(strings.TrimSpace(part), "[]")
			if part != "" {
				sigs = append(sigs, part)
			}
		}
		if len(sigs) > 0 {
			s.TopSignals = sigs
		}
	}
	return s
}

// ParseContradiction reads "CONTRADICTION: YES|NO | CONFIDENCE: XX | EVIDENCE: ...".
func ParseContradiction(reply string) *ContradictionAssessment {
	a := &ContradictionAssessment{CounterEvidence: "No contradictions detected"}
	if m := contradictionRe.FindStringSubmatch(reply); m != nil {
		a.HasContradiction = strings.EqualFold(m[1], "YES")
	}
	if c, ok := parsePercent(reply); ok {
		a.Confidence = c
	}
	if m := evidenceRe.FindStringSubmatch(reply); m != nil {
		if ev := strings.TrimSpace(m[1]); ev != "" {
			a.CounterEvidence = ev
		}
	}
	return a
}

func parsePercent(reply string) (float64, bool) {
	m := confidenceRe.FindStringSubmatch(reply)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	if n > 100 {
		n = 100
	}
	return float64(n) / 100, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
