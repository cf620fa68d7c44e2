// Package provenance gates signal content against the legal-source allow-list.
//
// Validation has two tiers. Hard rejections cover tags outside the allow-list,
// unknown source types and illicit-source terminology; nothing that matches
// them may be stored. Soft flags cover wording that is legitimate but unusual
// enough that a reviewer should look at it before anyone relies on the signal.
//
// The validator is pure and safe for concurrent use. Callers log rejections.
package provenance

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rishabhrocktheparty-ai/Blackgpt/models"
)

var allowedTags = []string{
	"reddit:public",
	"twitter:api",
	"news:licensed",
	"blockchain:public",
	"exchange:api",
	"manual:human-upload",
	"research:licensed",
	"telegram:public",
	"stackexchange:api",
	"coingecko:api",
	"etherscan:api",
	"newsapi:licensed",
}

var allowedSourceTypes = []models.SourceType{
	models.SourceManualUpload,
	models.SourceReddit,
	models.SourceTwitter,
	models.SourceNewsAPI,
	models.SourceBlockchain,
	models.SourceLicensedFeed,
	models.SourceExchangeOTC,
}

type pattern struct {
	label string
	re    *regexp.Regexp
}

func mustPattern(label, expr string) pattern {
	return pattern{label: label, re: regexp.MustCompile(`(?i)` + expr)}
}

// Bare "tor" is only matched as a whole word so that "investor" or
// "history" pass. Every other term matches as a plain substring, so
// compounds such as "lifehack" are rejected too.
var disallowedPatterns = []pattern{
	mustPattern(".onion", `\.onion\b`),
	mustPattern("tor://", `tor://`),
	mustPattern("tor", `\btor\b`),
	mustPattern("dark web", `dark\s*web`),
	mustPattern("darknet", `dark\s*net`),
	mustPattern("silk road", `silk\s*road`),
	mustPattern("alphabay", `alpha\s*bay`),
	mustPattern("dream market", `dream\s*market`),
	mustPattern("illegal", `illegal`),
	mustPattern("illicit marketplace", `illicit\s*market`),
	mustPattern("exploit", `exploit`),
	mustPattern("hack", `hack`),
	mustPattern("stolen", `stolen`),
	mustPattern("leaked", `leaked`),
	mustPattern("pirated", `pirated`),
	mustPattern("ransomware", `ransomware`),
	mustPattern("malware distribution", `malware\s*distribution`),
	mustPattern("credit card fraud", `credit\s*card\s*fraud`),
	mustPattern("weapon market", `weapons?\s*markets?`),
	mustPattern("drug market", `drugs?\s*markets?`),
}

var suspiciousKeywords = []string{
	"underground",
	"black market",
	"anonymous",
	"untraceable",
	"contraband",
	"prohibited",
}

// Result is the outcome of a validation. Pattern is the disallowed pattern or
// suspicious keyword that decided the result, if any.
type Result struct {
	IsValid bool   `json:"isValid"`
	Flagged bool   `json:"flagged"`
	Reason  string `json:"reason,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks source type, tags and content in that order; the first
// hard failure wins.
func (v *Validator) Validate(tags []string, sourceType models.SourceType, text string) Result {
	if !slices.Contains(allowedSourceTypes, sourceType) {
		return Result{
			Flagged: true,
			Reason:  fmt.Sprintf("source type %q is not in the allowed list", sourceType),
		}
	}

	if len(tags) == 0 {
		return Result{Flagged: true, Reason: "no provenance tags provided"}
	}

	var invalid []string
	for _, tag := range tags {
		if !IsAllowedTag(tag) {
			invalid = append(invalid, tag)
		}
	}
	if len(invalid) > 0 {
		return Result{
			Flagged: true,
			Reason:  "invalid provenance tags: " + strings.Join(invalid, ", "),
		}
	}

	content := text + " " + strings.Join(tags, " ")
	if p, ok := v.ScanContent(content); ok {
		return Result{
			Flagged: true,
			Reason:  fmt.Sprintf("content contains disallowed pattern %q", p),
			Pattern: p,
		}
	}

	lower := strings.ToLower(content)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			return Result{
				IsValid: true,
				Flagged: true,
				Reason:  fmt.Sprintf("suspicious keyword %q requires review", kw),
				Pattern: kw,
			}
		}
	}

	return Result{IsValid: true}
}

// ScanContent reports the first disallowed pattern in text.
func (v *Validator) ScanContent(text string) (string, bool) {
	for _, p := range disallowedPatterns {
		if p.re.MatchString(text) {
			return p.label, true
		}
	}
	return "", false
}

func AllowedTags() []string {
	return slices.Clone(allowedTags)
}

func AllowedSourceTypes() []models.SourceType {
	return slices.Clone(allowedSourceTypes)
}

func IsAllowedTag(tag string) bool {
	return slices.Contains(allowedTags, tag)
}
