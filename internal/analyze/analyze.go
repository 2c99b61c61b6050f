// Package analyze classifies a text unit by script and complexity so the
// routing engine can pick a provider that can actually handle it.
package analyze

import (
	"strings"
)

type LanguageClass string

const (
	LatinOther   LanguageClass = "latin_other"
	IndicHindi   LanguageClass = "indic_hindi"
	IndicUrdu    LanguageClass = "indic_urdu"
	IndicBengali LanguageClass = "indic_bengali"
)

func (l LanguageClass) Indic() bool {
	return l == IndicHindi || l == IndicUrdu || l == IndicBengali
}

type Complexity string

const (
	Low    Complexity = "low"
	Medium Complexity = "medium"
	High   Complexity = "high"
)

// technicalKeywords mark vocabulary that pushes a chunk toward stronger models.
var technicalKeywords = []string{
	"algorithm", "method", "analysis", "research", "study", "theory",
	"implementation", "framework", "model", "system", "approach",
	"technique", "process", "evaluation", "experimental", "optimization",
	"database", "network", "protocol", "architecture", "design",
	"mathematics", "equation", "formula", "calculation", "statistics",
	"machine learning", "artificial intelligence", "deep learning",
	"neural network", "data science", "programming", "software",
}

var mathFunctions = []string{"sin(", "cos(", "tan(", "log(", "ln("}

const mathSymbols = "∫∑∏√∆∇∂"

// Analyze returns the language class and complexity bucket for one text unit.
// It is pure and deterministic; ambiguous input degrades to LatinOther rather
// than failing.
func Analyze(text string) (LanguageClass, Complexity) {
	return detectLanguage(text), scoreComplexity(text)
}

func detectLanguage(text string) LanguageClass {
	var hindi, urdu, bengali int
	for _, r := range text {
		switch {
		case r >= 0x0900 && r <= 0x097F: // Devanagari
			hindi++
		case r >= 0x0600 && r <= 0x06FF: // Arabic script, used for Urdu
			urdu++
		case r >= 0x0980 && r <= 0x09FF: // Bengali
			bengali++
		}
	}
	if hindi == 0 && urdu == 0 && bengali == 0 {
		return LatinOther
	}
	if hindi >= urdu && hindi >= bengali {
		return IndicHindi
	}
	if urdu >= bengali {
		return IndicUrdu
	}
	return IndicBengali
}

func scoreComplexity(text string) Complexity {
	words := strings.Fields(text)
	wordCount := len(words)
	if wordCount == 0 {
		return Low
	}

	totalLen := 0
	for _, w := range words {
		totalLen += len(w)
	}
	avgWordLength := float64(totalLen) / float64(wordCount)

	// Word count factor, capped at 3.
	wordFactor := float64(wordCount) / 200
	if wordFactor > 3 {
		wordFactor = 3
	}

	technicalFactor := float64(technicalScore(text)) * 0.4
	mathFactor := float64(mathScore(text)) * 0.4

	lengthFactor := 0.0
	if avgWordLength > 4 {
		lengthFactor = (avgWordLength - 4) * 0.2
		if lengthFactor > 1 {
			lengthFactor = 1
		}
	}

	score := wordFactor + technicalFactor + mathFactor + lengthFactor
	if score > 10 {
		score = 10
	}

	// Boundary scores resolve to the higher bucket.
	switch {
	case score >= 7:
		return High
	case score >= 4:
		return Medium
	default:
		return Low
	}
}

// technicalScore counts distinct technical keyword hits, capped at 10.
func technicalScore(text string) int {
	lower := strings.ToLower(text)
	count := 0
	for _, kw := range technicalKeywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	if count > 10 {
		count = 10
	}
	return count
}

// mathScore counts markers of mathematical content, capped at 5.
func mathScore(text string) int {
	count := 0
	for _, r := range text {
		if strings.ContainsRune(mathSymbols, r) {
			count++
		}
	}
	lower := strings.ToLower(text)
	for _, fn := range mathFunctions {
		count += strings.Count(lower, fn)
	}
	count += equationCount(text)
	if count > 5 {
		count = 5
	}
	return count
}

// equationCount detects simple "3 = 4" style expressions with digits on both
// sides of the operator.
func equationCount(text string) int {
	count := 0
	fields := strings.Fields(text)
	for i := 1; i < len(fields)-1; i++ {
		op := fields[i]
		if op != "=" && op != "+" && op != "-" && op != "*" && op != "/" {
			continue
		}
		if hasDigit(fields[i-1]) && hasDigit(fields[i+1]) {
			count++
		}
	}
	return count
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
