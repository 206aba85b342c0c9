package text

import (
	"regexp"
	"strings"
)

// ReferenceBlock is the result of splitting a chapter's trailing
// cross-reference section from its body.
type ReferenceBlock struct {
	MainText      string
	References    string
	HasReferences bool
}

var (
	sectionSplit = regexp.MustCompile(`\n\s*\n`)

	// a reference section opens with a single lowercase marker letter
	// followed by chapter:verse, e.g. "a 27:2 Намісник...". The heuristic is
	// known to misfire on rare chapters; the visible "references" button
	// depends on its exact behavior, keep it as is.
	referenceLine = regexp.MustCompile(`^[a-z]\s+[0-9]+:[0-9]+`)

	inlineSquare   = regexp.MustCompile(`\[[^\]]*\]`)
	inlineParens   = regexp.MustCompile(`\([^)]*\)`)
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
)

// Separate splits chapter text on blank-line boundaries and classifies the
// last section as references when it matches the reference pattern.
func Separate(fullText string) ReferenceBlock {
	if len(fullText) == 0 {
		return ReferenceBlock{}
	}

	sections := sectionSplit.Split(fullText, -1)
	if len(sections) <= 1 {
		return ReferenceBlock{MainText: fullText}
	}

	last := strings.TrimSpace(sections[len(sections)-1])
	if !referenceLine.MatchString(last) {
		return ReferenceBlock{MainText: fullText}
	}

	return ReferenceBlock{
		MainText:      strings.TrimSpace(strings.Join(sections[:len(sections)-1], "\n\n")),
		References:    last,
		HasReferences: true,
	}
}

// StripInlineMarkers removes bracketed and parenthesized inline annotations
// and normalizes whitespace. Idempotent; the source material has no nested
// brackets, a single non-greedy pass per bracket type is enough.
func StripInlineMarkers(text string) string {
	if len(text) == 0 {
		return text
	}
	cleaned := inlineSquare.ReplaceAllString(text, "")
	cleaned = inlineParens.ReplaceAllString(cleaned, "")
	cleaned = horizontalRuns.ReplaceAllString(cleaned, " ")
	cleaned = collapseNewlines.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// FormatReferences marks reference lines up for chat display.
func FormatReferences(references string) string {
	if len(references) == 0 {
		return ""
	}
	var out []string
	for _, line := range strings.Split(references, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if referenceLine.MatchString(line) {
			line = "**" + line + "**"
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// Options governs ProcessContent assembly.
type Options struct {
	IncludeReferences bool
	CleanInline       bool
}

// Processed bundles every view of a chapter's text the navigation layer
// needs. CleanMainText is always inline-cleaned regardless of the
// CleanInline flag, so verse parsing can rely on it even when the assembled
// FullText carries raw markers and references.
type Processed struct {
	MainText      string
	References    string
	HasReferences bool
	FullText      string
	CleanMainText string
}

// ProcessContent applies reference separation and optional inline cleaning
// in one pass.
func ProcessContent(fullText string, opts Options) Processed {
	sep := Separate(fullText)

	mainText := sep.MainText
	if opts.CleanInline {
		mainText = StripInlineMarkers(mainText)
	}

	p := Processed{
		MainText:      mainText,
		HasReferences: sep.HasReferences,
		FullText:      mainText,
		CleanMainText: StripInlineMarkers(mainText),
	}
	if opts.IncludeReferences && sep.HasReferences {
		p.References = FormatReferences(sep.References)
		p.FullText = mainText + "\n\n" + p.References
	}
	return p
}
