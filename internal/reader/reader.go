// Package reader parses a corpus directory of note files into note.Note
// records: splitting the metadata header from the body, extracting
// [[link]] tokens, and detecting bare title mentions for draft promotion.
package reader

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aayoawoyemi/ori-mnemos/internal/logging"
	"github.com/aayoawoyemi/ori-mnemos/internal/note"
	"gopkg.in/yaml.v3"
)

var linkTokenRe = regexp.MustCompile(`\[\[([^\]]*)\]\]`)

// Corpus is the result of reading a notes directory: the parsed notes plus
// any non-fatal warnings collected along the way.
type Corpus struct {
	Notes    []note.Note
	Warnings []note.Warning
}

// ByTitle indexes a corpus's notes by title for O(1) lookup.
func (c Corpus) ByTitle() map[string]note.Note {
	m := make(map[string]note.Note, len(c.Notes))
	for _, n := range c.Notes {
		m[n.Title] = n
	}
	return m
}

// header mirrors the recognized YAML front matter keys. Dates are kept
// as strings so a missing or unparseable date falls back to a default
// rather than failing the whole header; a missing access_count reads as 0.
type header struct {
	Type         string   `yaml:"type"`
	Description  string   `yaml:"description"`
	Project      []string `yaml:"project"`
	Status       string   `yaml:"status"`
	Created      string   `yaml:"created"`
	LastAccessed string   `yaml:"last_accessed"`
	AccessCount  int      `yaml:"access_count"`
}

// ReadCorpus walks <root>/notes/*.md. A missing notes directory yields an
// empty, non-erroring corpus: the capture surface owns populating it,
// and an uninitialized vault is not a core failure.
func ReadCorpus(root string) (Corpus, error) {
	timer := logging.StartTimer(logging.CategoryReader, "ReadCorpus")
	defer timer.Stop()

	notesDir := filepath.Join(root, "notes")
	entries, err := os.ReadDir(notesDir)
	if os.IsNotExist(err) {
		return Corpus{}, nil
	}
	if err != nil {
		return Corpus{}, nil
	}

	var corpus Corpus
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		title := strings.TrimSuffix(e.Name(), ".md")
		path := filepath.Join(notesDir, e.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			corpus.Warnings = append(corpus.Warnings, note.Warning{
				Kind: note.WarnFileUnreadable, Note: title, Msg: err.Error(),
			})
			logging.Get(logging.CategoryReader).Warn("unreadable note %s: %v", path, err)
			continue
		}

		n, warn := parseNote(title, path, string(raw))
		corpus.Notes = append(corpus.Notes, n)
		if warn != nil {
			corpus.Warnings = append(corpus.Warnings, *warn)
		}
	}

	return corpus, nil
}

// parseNote splits the header from the body and populates a Note. A
// malformed or absent header degrades to a body-only record plus a
// warning, never a hard failure.
func parseNote(title, path, raw string) (note.Note, *note.Warning) {
	n := note.Note{
		Title:   title,
		Path:    path,
		Type:    note.TypeIdea,
		Status:  note.StatusInbox,
		Created: time.Now(),
	}

	body, hdr, hasHeader := splitHeader(raw)
	n.Body = body
	if !hasHeader {
		return n, nil
	}

	var h header
	if err := yaml.Unmarshal([]byte(hdr), &h); err != nil {
		return n, &note.Warning{Kind: note.WarnHeaderParse, Note: title, Msg: err.Error()}
	}

	if h.Type != "" {
		n.Type = note.Type(h.Type)
	}
	n.Description = h.Description
	n.Project = h.Project
	if h.Status != "" {
		n.Status = note.Status(h.Status)
	}
	n.AccessCount = h.AccessCount
	if t, err := parseDate(h.Created); err == nil {
		n.Created = t
	}
	if t, err := parseDate(h.LastAccessed); err == nil {
		n.LastAccessed = t
	} else {
		n.LastAccessed = n.Created
	}

	return n, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, strconv.ErrSyntax
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, strconv.ErrSyntax
}

// splitHeader separates a leading "---\n...\n---\n" block from the rest
// of the text. Returns hasHeader=false when the file doesn't open with a
// bare "---" line, in which case body is the entire input.
func splitHeader(raw string) (body, header string, hasHeader bool) {
	trimmed := strings.TrimLeft(raw, string(rune(0xFEFF)))
	lines := strings.Split(trimmed, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return trimmed, "", false
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			header = strings.Join(lines[1:i], "\n")
			body = strings.TrimLeft(strings.Join(lines[i+1:], "\n"), "\n")
			return body, header, true
		}
	}

	// Opening delimiter with no closing delimiter: not a valid header.
	return trimmed, "", false
}

// ExtractLinks returns the trimmed, case-preserved set of [[target]]
// tokens found in body, deduplicated.
func ExtractLinks(body string) []string {
	matches := linkTokenRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}

// TitleMention is a detected bare mention of an existing title inside a
// body, used when promoting drafts to wiki-linked notes.
type TitleMention struct {
	Title string
	Start int
	End   int
}

// DetectTitleMentions scans body for non-overlapping, case-insensitive,
// word-boundary occurrences of the given titles, longest-first so a
// shorter title that is a substring of a longer one never pre-empts it.
// Matches already inside [[ ]] delimiters are skipped, since those are
// already links rather than candidates for linking.
func DetectTitleMentions(body string, titles []string) []TitleMention {
	sorted := make([]string, len(titles))
	copy(sorted, titles)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	linkSpans := linkTokenRe.FindAllStringIndex(body, -1)
	insideLink := func(pos int) bool {
		for _, span := range linkSpans {
			if pos >= span[0] && pos < span[1] {
				return true
			}
		}
		return false
	}

	var claimed []TitleMention
	overlaps := func(start, end int) bool {
		for _, c := range claimed {
			if start < c.End && end > c.Start {
				return true
			}
		}
		return false
	}

	for _, title := range sorted {
		if title == "" {
			continue
		}
		re, err := titlePattern(title)
		if err != nil {
			continue
		}
		for _, loc := range re.FindAllStringIndex(body, -1) {
			start, end := loc[0], loc[1]
			if insideLink(start) || overlaps(start, end) {
				continue
			}
			claimed = append(claimed, TitleMention{Title: title, Start: start, End: end})
		}
	}

	sort.Slice(claimed, func(i, j int) bool { return claimed[i].Start < claimed[j].Start })
	return claimed
}

// titlePattern builds a case-insensitive, word-boundary regex for title
// where interior dashes and whitespace are interchangeable, so "broker
// deploy runbook" also matches "broker-deploy-runbook" and vice versa.
func titlePattern(title string) (*regexp.Regexp, error) {
	parts := regexp.MustCompile(`[-\s]+`).Split(title, -1)
	var quoted []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(p))
	}
	if len(quoted) == 0 {
		return nil, strconv.ErrSyntax
	}
	pattern := `(?i)\b` + strings.Join(quoted, `[-\s]+`) + `\b`
	return regexp.Compile(pattern)
}
