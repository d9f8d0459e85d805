package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeNote(t *testing.T, dir, title, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, title+".md"), []byte(content), 0644))
}

func TestReadCorpusMissingDirYieldsEmpty(t *testing.T) {
	root := t.TempDir()
	c, err := ReadCorpus(root)
	require.NoError(t, err)
	require.Empty(t, c.Notes)
	require.Empty(t, c.Warnings)
}

func TestReadCorpusHeaderAndBody(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "notes"), 0755))
	writeNote(t, filepath.Join(root, "notes"), "broker deploy runbook", "---\n"+
		"type: learning\n"+
		"description: how to deploy the broker\n"+
		"project:\n  - infra\n"+
		"status: active\n"+
		"created: 2026-01-01\n"+
		"access_count: 5\n"+
		"---\n"+
		"See [[broker overview]] for background.\n")

	c, err := ReadCorpus(root)
	require.NoError(t, err)
	require.Len(t, c.Notes, 1)
	n := c.Notes[0]
	require.Equal(t, "broker deploy runbook", n.Title)
	require.Equal(t, "how to deploy the broker", n.Description)
	require.Equal(t, []string{"infra"}, n.Project)
	require.Equal(t, 5, n.AccessCount)
	require.Contains(t, n.Body, "[[broker overview]]")
}

func TestReadCorpusMalformedHeaderWarns(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "notes"), 0755))
	writeNote(t, filepath.Join(root, "notes"), "broken", "---\n"+
		"type: [this is not\n"+
		"---\n"+
		"body text\n")

	c, err := ReadCorpus(root)
	require.NoError(t, err)
	require.Len(t, c.Notes, 1)
	require.Len(t, c.Warnings, 1)
	require.Equal(t, "broken", c.Warnings[0].Note)
}

func TestReadCorpusNoHeaderIsBodyOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "notes"), 0755))
	writeNote(t, filepath.Join(root, "notes"), "plain", "just a body, no header\n")

	c, err := ReadCorpus(root)
	require.NoError(t, err)
	require.Len(t, c.Notes, 1)
	require.Empty(t, c.Warnings)
	require.Contains(t, c.Notes[0].Body, "just a body")
}

func TestExtractLinksDedupAndTrim(t *testing.T) {
	links := ExtractLinks("see [[ b ]] and [[c]] and [[b]] again")
	require.Equal(t, []string{"b", "c"}, links)
}

func TestExtractLinksNone(t *testing.T) {
	require.Empty(t, ExtractLinks("no links here"))
}

func TestDetectTitleMentionsBasic(t *testing.T) {
	body := "Discussed the broker deploy runbook today."
	mentions := DetectTitleMentions(body, []string{"broker deploy runbook"})
	require.Len(t, mentions, 1)
	require.Equal(t, "broker deploy runbook", mentions[0].Title)
}

func TestDetectTitleMentionsSkipsInsideLinks(t *testing.T) {
	body := "See [[broker deploy runbook]] for details."
	mentions := DetectTitleMentions(body, []string{"broker deploy runbook"})
	require.Empty(t, mentions)
}

func TestDetectTitleMentionsLongestFirst(t *testing.T) {
	body := "the broker deploy runbook v2 is new"
	mentions := DetectTitleMentions(body, []string{"broker deploy runbook v2", "broker deploy runbook"})
	require.Len(t, mentions, 1)
	require.Equal(t, "broker deploy runbook v2", mentions[0].Title)
}

func TestDetectTitleMentionsSlugFlexible(t *testing.T) {
	body := "see broker-deploy-runbook for steps"
	mentions := DetectTitleMentions(body, []string{"broker deploy runbook"})
	require.Len(t, mentions, 1)
}

func TestSplitHeaderNoOpeningDelimiter(t *testing.T) {
	body, hdr, has := splitHeader("no header here\nline 2")
	require.False(t, has)
	require.Empty(t, hdr)
	require.Contains(t, body, "no header here")
}

func TestSplitHeaderUnclosed(t *testing.T) {
	body, _, has := splitHeader("---\ntype: idea\nno closing delimiter")
	require.False(t, has)
	require.Contains(t, body, "---")
}
