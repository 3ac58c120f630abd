package grading

import (
	"regexp"
	"strings"
)

const documentMarker = `\documentclass`

var (
	documentClassRe = regexp.MustCompile(`\\documentclass\{[^}]+\}`)
	usePackageRe    = regexp.MustCompile(`\\usepackage\{[^}]+\}`)
	documentBodyRe  = regexp.MustCompile(`(?s)\\begin\s*\{document\}(.*)\\end\s*\{document\}`)
)

// WrapDocument wraps a feedback fragment in a minimal LaTeX document so renderers
// always receive a complete document. Text that already declares a document class
// is returned unchanged.
func WrapDocument(feedback string) string {
	if strings.Contains(feedback, documentMarker) {
		return feedback
	}
	return "\\documentclass{article}\n\\usepackage{amsmath}\n\\begin{document}\n\n" + feedback + "\n\n\\end{document}"
}

// DocumentBody strips the preamble and document environment, leaving the text a
// grader reads in a preview.
func DocumentBody(content string) string {
	stripped := documentClassRe.ReplaceAllString(content, "")
	stripped = usePackageRe.ReplaceAllString(stripped, "")
	if match := documentBodyRe.FindStringSubmatch(stripped); match != nil {
		return strings.TrimSpace(match[1])
	}
	return strings.TrimSpace(stripped)
}
