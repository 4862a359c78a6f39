// internal/notify/renderer.go
package notify

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"signup-notifier/internal/models"
)

// RenderContext carries the values substituted into a template. Zero
// fields render as empty strings, so one context type serves every
// category.
type RenderContext struct {
	Name            string
	FirstName       string
	LastName        string
	Email           string
	SheetTitle      string
	TaskTitle       string
	TaskDate        time.Time
	OldDate         time.Time
	NewDate         time.Time
	SiteName        string
	SiteURL         string
	ValidationLink  string
	ExpirationHours int
	ChairName       string

	// TemplateOverrideID is consulted only for the two validation
	// categories, which carry their template override explicitly instead
	// of through the task/sheet levels.
	TemplateOverrideID int64
}

const (
	dateFormat = "Monday, January 2, 2006 3:04 PM"
	wrapWidth  = 78
)

// ContentRenderer substitutes placeholder tags and converts between rich
// and plain output. It holds no mutable state; rendering the same template
// and context twice yields identical output.
type ContentRenderer struct{}

func NewContentRenderer() *ContentRenderer { return &ContentRenderer{} }

// Render produces the subject and body for one send. The subject is always
// plain; the body is promoted to markup or flattened to wrapped text
// depending on rich.
func (r *ContentRenderer) Render(tmpl models.Template, rc RenderContext, rich bool) (string, string) {
	subject := substituteTags(tmpl.Subject, rc, false)
	body := substituteTags(tmpl.Body, rc, rich)
	if rich {
		body = ToRich(body)
	} else {
		body = ToPlain(body)
	}
	return subject, body
}

// substituteTags is a flat find/replace over the fixed tag vocabulary. The
// tags are syntactically distinct tokens, so replacement order does not
// matter.
func substituteTags(s string, rc RenderContext, rich bool) string {
	link := rc.ValidationLink
	if rich && link != "" {
		link = fmt.Sprintf(`<a href="%s">%s</a>`, rc.ValidationLink, rc.ValidationLink)
	}

	replacer := strings.NewReplacer(
		"{name}", rc.Name,
		"{firstname}", rc.FirstName,
		"{lastname}", rc.LastName,
		"{email}", rc.Email,
		"{sheet_title}", rc.SheetTitle,
		"{task_title}", rc.TaskTitle,
		"{task_date}", formatDate(rc.TaskDate),
		"{old_date}", formatDate(rc.OldDate),
		"{new_date}", formatDate(rc.NewDate),
		"{site_name}", rc.SiteName,
		"{site_url}", rc.SiteURL,
		"{validation_link}", link,
		"{expiration_hours}", strconv.Itoa(rc.ExpirationHours),
		"{chair_name}", rc.ChairName,
	)
	return replacer.Replace(s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateFormat)
}

var (
	newlineRun = regexp.MustCompile(`\n{3,}`)
	brTag      = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockClose = regexp.MustCompile(`(?i)</(p|div|li|tr|h[1-6]|blockquote)>`)
	listOpen   = regexp.MustCompile(`(?i)<li[^>]*>`)
	anyTag     = regexp.MustCompile(`<[^>]+>`)
)

// ToRich promotes plain-text line structure to paragraph and line-break
// markup. Line endings are normalized to \n first so the paragraph split
// sees one convention.
func ToRich(plain string) string {
	s := strings.ReplaceAll(plain, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	paragraphs := strings.Split(s, "\n\n")
	var b strings.Builder
	for i, p := range paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(p, "\n", "<br />"))
		b.WriteString("</p>")
	}
	return b.String()
}

// ToPlain flattens markup to wrapped plain text. Line-break and block-close
// tags convert to newlines BEFORE the remaining tags are stripped;
// stripping first would collapse intended line breaks. Entities are
// decoded, blank-line runs collapse to at most one, and the result wraps
// at a fixed column for readability.
func ToPlain(rich string) string {
	s := strings.ReplaceAll(rich, "\r\n", "\n")
	s = brTag.ReplaceAllString(s, "\n")
	s = blockClose.ReplaceAllString(s, "\n\n")
	s = listOpen.ReplaceAllString(s, "\n- ")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = newlineRun.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)
	return wrapText(s, wrapWidth)
}

// wrapText breaks long lines at word boundaries. Existing line structure,
// including blank lines, is preserved.
func wrapText(s string, width int) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if len(line) <= width {
			out = append(out, line)
			continue
		}
		var cur string
		for _, word := range strings.Fields(line) {
			switch {
			case cur == "":
				cur = word
			case len(cur)+1+len(word) > width:
				out = append(out, cur)
				cur = word
			default:
				cur += " " + word
			}
		}
		if cur != "" {
			out = append(out, cur)
		}
	}
	return strings.Join(out, "\n")
}
