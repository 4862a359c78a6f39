// internal/notify/renderer_test.go
package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"signup-notifier/internal/models"
)

func TestContentRenderer_TagSubstitution(t *testing.T) {
	renderer := NewContentRenderer()

	tmpl := models.Template{
		Subject: "Reminder: {task_title} on {task_date}",
		Body:    "Hi {firstname},\n\nYou are signed up for {task_title} ({sheet_title}).\n\n{site_name}",
	}
	rc := RenderContext{
		FirstName:  "Pat",
		SheetTitle: "Bake Sale",
		TaskTitle:  "Setup",
		TaskDate:   time.Date(2026, 9, 12, 9, 0, 0, 0, time.UTC),
		SiteName:   "Volunteer Signups",
	}

	subject, body := renderer.Render(tmpl, rc, false)

	assert.Equal(t, "Reminder: Setup on Saturday, September 12, 2026 9:00 AM", subject)
	assert.Contains(t, body, "Hi Pat,")
	assert.Contains(t, body, "Setup (Bake Sale)")
	assert.Contains(t, body, "Volunteer Signups")
	assert.NotContains(t, body, "{")
}

func TestContentRenderer_UnknownValuesRenderEmpty(t *testing.T) {
	renderer := NewContentRenderer()

	tmpl := models.Template{Subject: "s", Body: "Chair: {chair_name}."}
	_, body := renderer.Render(tmpl, RenderContext{}, false)

	assert.Equal(t, "Chair: .", body)
}

func TestContentRenderer_Deterministic(t *testing.T) {
	renderer := NewContentRenderer()
	tmpl := models.Template{Subject: "{name}", Body: "Hello {name},\n\nSee you at {task_title}."}
	rc := RenderContext{Name: "Pat Jones", TaskTitle: "Cleanup"}

	s1, b1 := renderer.Render(tmpl, rc, true)
	s2, b2 := renderer.Render(tmpl, rc, true)

	assert.Equal(t, s1, s2)
	assert.Equal(t, b1, b2)
}

func TestContentRenderer_ValidationLink(t *testing.T) {
	renderer := NewContentRenderer()
	tmpl := models.Template{Subject: "s", Body: "Confirm here: {validation_link}"}
	rc := RenderContext{ValidationLink: "https://example.org/v/abc123"}

	_, plain := renderer.Render(tmpl, rc, false)
	assert.Contains(t, plain, "https://example.org/v/abc123")
	assert.NotContains(t, plain, "<a ")

	_, rich := renderer.Render(tmpl, rc, true)
	assert.Contains(t, rich, `<a href="https://example.org/v/abc123">`)
}

func TestToRich_ParagraphsAndLineBreaks(t *testing.T) {
	tests := []struct {
		name  string
		plain string
		want  string
	}{
		{
			name:  "two paragraphs",
			plain: "First paragraph.\n\nSecond paragraph.",
			want:  "<p>First paragraph.</p>\n<p>Second paragraph.</p>",
		},
		{
			name:  "single newline becomes line break",
			plain: "Line one\nLine two",
			want:  "<p>Line one<br />Line two</p>",
		},
		{
			name:  "CRLF normalized",
			plain: "A\r\n\r\nB",
			want:  "<p>A</p>\n<p>B</p>",
		},
		{
			name:  "blank line runs collapse",
			plain: "A\n\n\n\nB",
			want:  "<p>A</p>\n<p>B</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToRich(tt.plain))
		})
	}
}

func TestToPlain_StructureAndEntities(t *testing.T) {
	tests := []struct {
		name string
		rich string
		want string
	}{
		{
			name: "paragraphs become blank-line separated",
			rich: "<p>First.</p><p>Second.</p>",
			want: "First.\n\nSecond.",
		},
		{
			name: "br becomes newline",
			rich: "Line one<br />Line two",
			want: "Line one\nLine two",
		},
		{
			name: "list items become dashes",
			rich: "<ul><li>apples</li><li>pears</li></ul>",
			want: "- apples\n\n- pears",
		},
		{
			name: "entities decode",
			rich: "<p>Fish &amp; Chips &lt;tonight&gt;</p>",
			want: "Fish & Chips <tonight>",
		},
		{
			name: "unknown tags stripped",
			rich: `<span style="color:red">warning</span>`,
			want: "warning",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToPlain(tt.rich))
		})
	}
}

func TestToPlain_WrapsLongLines(t *testing.T) {
	long := strings.Repeat("word ", 40)
	out := ToPlain("<p>" + strings.TrimSpace(long) + "</p>")

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, len(line), 78)
	}
	// Wrapping must not lose words.
	assert.Equal(t, 40, len(strings.Fields(out)))
}

func TestRoundTrip_PreservesParagraphStructure(t *testing.T) {
	plain := "Hi Pat,\n\nYou are signed up for Setup.\n\nThanks!"

	rich := ToRich(plain)
	back := ToPlain(rich)

	wantParagraphs := strings.Split(plain, "\n\n")
	gotParagraphs := strings.Split(back, "\n\n")
	assert.Equal(t, len(wantParagraphs), len(gotParagraphs))
	assert.Equal(t, plain, back)
}
