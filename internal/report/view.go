package report

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"fortune-report-api/internal/markdown"
	"fortune-report-api/internal/models"
)

// Views turns resolved reports into HTML fragments
type Views struct {
	renderer *markdown.Renderer
}

// NewViews creates views backed by the given renderer; nil uses defaults
func NewViews(renderer *markdown.Renderer) *Views {
	if renderer == nil {
		renderer = markdown.New(markdown.Options{})
	}
	return &Views{renderer: renderer}
}

// Report renders a report's content. Multi-section reports get one section
// per detail, titled from the response, then the catalog, then "제N장".
func (v *Views) Report(rt models.ReportType, data *models.ReportData) string {
	if data == nil {
		return ""
	}

	if !data.IsMulti {
		html := `<div class="result-summary">` + v.renderer.Render(data.Summary) + `</div>` + "\n" +
			`<div class="result-detail">` + v.renderer.Render(data.Detail) + `</div>`
		return markdown.Sanitize(html)
	}

	sections := make([]string, 0, len(data.Details))
	for i, body := range data.Details {
		sections = append(sections,
			`<section class="report-section"><h2>📙 `+markdown.EscapeHTML(sectionTitle(rt, data, i))+`</h2>`+
				`<div class="report-body">`+v.renderer.Render(body)+`</div></section>`)
	}
	return markdown.Sanitize(strings.Join(sections, "\n"))
}

func sectionTitle(rt models.ReportType, data *models.ReportData, i int) string {
	if i < len(data.Titles) && data.Titles[i] != "" {
		return data.Titles[i]
	}
	if i < len(rt.SectionTitles) {
		return rt.SectionTitles[i]
	}
	return fmt.Sprintf("제%d장", i+1)
}

// Paywall renders the locked view with a link to the payment page
func (v *Views) Paywall(d models.Domain, rt models.ReportType, id string) string {
	q := url.Values{}
	q.Set("domain", d.Name)
	q.Set("id", id)
	q.Set("type", rt.Key)

	return `<div class="paywall">` +
		`<h2>🔒 결제 후 열람 가능합니다</h2>` +
		`<p>` + markdown.EscapeHTML(rt.OrderName) + `</p>` +
		`<a class="pay-button" href="/payment?` + markdown.EscapeHTML(q.Encode()) + `">보고서 결제하기</a>` +
		`</div>`
}

// Generating renders the in-progress view
func (v *Views) Generating() string {
	return `<div class="report-loading">보고서를 생성 중입니다…</div>`
}

// Error renders a single user-facing error message
func (v *Views) Error(err error) string {
	return `<div class="report-error">` + markdown.EscapeHTML(UserMessage(err)) + `</div>`
}

// UserMessage maps a resolve error to the one message shown to the user
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMissingID), errors.Is(err, ErrUnknownReportType):
		return "URL에 id 또는 type이 없습니다."
	case errors.Is(err, ErrRecordNotFound):
		return "분석 결과를 찾을 수 없습니다."
	case errors.Is(err, ErrMissingFeatures):
		return "분석에 필요한 정보가 없습니다. 처음부터 다시 시도해주세요."
	case errors.Is(err, ErrGenerationFailed):
		return "보고서 생성 중 오류가 발생했습니다. 다시 시도해주세요."
	}
	return "실행 중 오류가 발생했습니다. 새로고침 후 다시 시도해주세요."
}
