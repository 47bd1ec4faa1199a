package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fortune-report-api/internal/models"
)

// ErrUnrecognizedShape is returned when an analysis response matches no known report shape
var ErrUnrecognizedShape = errors.New("unrecognized analysis response shape")

type chapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Normalize converts a raw analysis API response into ReportData.
//
// Accepted shapes, in order: {summary, detail}; {detail1..detailN};
// {chapters: [{number, title, content}]}. Anything else fails as a whole.
func Normalize(raw map[string]json.RawMessage) (*models.ReportData, error) {
	if msg, ok := stringField(raw, "error"); ok && msg != "" {
		return nil, fmt.Errorf("analysis service error: %s", msg)
	}

	summary, _ := stringField(raw, "summary")
	detail, _ := stringField(raw, "detail")
	if summary != "" && detail != "" {
		return &models.ReportData{IsMulti: false, Summary: summary, Detail: detail}, nil
	}

	if details, err := numberedDetails(raw); err != nil {
		return nil, err
	} else if len(details) > 0 {
		return &models.ReportData{IsMulti: true, Details: details}, nil
	}

	if chaptersRaw, ok := raw["chapters"]; ok {
		var chapters []chapter
		if err := json.Unmarshal(chaptersRaw, &chapters); err != nil {
			return nil, fmt.Errorf("%w: chapters: %v", ErrUnrecognizedShape, err)
		}
		if len(chapters) > 0 {
			sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].Number < chapters[j].Number })
			data := &models.ReportData{IsMulti: true}
			for _, ch := range chapters {
				data.Details = append(data.Details, ch.Content)
				data.Titles = append(data.Titles, ch.Title)
			}
			return data, nil
		}
	}

	return nil, ErrUnrecognizedShape
}

// numberedDetails collects detailN string fields ordered by N
func numberedDetails(raw map[string]json.RawMessage) ([]string, error) {
	type numbered struct {
		n    int
		text string
	}
	var found []numbered
	for key, value := range raw {
		if !strings.HasPrefix(key, "detail") {
			continue
		}
		n, err := strconv.Atoi(key[len("detail"):])
		if err != nil || n < 1 {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			return nil, fmt.Errorf("%w: %s is not a string", ErrUnrecognizedShape, key)
		}
		found = append(found, numbered{n: n, text: text})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	details := make([]string, 0, len(found))
	for _, f := range found {
		details = append(details, f.text)
	}
	return details, nil
}

func stringField(raw map[string]json.RawMessage, key string) (string, bool) {
	value, ok := raw[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", false
	}
	return s, true
}
