package notion

import (
	"strings"
	"time"
)

// Request and response shapes of the Notion database query endpoint. Only the
// fields the collector reads are declared.

type queryRequest struct {
	Filter      *filter    `json:"filter,omitempty"`
	Sorts       []sortSpec `json:"sorts"`
	PageSize    int        `json:"page_size"`
	StartCursor string     `json:"start_cursor,omitempty"`
}

type sortSpec struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

type filter struct {
	And []propertyFilter `json:"and"`
}

type propertyFilter struct {
	Property string     `json:"property"`
	Date     dateFilter `json:"date"`
}

type dateFilter struct {
	OnOrAfter  string `json:"on_or_after,omitempty"`
	OnOrBefore string `json:"on_or_before,omitempty"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type page struct {
	ID         string              `json:"id"`
	Properties map[string]property `json:"properties"`
}

type property struct {
	Type     string     `json:"type"`
	RichText []richText `json:"rich_text"`
	Date     *dateValue `json:"date"`
}

type richText struct {
	PlainText string `json:"plain_text"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text"`
}

type dateValue struct {
	Start string `json:"start"`
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (p property) text() string {
	var b strings.Builder
	for _, rt := range p.RichText {
		if rt.PlainText != "" {
			b.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			b.WriteString(rt.Text.Content)
		}
	}
	return b.String()
}

// parseDate accepts Notion's date-only and date-time forms. Date-only values
// are calendar days in JST.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) == len("2006-01-02") {
		return time.ParseInLocation("2006-01-02", s, loc)
	}
	return time.Parse(time.RFC3339, s)
}
