package wakatime

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Response types decode leniently: a field that is absent, null or of the
// wrong type takes its zero value instead of failing the whole payload.
// Numeric fields also accept numeric strings. Only syntactically invalid
// JSON is an error, and that is reported by the caller's decoder before
// any of these run.

type AllTimeResponse struct {
	Data AllTimeData `json:"data"`
}

func (r *AllTimeResponse) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*r = AllTimeResponse{Data: object[AllTimeData](f["data"])}
	return nil
}

type AllTimeData struct {
	TotalSeconds float64 `json:"total_seconds"`
	Text         string  `json:"text"`
}

func (d *AllTimeData) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*d = AllTimeData{TotalSeconds: number(f["total_seconds"]), Text: text(f["text"])}
	return nil
}

type SummaryResponse struct {
	Data            []SummaryDay    `json:"data"`
	CumulativeTotal CumulativeTotal `json:"cumulative_total"`
	DailyAverage    DailyAverage    `json:"daily_average"`
}

func (r *SummaryResponse) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*r = SummaryResponse{
		Data:            list[SummaryDay](f["data"]),
		CumulativeTotal: object[CumulativeTotal](f["cumulative_total"]),
		DailyAverage:    object[DailyAverage](f["daily_average"]),
	}
	return nil
}

type SummaryDay struct {
	GrandTotal GrandTotal    `json:"grand_total"`
	Languages  []SummaryItem `json:"languages"`
	Range      SummaryRange  `json:"range"`
}

func (d *SummaryDay) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*d = SummaryDay{
		GrandTotal: object[GrandTotal](f["grand_total"]),
		Languages:  list[SummaryItem](f["languages"]),
		Range:      object[SummaryRange](f["range"]),
	}
	return nil
}

type GrandTotal struct {
	Text         string  `json:"text"`
	TotalSeconds float64 `json:"total_seconds"`
}

func (g *GrandTotal) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*g = GrandTotal{Text: text(f["text"]), TotalSeconds: number(f["total_seconds"])}
	return nil
}

type SummaryItem struct {
	Name         string  `json:"name"`
	TotalSeconds float64 `json:"total_seconds"`
}

func (i *SummaryItem) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*i = SummaryItem{Name: text(f["name"]), TotalSeconds: number(f["total_seconds"])}
	return nil
}

type SummaryRange struct {
	Date  string `json:"date"`
	Start string `json:"start"`
}

func (r *SummaryRange) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*r = SummaryRange{Date: text(f["date"]), Start: text(f["start"])}
	return nil
}

type CumulativeTotal struct {
	Seconds float64 `json:"seconds"`
	Text    string  `json:"text"`
}

func (c *CumulativeTotal) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*c = CumulativeTotal{Seconds: number(f["seconds"]), Text: text(f["text"])}
	return nil
}

type DailyAverage struct {
	Text                       string `json:"text"`
	TextIncludingOtherLanguage string `json:"text_including_other_language"`
}

func (a *DailyAverage) UnmarshalJSON(data []byte) error {
	f := fields(data)
	*a = DailyAverage{
		Text:                       text(f["text"]),
		TextIncludingOtherLanguage: text(f["text_including_other_language"]),
	}
	return nil
}

// fields returns the members of a JSON object, or nil for any other value.
func fields(data []byte) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func number(raw json.RawMessage) float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = n
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func object[T any](raw json.RawMessage) T {
	var v T
	_ = json.Unmarshal(raw, &v)
	return v
}

func list[T any](raw json.RawMessage) []T {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, object[T](it))
	}
	return out
}
