package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ressarcimento/internal/core"
)

// maxBodyBytes caps url-encoded and JSON bodies; uploads go through ParseMultipartForm.
const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]interface{}
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// RecordInput holds the add-record fields as typed by the user.
type RecordInput struct {
	Date        string
	ClubID      string
	ClubName    string
	Amount      string
	Responsible string
}

// ParseRecordInput reads the add-record fields from a parsed body.
func ParseRecordInput(p *RequestBodyParser) RecordInput {
	return RecordInput{
		Date:        p.Get("date"),
		ClubID:      p.Get("club_id"),
		ClubName:    p.Get("club_name"),
		Amount:      p.Get("amount"),
		Responsible: p.Get("responsible"),
	}
}

// Record validates the input. The returned builder is a ready 422 response.
func (in RecordInput) Record() (core.Record, *HTMXResponseBuilder) {
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Record{}, UnprocessableEntityError("Data inválida")
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Record{}, UnprocessableEntityError("Valor inválido")
	}
	return core.Record{
		Date:        date,
		ClubID:      in.ClubID,
		ClubName:    in.ClubName,
		Amount:      amount,
		Responsible: in.Responsible,
	}, nil
}

// ParseWeekDay reads the optional date query parameter selecting which week
// to show. Missing or invalid values fall back to now.
func ParseWeekDay(query url.Values, now time.Time) time.Time {
	if v := strings.TrimSpace(query.Get("date")); v != "" {
		if d, err := core.ParseDate(v); err == nil {
			return d.Time
		}
	}
	return now
}

// ParseIndex reads the {index} path value of a delete request.
func ParseIndex(r *http.Request) (int, *HTMXResponseBuilder) {
	index, err := strconv.Atoi(strings.TrimSpace(r.PathValue("index")))
	if err != nil || index < 0 {
		return 0, BadRequestError("Índice inválido")
	}
	return index, nil
}
