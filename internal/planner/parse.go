package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxParseText is the longest input ParseRequest accepts, in characters.
const MaxParseText = 2000

// ParseRequest asks the model to turn free text, typically a voice transcript, into a
// Request. Fields the text does not mention are empty and dates that are not
// YYYY-MM-DD are dropped. The result is not validated; a missing destination is left
// for the caller to fill in.
func (s *Service) ParseRequest(ctx context.Context, text string) (Request, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Request{}, &FieldError{Field: "text", Message: "is required"}
	}
	if utf8.RuneCountInString(text) > MaxParseText {
		return Request{}, &FieldError{Field: "text", Message: fmt.Sprintf("must be at most %d characters", MaxParseText)}
	}
	if !s.Configured() {
		return Request{}, ErrNotConfigured
	}

	start := time.Now()
	content, err := s.completer.Complete(ctx, ParsePrompt(text))
	s.metrics.RecordRequest(s.completer.Name(), "parse", time.Since(start), err)
	if err != nil {
		return Request{}, err
	}

	req, err := decodeRequest(content)
	if err != nil {
		s.logger.Warn().
			Str("raw", excerpt(content, 200)).
			Msg("model output is not a plan request")
		return Request{}, err
	}

	s.logger.Debug().
		Str("destination", req.Destination).
		Dur("duration", time.Since(start)).
		Msg("plan request parsed")

	return req, nil
}

// parsedRequest mirrors Request with the loose typing models produce.
type parsedRequest struct {
	Destination looseString `json:"destination"`
	StartDate   looseString `json:"startDate"`
	EndDate     looseString `json:"endDate"`
	Budget      looseString `json:"budget"`
	People      looseString `json:"people"`
	Prefs       looseString `json:"prefs"`
}

func decodeRequest(content string) (Request, error) {
	raw, ok := ExtractJSON(content)
	if !ok {
		return Request{}, badOutput(content, errors.New("no json object found"))
	}

	var p parsedRequest
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Request{}, badOutput(content, err)
	}

	req := Request{
		Destination: string(p.Destination),
		StartDate:   string(p.StartDate),
		EndDate:     string(p.EndDate),
		Budget:      string(p.Budget),
		People:      string(p.People),
		Prefs:       string(p.Prefs),
	}.Normalize()
	req.StartDate = validDate(req.StartDate)
	req.EndDate = validDate(req.EndDate)
	return req, nil
}

func validDate(s string) string {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return ""
	}
	return s
}

// looseString decodes a JSON string or number. Null, booleans, objects and arrays
// decode as empty.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	*s = ""

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch c := data[0]; {
	case c == '"':
		var v string
		if err := json.Unmarshal(data, &v); err == nil {
			*s = looseString(v)
		}
	case c == '-' || (c >= '0' && c <= '9'):
		*s = looseString(data)
	}
	return nil
}
