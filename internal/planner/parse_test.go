package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_ParseRequest(t *testing.T) {
	completer := &fakeCompleter{configured: true, content: "```json\n" +
		`{"destination":" Tokyo, Japan ","startDate":"2025-10-01","endDate":"2025-10-05",` +
		`"budget":"10000 CNY","people":2,"prefs":"food, anime"}` + "\n```"}
	svc := NewService(ServiceConfig{Completer: completer, Logger: zerolog.Nop()})

	req, err := svc.ParseRequest(context.Background(), "  Two of us to Tokyo Oct 1-5, 10000 yuan, love food and anime ")
	require.NoError(t, err)

	assert.Equal(t, Request{
		Destination: "Tokyo, Japan",
		StartDate:   "2025-10-01",
		EndDate:     "2025-10-05",
		Budget:      "10000 CNY",
		People:      "2",
		Prefs:       "food, anime",
	}, req)

	require.Equal(t, 1, completer.calls())
	prompt := completer.prompts[0]
	assert.Equal(t, ParseSystemMessage, prompt.System)
	assert.InDelta(t, ParseTemperature, prompt.Temperature, 1e-6)
	assert.Contains(t, prompt.User, `User input: "Two of us to Tokyo Oct 1-5, 10000 yuan, love food and anime"`)
}

func TestService_ParseRequest_LooseFields(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Request
	}{
		{
			name:    "nulls and empty strings",
			content: `{"destination":"Lisbon","startDate":null,"endDate":"","budget":null,"people":null,"prefs":""}`,
			want:    Request{Destination: "Lisbon"},
		},
		{
			name:    "numeric budget and string people",
			content: `{"destination":"Rome","budget":1500,"people":"3"}`,
			want:    Request{Destination: "Rome", Budget: "1500", People: "3"},
		},
		{
			name:    "dates not in YYYY-MM-DD are dropped",
			content: `{"destination":"Paris","startDate":"next Friday","endDate":"2025/06/03"}`,
			want:    Request{Destination: "Paris"},
		},
		{
			name:    "objects and booleans are empty",
			content: `{"destination":{"city":"Oslo"},"people":true,"prefs":["hiking"]}`,
			want:    Request{},
		},
		{
			name:    "missing destination is not an error",
			content: `Sure! {"budget":"500 USD"}`,
			want:    Request{Budget: "500 USD"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(ServiceConfig{
				Completer: &fakeCompleter{configured: true, content: tt.content},
				Logger:    zerolog.Nop(),
			})

			req, err := svc.ParseRequest(context.Background(), "anything")
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestService_ParseRequest_InvalidText(t *testing.T) {
	completer := &fakeCompleter{configured: true, content: `{}`}
	svc := NewService(ServiceConfig{Completer: completer, Logger: zerolog.Nop()})

	for _, text := range []string{"", "   \n\t", strings.Repeat("a", MaxParseText+1)} {
		_, err := svc.ParseRequest(context.Background(), text)
		assert.ErrorIs(t, err, ErrInvalidRequest)

		var fieldErr *FieldError
		require.True(t, errors.As(err, &fieldErr))
		assert.Equal(t, "text", fieldErr.Field)
	}
	assert.Zero(t, completer.calls())

	_, err := svc.ParseRequest(context.Background(), strings.Repeat("東", MaxParseText))
	assert.NoError(t, err, "the limit counts characters, not bytes")
}

func TestService_ParseRequest_NotConfigured(t *testing.T) {
	svc := NewService(ServiceConfig{Completer: &fakeCompleter{}, Logger: zerolog.Nop()})

	_, err := svc.ParseRequest(context.Background(), "Kyoto for a week")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestService_ParseRequest_BadOutput(t *testing.T) {
	completer := &fakeCompleter{configured: true, content: "I could not understand that."}
	svc := NewService(ServiceConfig{Completer: completer, Logger: zerolog.Nop()})

	_, err := svc.ParseRequest(context.Background(), "mumble")
	require.ErrorIs(t, err, ErrBadModelOutput)

	var perr *Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "I could not understand that.", perr.Raw)
}

func TestService_ParseRequest_ProviderError(t *testing.T) {
	completer := &fakeCompleter{configured: true, err: &Error{Message: "provider request failed", Err: ErrProviderUnavailable}}
	svc := NewService(ServiceConfig{Completer: completer, Logger: zerolog.Nop()})

	_, err := svc.ParseRequest(context.Background(), "Kyoto for a week")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestParsePrompt_QuotesInput(t *testing.T) {
	p := ParsePrompt(`say "hi"` + "\nthen leave")

	assert.Contains(t, p.User, `User input: "say \"hi\"\nthen leave"`)
	assert.True(t, strings.HasSuffix(p.User, "5. Give people as a number."))
}
