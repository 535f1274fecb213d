package planner

import (
	"strconv"
	"strings"
)

// SystemMessage is sent as the system turn of every generation.
const SystemMessage = "Return only minified JSON without markdown."

// ParseSystemMessage is the system turn for turning free text into a request.
const ParseSystemMessage = "You are a JSON parsing assistant. Return only valid JSON, no markdown."

// ParseTemperature keeps request parsing close to deterministic.
const ParseTemperature = 0.3

// Prompt is one chat completion: a system turn, a user turn and the sampling temperature.
type Prompt struct {
	System      string
	User        string
	Temperature float32
}

// GeneratePrompt is the completion that plans req.
func GeneratePrompt(req Request) Prompt {
	return Prompt{System: SystemMessage, User: BuildPrompt(req)}
}

// ParsePrompt is the completion that extracts a Request from spoken or typed text.
func ParsePrompt(text string) Prompt {
	var b strings.Builder

	b.WriteString("You parse travel requests. Extract these fields from the user's input and return JSON:\n")
	b.WriteString("{\n")
	b.WriteString(`  "destination": "destination, e.g. Tokyo, Japan",` + "\n")
	b.WriteString(`  "startDate": "start date as YYYY-MM-DD, if mentioned",` + "\n")
	b.WriteString(`  "endDate": "end date as YYYY-MM-DD, if mentioned",` + "\n")
	b.WriteString(`  "budget": "budget with amount and currency, e.g. 10000 CNY",` + "\n")
	b.WriteString(`  "people": number of travellers,` + "\n")
	b.WriteString(`  "prefs": "travel preferences, e.g. food, anime, family"` + "\n")
	b.WriteString("}\n")
	b.WriteString("\nUser input: " + strconv.Quote(text) + "\n")
	b.WriteString("\nRules:\n")
	b.WriteString("1. Return only JSON.\n")
	b.WriteString("2. Use null or an empty string for fields that are not mentioned.\n")
	b.WriteString("3. Convert dates to YYYY-MM-DD.\n")
	b.WriteString("4. Include the currency (CNY, JPY, USD, ...) in the budget.\n")
	b.WriteString("5. Give people as a number.")

	return Prompt{System: ParseSystemMessage, User: b.String(), Temperature: ParseTemperature}
}

// BuildPrompt renders the user turn for req.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("You are an expert travel planner. Return ONLY valid JSON.\n")
	b.WriteString("Fields: title, currency (ISO code), total_budget_estimate (number), days[].\n")
	b.WriteString("For each day: date (YYYY-MM-DD), city, transport (brief), daily_cost_estimate (number),\n")
	b.WriteString("activities[] with {time, name, type, lat?, lng?, cost_estimate?, tips?},\n")
	b.WriteString("hotel {name, address?, lat?, lng?, price_per_night?},\n")
	b.WriteString("meals[] {name, address?, lat?, lng?, price_estimate?}.\n")
	b.WriteString("\nConstraints:\n")
	b.WriteString("- Consider destination: " + req.Destination + "\n")
	b.WriteString("- Dates: " + req.StartDate + " to " + req.EndDate + "\n")
	b.WriteString("- Budget: " + req.Budget + "\n")
	b.WriteString("- People: " + req.People + "\n")
	b.WriteString("- Preferences: " + req.Prefs + "\n")
	b.WriteString("- Be realistic with costs (use " + req.Destination + " local prices if possible).\n")
	b.WriteString("- Include lat/lng when confident; else omit.\n")
	b.WriteString("- Keep JSON concise.")

	return b.String()
}
