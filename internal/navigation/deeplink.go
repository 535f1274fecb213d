// Package navigation builds deep links into an external map and navigation service.
package navigation

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/tripmap/tripmap/internal/poi"
)

// DefaultBaseURL is the marker endpoint links point to unless configured otherwise.
const DefaultBaseURL = "https://uri.amap.com/marker"

// ErrInvalidBaseURL is returned when the configured base is not an absolute http(s) URL.
var ErrInvalidBaseURL = errors.New("navigation base url must be an absolute http or https url")

// Builder creates deep links for points.
type Builder struct {
	base string
}

// NewBuilder creates a Builder for base. An empty base selects DefaultBaseURL.
func NewBuilder(base string) (*Builder, error) {
	if base == "" {
		base = DefaultBaseURL
	}

	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidBaseURL
	}

	base, _, _ = strings.Cut(base, "?")
	return &Builder{base: base}, nil
}

// Link returns the deep link for p:
// <base>?position=<lng>,<lat>&name=<percent-encoded name>.
func (b *Builder) Link(p poi.GeoPoint) string {
	var sb strings.Builder
	sb.WriteString(b.base)
	sb.WriteString("?position=")
	sb.WriteString(formatCoord(p.Lng))
	sb.WriteByte(',')
	sb.WriteString(formatCoord(p.Lat))
	sb.WriteString("&name=")
	sb.WriteString(escapeName(p.Name))
	return sb.String()
}

// escapeName percent-encodes name with spaces as %20. The marker endpoint does
// not decode '+' as a space.
func escapeName(name string) string {
	return strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
