package navigation_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripmap/tripmap/internal/navigation"
	"github.com/tripmap/tripmap/internal/poi"
)

func TestBuilder_Link(t *testing.T) {
	b, err := navigation.NewBuilder("")
	require.NoError(t, err)

	tests := []struct {
		name  string
		point poi.GeoPoint
		want  string
	}{
		{
			name:  "plain name",
			point: poi.GeoPoint{Lng: 139.65035, Lat: 35.67622, Name: "Tokyo Tower"},
			want:  "https://uri.amap.com/marker?position=139.65035,35.67622&name=Tokyo%20Tower",
		},
		{
			name:  "reserved characters",
			point: poi.GeoPoint{Lng: 2.3522, Lat: 48.8566, Name: "Café & Bar #1"},
			want:  "https://uri.amap.com/marker?position=2.3522,48.8566&name=Caf%C3%A9%20%26%20Bar%20%231",
		},
		{
			name:  "multi-word name",
			point: poi.GeoPoint{Lng: 116.397428, Lat: 39.90923, Name: "Forbidden City Palace Museum"},
			want:  "https://uri.amap.com/marker?position=116.397428,39.90923&name=Forbidden%20City%20Palace%20Museum",
		},
		{
			name:  "literal plus",
			point: poi.GeoPoint{Lng: 1, Lat: 2, Name: "Café+ Bar"},
			want:  "https://uri.amap.com/marker?position=1,2&name=Caf%C3%A9%2B%20Bar",
		},
		{
			name:  "negative coordinates",
			point: poi.GeoPoint{Lng: -122.4194, Lat: 37.7749, Name: "SF"},
			want:  "https://uri.amap.com/marker?position=-122.4194,37.7749&name=SF",
		},
		{
			name:  "empty name",
			point: poi.GeoPoint{Lng: 0, Lat: 0},
			want:  "https://uri.amap.com/marker?position=0,0&name=",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Link(tt.point))
		})
	}
}

func TestBuilder_LinkRoundTripsName(t *testing.T) {
	b, err := navigation.NewBuilder("")
	require.NoError(t, err)

	name := "天安门 / Tian'anmen?"
	u, err := url.Parse(b.Link(poi.GeoPoint{Lng: 116.397428, Lat: 39.90923, Name: name}))
	require.NoError(t, err)
	assert.Equal(t, name, u.Query().Get("name"))
	assert.Equal(t, "116.397428,39.90923", u.Query().Get("position"))
}

func TestNewBuilder_CustomBase(t *testing.T) {
	b, err := navigation.NewBuilder("https://maps.example.com/pin?stale=1")
	require.NoError(t, err)
	assert.Equal(t, "https://maps.example.com/pin?position=1,2&name=x", b.Link(poi.GeoPoint{Lng: 1, Lat: 2, Name: "x"}))
}

func TestNewBuilder_InvalidBase(t *testing.T) {
	for _, base := range []string{"not a url", "ftp://example.com/x", "/relative/path", "https://"} {
		_, err := navigation.NewBuilder(base)
		assert.ErrorIs(t, err, navigation.ErrInvalidBaseURL, base)
	}
}
