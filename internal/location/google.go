package location

import (
	"context"
	"errors"
	"strings"

	"googlemaps.github.io/maps"
)

// GoogleGeolocator asks the Google Geolocation API for the server's position,
// falling back to IP geolocation when ConsiderIP is set.
type GoogleGeolocator struct {
	client     *maps.Client
	considerIP bool
}

func NewGoogleGeolocator(apiKey string, considerIP bool, opts ...maps.ClientOption) (*GoogleGeolocator, error) {
	client, err := maps.NewClient(append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &GoogleGeolocator{client: client, considerIP: considerIP}, nil
}

func (g *GoogleGeolocator) CurrentPosition(ctx context.Context) (*Position, error) {
	res, err := g.client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: g.considerIP})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewError(CodeTimeout, err)
		}
		return nil, NewError(googleCode(err.Error()), err)
	}
	return &Position{
		Latitude:  res.Location.Lat,
		Longitude: res.Location.Lng,
		Accuracy:  res.Accuracy,
	}, nil
}

// The client library surfaces only the API's message text, so the reason is
// recovered from it.
var googleReasons = [...]struct {
	fragment string
	code     Code
}{
	{"api key not valid", CodePermissionDenied},
	{"keyinvalid", CodePermissionDenied},
	{"not authorized", CodePermissionDenied},
	{"accessnotconfigured", CodePermissionDenied},
	{"forbidden", CodePermissionDenied},
	{"denied", CodePermissionDenied},
	{"not found", CodePositionUnavailable},
	{"notfound", CodePositionUnavailable},
}

func googleCode(msg string) Code {
	m := strings.ToLower(msg)
	for _, r := range googleReasons {
		if strings.Contains(m, r.fragment) {
			return r.code
		}
	}
	return CodeUnknown
}
