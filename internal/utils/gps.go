package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xelth-com/agrocampo/internal/apierror"
)

// NormalizeGPS accepts a point as "lat,lon" text or as an object with
// lat|latitude and lon|lng|longitude keys and returns "lat,lon" with six
// decimals. A nil or empty input yields nil
func NormalizeGPS(raw json.RawMessage) (*string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var lat, lon float64
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, gpsError()
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		var err error
		if lat, lon, err = parseGPSText(s); err != nil {
			return nil, err
		}
	case '{':
		var obj map[string]interface{}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, gpsError()
		}
		var okLat, okLon bool
		lat, okLat = firstNumber(obj, "lat", "latitude")
		lon, okLon = firstNumber(obj, "lon", "lng", "longitude")
		if !okLat || !okLon {
			return nil, gpsError()
		}
	default:
		return nil, gpsError()
	}

	if math.IsNaN(lat) || math.IsNaN(lon) {
		return nil, gpsError()
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, apierror.BadRequest("Coordenadas GPS fuera de rango")
	}
	out := fmt.Sprintf("%.6f,%.6f", lat, lon)
	return &out, nil
}

func parseGPSText(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, gpsError()
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, gpsError()
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, gpsError()
	}
	return lat, lon, nil
}

func firstNumber(obj map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case float64:
			return v, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func gpsError() error {
	return apierror.BadRequest(`Formato de ubicación GPS inválido. Use "lat,lon" o {"lat": .., "lon": ..}`)
}
