package handler

import "github.com/hitoshi/fasilmap/internal/model"

// geoJSONGeometry はGeoJSONのPointジオメトリ。
// 座標は[経度, 緯度]の順（RFC 7946）。
type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// geoJSONFeature は1施設に対応するGeoJSONフィーチャ。
type geoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   geoJSONGeometry `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// geoJSONFeatureCollection はGeoJSONのFeatureCollection。
type geoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// toFeatureCollection は施設一覧を地図フロントエンド向けの
// GeoJSON FeatureCollectionに変換する。
func toFeatureCollection(facilities []*model.Facility) geoJSONFeatureCollection {
	features := make([]geoJSONFeature, 0, len(facilities))
	for _, f := range facilities {
		features = append(features, geoJSONFeature{
			Type: "Feature",
			Geometry: geoJSONGeometry{
				Type:        "Point",
				Coordinates: [2]float64{f.Longitude, f.Latitude},
			},
			Properties: map[string]any{
				"id":          f.ID,
				"name":        f.Name,
				"category":    string(f.Category),
				"address":     f.Address,
				"description": f.Description,
				"photo":       f.PhotoFilename,
			},
		})
	}

	return geoJSONFeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
