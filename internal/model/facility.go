// Package model はドメインモデルを定義する。
package model

import "time"

// Facility は地図上に表示する村落施設（モスク、学校、診療所など）を表す。
// PhotoFilename、Address、Descriptionは任意項目で、未設定の場合は空文字列。
type Facility struct {
	ID            int64
	Name          string
	PhotoFilename string
	Address       string
	Description   string
	Latitude      float64
	Longitude     float64
	Category      Category
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Category は施設カテゴリを表す。固定の列挙値のみ許可される。
type Category string

const (
	// CategoryMasjid はモスク・礼拝施設。
	CategoryMasjid Category = "Masjid"
	// CategoryPendidikan は教育施設（学校など）。
	CategoryPendidikan Category = "Pendidikan"
	// CategoryKesehatan は保健・医療施設。
	CategoryKesehatan Category = "Kesehatan"
	// CategoryPrasaranaUmum は公共インフラ施設。
	CategoryPrasaranaUmum Category = "Prasarana Umum"
	// CategoryFasilitasPublik は公共サービス施設。
	CategoryFasilitasPublik Category = "Fasilitas Publik"
)

// CategoryMeta はフロントエンドのマップ表示用カテゴリメタデータ。
type CategoryMeta struct {
	Value Category `json:"value"`
	Label string   `json:"label"`
	Icon  string   `json:"icon"`
	Color string   `json:"color"`
}

// categoryMetadata はカテゴリ表示メタデータの定義順リスト。
var categoryMetadata = []CategoryMeta{
	{Value: CategoryMasjid, Label: "Masjid", Icon: "mosque", Color: "#2e7d32"},
	{Value: CategoryPendidikan, Label: "Pendidikan", Icon: "school", Color: "#1565c0"},
	{Value: CategoryKesehatan, Label: "Kesehatan", Icon: "local_hospital", Color: "#c62828"},
	{Value: CategoryPrasaranaUmum, Label: "Prasarana Umum", Icon: "construction", Color: "#6d4c41"},
	{Value: CategoryFasilitasPublik, Label: "Fasilitas Publik", Icon: "apartment", Color: "#6a1b9a"},
}

// CategoryMetadata は全カテゴリのメタデータを定義順で返す。
func CategoryMetadata() []CategoryMeta {
	out := make([]CategoryMeta, len(categoryMetadata))
	copy(out, categoryMetadata)
	return out
}

// IsValidCategory は値が許可されたカテゴリのいずれかであるかを返す。
func IsValidCategory(value string) bool {
	for _, m := range categoryMetadata {
		if string(m.Value) == value {
			return true
		}
	}
	return false
}

// ValidLatitude は緯度が[-90, 90]の範囲内であるかを返す。
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude は経度が[-180, 180]の範囲内であるかを返す。
func ValidLongitude(lon float64) bool {
	return lon >= -180 && lon <= 180
}

// CategoryStat はカテゴリ別の施設数を表す。
type CategoryStat struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// FacilityStats は施設統計（総数とカテゴリ別件数）を表す。
type FacilityStats struct {
	Total      int            `json:"total"`
	ByCategory []CategoryStat `json:"by_category"`
}
