package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/fasilmap/internal/model"
	"github.com/hitoshi/fasilmap/internal/repository"
	"github.com/hitoshi/fasilmap/internal/response"
)

// FacilityServiceInterface は施設ハンドラーが必要とするサービスインターフェース。
type FacilityServiceInterface interface {
	List(ctx context.Context, filter repository.FacilityFilter) ([]*model.Facility, error)
	Get(ctx context.Context, id int64) (*model.Facility, error)
	Stats(ctx context.Context) (*model.FacilityStats, error)
	Categories() []model.CategoryMeta
	Create(ctx context.Context, fields map[string]any, photo io.Reader) (*model.Facility, error)
	Update(ctx context.Context, id int64, fields map[string]any, photo io.Reader) (*model.Facility, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// FacilityMetrics は施設CRUD操作のメトリクス記録インターフェース。
// metrics.Collectorの部分集合として定義する。nilを許容する。
type FacilityMetrics interface {
	RecordFacilityOperation(operation string)
	RecordPhotoUpload()
}

// FacilityHandler は施設管理のHTTPハンドラー。
type FacilityHandler struct {
	service FacilityServiceInterface
	metrics FacilityMetrics
}

// NewFacilityHandler はFacilityHandlerを生成する。
func NewFacilityHandler(service FacilityServiceInterface, m FacilityMetrics) *FacilityHandler {
	return &FacilityHandler{
		service: service,
		metrics: m,
	}
}

// facilityResponse は施設情報のAPIレスポンス。
type facilityResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Photo       string  `json:"photo,omitempty"`
	Address     string  `json:"address,omitempty"`
	Description string  `json:"description,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Category    string  `json:"category"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toFacilityResponse(f *model.Facility) facilityResponse {
	return facilityResponse{
		ID:          f.ID,
		Name:        f.Name,
		Photo:       f.PhotoFilename,
		Address:     f.Address,
		Description: f.Description,
		Latitude:    f.Latitude,
		Longitude:   f.Longitude,
		Category:    string(f.Category),
		CreatedAt:   f.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   f.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// List は施設一覧を返す。
// GET /api/facilities?kategori=&search=&limit=&offset=&format=
//
// action=categoriesとaction=statsはそれぞれ専用のペイロードを返して
// リクエストを終了する。一覧処理には続かない。
func (h *FacilityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch q.Get("action") {
	case "categories":
		response.WriteSuccess(w, http.StatusOK, map[string]any{
			"categories": h.service.Categories(),
		}, "")
		return
	case "stats":
		stats, err := h.service.Stats(r.Context())
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.WriteSuccess(w, http.StatusOK, map[string]any{
			"stats": stats,
		}, "")
		return
	}

	filter := repository.FacilityFilter{
		Category: q.Get("kategori"),
		Search:   q.Get("search"),
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = offset
	}

	facilities, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if q.Get("format") == "geojson" {
		response.WriteSuccess(w, http.StatusOK, toFeatureCollection(facilities), "")
		return
	}

	items := make([]facilityResponse, 0, len(facilities))
	for _, f := range facilities {
		items = append(items, toFacilityResponse(f))
	}

	response.WriteSuccess(w, http.StatusOK, map[string]any{
		"facilities": items,
		"count":      len(items),
	}, "")
}

// Get は施設詳細を返す。
// GET /api/facilities/{id}
func (h *FacilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := facilityID(w, r)
	if !ok {
		return
	}

	facility, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if facility == nil {
		response.WriteError(w, http.StatusNotFound, "Facility not found")
		return
	}

	response.WriteSuccess(w, http.StatusOK, map[string]any{
		"facility": toFacilityResponse(facility),
	}, "")
}

// Create は施設を作成する。
// POST /api/facilities
// JSONボディ、またはdataフィールド（JSON）とphotoファイルを持つ
// multipart/form-dataを受け付ける。
func (h *FacilityHandler) Create(w http.ResponseWriter, r *http.Request) {
	fields, photo, cleanup, err := parseFacilityBody(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer cleanup()

	facility, err := h.service.Create(r.Context(), fields, photo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordFacilityOperation("create")
		if facility.PhotoFilename != "" {
			h.metrics.RecordPhotoUpload()
		}
	}

	response.WriteSuccess(w, http.StatusCreated, map[string]any{
		"facility": toFacilityResponse(facility),
	}, "Facility created")
}

// Update は施設を部分更新する。
// PUT|POST /api/facilities/{id}
func (h *FacilityHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := facilityID(w, r)
	if !ok {
		return
	}

	fields, photo, cleanup, err := parseFacilityBody(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer cleanup()

	facility, err := h.service.Update(r.Context(), id, fields, photo)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if facility == nil {
		response.WriteError(w, http.StatusNotFound, "Facility not found")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordFacilityOperation("update")
	}

	response.WriteSuccess(w, http.StatusOK, map[string]any{
		"facility": toFacilityResponse(facility),
	}, "Facility updated")
}

// Delete は施設と紐づく写真を削除する。
// DELETE /api/facilities/{id}
func (h *FacilityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := facilityID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if !deleted {
		response.WriteError(w, http.StatusNotFound, "Facility not found")
		return
	}

	if h.metrics != nil {
		h.metrics.RecordFacilityOperation("delete")
	}

	response.WriteSuccess(w, http.StatusOK, nil, "Facility deleted")
}

// facilityID はパスパラメータから施設IDを取り出す。
// 数値でない場合は404エンベロープを書き込んでfalseを返す。
func facilityID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		response.WriteError(w, http.StatusNotFound, "Facility not found")
		return 0, false
	}
	return id, true
}

// maxMultipartMemory はmultipartフォーム解析時のメモリ上限。
const maxMultipartMemory = 32 << 20

// parseFacilityBody はJSONまたはmultipartの施設入力を解析する。
// multipartの場合はdataフィールドのJSONと任意のphotoファイルを取り出す。
// 返されるcleanupは必ず呼ぶこと。
func parseFacilityBody(r *http.Request) (map[string]any, io.Reader, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		fields, err := decodeJSONBody(r)
		if err != nil {
			return nil, nil, noop, err
		}
		return fields, nil, noop, nil
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return nil, nil, noop, err
	}

	fields := map[string]any{}
	if data := r.FormValue("data"); data != "" {
		dec := json.NewDecoder(strings.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			return nil, nil, noop, err
		}
	}

	file, _, err := r.FormFile("photo")
	if err == http.ErrMissingFile {
		return fields, nil, noop, nil
	}
	if err != nil {
		return nil, nil, noop, err
	}

	return fields, file, func() { file.Close() }, nil
}
