// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fasilmap/internal/model"
	"github.com/hitoshi/fasilmap/internal/response"
)

// writeServiceError はサービス層のエラーを統一エンベロープに変換して書き込む。
// バリデーションエラー（422）は累積エラー一覧を常にdataとして返す。
// 想定外のエラーは内部詳細をログにのみ記録し、クライアントには
// 一般的な500メッセージを返す。
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == model.ErrCodeValidation {
			response.WriteErrorData(w, apiErr.Status, apiErr.Message, map[string]any{
				"errors": apiErr.Details,
			})
			return
		}
		response.WriteError(w, apiErr.Status, apiErr.Message)
		return
	}

	slog.Error("unhandled service error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	response.WriteErrorDetails(w, http.StatusInternalServerError, "Internal server error", err.Error())
}
