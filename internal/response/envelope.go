// Package response は統一JSONレスポンスエンベロープを提供する。
//
// すべてのAPIレスポンスは {success, message, timestamp, data?, details?} の
// 形式で返される。書き込み後は呼び出し側が即座にreturnし、
// リクエスト処理を継続しないこと。
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// debugMode はエラーレスポンスにdetailsを含めるかどうか。
// 起動時にSetDebugで1回だけ設定する。
var debugMode bool

// SetDebug はデバッグモードを設定する。起動時に1回だけ呼ぶこと。
func SetDebug(enabled bool) {
	debugMode = enabled
}

// Envelope は統一レスポンスの形式。
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// WriteSuccess は成功レスポンスを書き込む。
// messageが空の場合は"Success"を使用する。
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	if message == "" {
		message = "Success"
	}
	write(w, status, Envelope{
		Success:   true,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
}

// WriteError はエラーレスポンスを書き込む。
// 書き込み後、呼び出し側はそれ以上処理を行わないこと。
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteErrorDetails(w, status, message, nil)
}

// WriteErrorDetails は補足情報付きのエラーレスポンスを書き込む。
// detailsはデバッグモードが有効な場合のみレスポンスに含まれる。
// バリデーションエラーの一覧など、常にクライアントへ返すべき情報は
// dataとして返すこと（WriteErrorData）。
func WriteErrorDetails(w http.ResponseWriter, status int, message string, details any) {
	env := Envelope{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if debugMode {
		env.Details = details
	}
	write(w, status, env)
}

// WriteErrorData はクライアントへ常に返すデータ付きのエラーレスポンスを書き込む。
// バリデーションエラーの累積一覧に使用する。
func WriteErrorData(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{
		Success:   false,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
}

// write はエンベロープをJSONとして書き込む。
// 非ASCII文字はエスケープせずそのまま出力する。
func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		slog.Error("failed to encode response envelope",
			slog.String("error", err.Error()),
		)
	}
}
