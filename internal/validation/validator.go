// Package validation は宣言的ルールに基づく入力チェックとサニタイズを提供する。
//
// 各フィールドは required → 型変換 → 長さ → コールバック → サニタイズ の順で
// 検証され、全フィールドのエラーが累積される。部分的な成功はなく、
// 全フィールドが有効な場合のみクリーン済みデータが返る。
package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FieldType はフィールドの期待型を表す。
type FieldType string

const (
	// TypeString は文字列型。
	TypeString FieldType = "string"
	// TypeEmail はメールアドレス型。
	TypeEmail FieldType = "email"
	// TypeInt は整数型。文字列からの変換も受け付ける。
	TypeInt FieldType = "int"
	// TypeFloat は浮動小数点型。文字列からの変換も受け付ける。
	TypeFloat FieldType = "float"
)

// Rule は1フィールドの検証ルールを表す。
// MinLength/MaxLengthは0のとき未指定。CallbackはOKなら空文字列、
// NGならエラーメッセージを返す。
type Rule struct {
	Required  bool
	Type      FieldType
	MinLength int
	MaxLength int
	Callback  func(value any) string
}

// Result は検証結果を表す。
// Validがfalseの場合、Dataはnilでありいかなる部分データも返さない。
type Result struct {
	Valid  bool
	Errors []string
	Data   map[string]any
}

// Validator は宣言的ルールに基づく入力検証器。
// サニタイズポリシーを保持し、複数goroutineから安全に利用できる。
type Validator struct {
	policy *bluemonday.Policy
}

// New はValidatorを生成する。
// サニタイズにはbluemondayのStrictPolicyを使用し、
// 全てのマークアップを除去・エスケープする。
func New() *Validator {
	return &Validator{
		policy: bluemonday.StrictPolicy(),
	}
}

// Validate は入力マップをルールに従って検証する。
// フィールドはルール名のソート順で処理され、エラーの順序は決定的になる。
// 任意フィールドが欠落している場合はnilとしてDataに含め、エラーにはしない。
func (v *Validator) Validate(input map[string]any, rules map[string]Rule) Result {
	fields := make([]string, 0, len(rules))
	for name := range rules {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	var errs []string
	data := make(map[string]any, len(rules))

	for _, name := range fields {
		rule := rules[name]
		raw, present := input[name]

		// 1. required
		if isEmpty(raw) || !present {
			if rule.Required {
				errs = append(errs, fmt.Sprintf("%s is required", name))
			} else {
				data[name] = nil
			}
			continue
		}

		// 2. 型変換
		value, typeErr := coerce(name, raw, rule.Type)
		if typeErr != "" {
			errs = append(errs, typeErr)
			continue
		}

		// 3. 長さ（文字列系のみ、rune単位）
		if s, ok := value.(string); ok {
			length := len([]rune(s))
			if rule.MinLength > 0 && length < rule.MinLength {
				errs = append(errs, fmt.Sprintf("%s must be at least %d characters", name, rule.MinLength))
				continue
			}
			if rule.MaxLength > 0 && length > rule.MaxLength {
				errs = append(errs, fmt.Sprintf("%s must be at most %d characters", name, rule.MaxLength))
				continue
			}
		}

		// 4. コールバック
		if rule.Callback != nil {
			if msg := rule.Callback(value); msg != "" {
				errs = append(errs, msg)
				continue
			}
		}

		// 5. サニタイズ
		if s, ok := value.(string); ok {
			value = v.sanitize(s)
		}

		data[name] = value
	}

	if len(errs) > 0 {
		return Result{Valid: false, Errors: errs}
	}
	return Result{Valid: true, Data: data}
}

// sanitize は前後の空白を除去し、マークアップをポリシーで除去する。
func (v *Validator) sanitize(s string) string {
	return v.policy.Sanitize(strings.TrimSpace(s))
}

// isEmpty は値が「空」（nil、または空白のみの文字列）であるかを返す。
// 数値の0は空とみなさない。
func isEmpty(value any) bool {
	switch t := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// coerce は値をルールの期待型に変換する。
// 変換できない場合はエラーメッセージを返す。
func coerce(name string, value any, fieldType FieldType) (any, string) {
	switch fieldType {
	case TypeString, "":
		if s, ok := value.(string); ok {
			return s, ""
		}
		return nil, fmt.Sprintf("%s must be a string", name)

	case TypeEmail:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Sprintf("%s must be a string", name)
		}
		addr := strings.TrimSpace(s)
		if parsed, err := mail.ParseAddress(addr); err != nil || parsed.Address != addr {
			return nil, fmt.Sprintf("%s must be a valid email address", name)
		}
		return addr, ""

	case TypeInt:
		switch t := value.(type) {
		case int:
			return t, ""
		case int64:
			return int(t), ""
		case float64:
			if t != math.Trunc(t) {
				return nil, fmt.Sprintf("%s must be an integer", name)
			}
			return int(t), ""
		case json.Number:
			i, err := t.Int64()
			if err != nil {
				return nil, fmt.Sprintf("%s must be an integer", name)
			}
			return int(i), ""
		case string:
			i, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return nil, fmt.Sprintf("%s must be an integer", name)
			}
			return i, ""
		default:
			return nil, fmt.Sprintf("%s must be an integer", name)
		}

	case TypeFloat:
		switch t := value.(type) {
		case float64:
			return t, ""
		case float32:
			return float64(t), ""
		case int:
			return float64(t), ""
		case int64:
			return float64(t), ""
		case json.Number:
			f, err := t.Float64()
			if err != nil {
				return nil, fmt.Sprintf("%s must be a number", name)
			}
			return f, ""
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
			if err != nil {
				return nil, fmt.Sprintf("%s must be a number", name)
			}
			return f, ""
		default:
			return nil, fmt.Sprintf("%s must be a number", name)
		}

	default:
		return nil, fmt.Sprintf("%s has an unknown type rule", name)
	}
}
