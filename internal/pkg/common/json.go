package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v)
}

func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		// 若讀到額外 token，視為錯誤
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

var (
	unquotedKeyPattern  = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	trailingCommaPatten = regexp.MustCompile(`,\s*([}\]])`)
	lineCommentPattern  = regexp.MustCompile(`(?m)^\s*//[^\n]*$`)
	smartQuoteReplacer  = strings.NewReplacer(
		"“", `"`, // 左智能雙引號
		"”", `"`, // 右智能雙引號
		"‘", "'",
		"’", "'",
	)
)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

// ExtractJSONObject 從模型回應中擷取 JSON 物件本體
// 模型常在 JSON 外包 markdown code fence 或說明文字，
// 取第一個 { 到最後一個 } 之間的內容
func ExtractJSONObject(raw string) (string, error) {
	txt := strings.TrimSpace(raw)
	txt = strings.TrimPrefix(txt, "```json")
	txt = strings.TrimPrefix(txt, "```")
	txt = strings.TrimSuffix(txt, "```")
	txt = strings.TrimSpace(txt)

	start, end := strings.Index(txt, "{"), strings.LastIndex(txt, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return txt[start : end+1], nil
}

// RepairJSON 修復模型輸出常見的 JSON 毛病：
// 智能引號、行註解、結尾多餘逗號、未加引號的鍵
func RepairJSON(raw string) string {
	txt := smartQuoteReplacer.Replace(raw)
	txt = lineCommentPattern.ReplaceAllString(txt, "")
	txt = trailingCommaPatten.ReplaceAllString(txt, "$1")
	txt = QuoteJSONKeys(txt)
	return txt
}

// ParseLooseJSON 容錯解析模型輸出：先直接解析，失敗後擷取 + 修復再解析一次。
// 兩次都失敗就放棄，絕不回傳猜測的結構
func ParseLooseJSON(raw string, v interface{}) error {
	if err := ParseJSON(strings.TrimSpace(raw), v); err == nil {
		return nil
	}

	extracted, err := ExtractJSONObject(raw)
	if err != nil {
		return err
	}
	if err := ParseJSON(extracted, v); err == nil {
		return nil
	}

	repaired := RepairJSON(extracted)
	if err := ParseJSON(repaired, v); err != nil {
		return fmt.Errorf("failed to parse AI response after repair: %w", err)
	}
	return nil
}

// ToJSON 將結構體轉換為 JSON 字符串
func ToJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// TruncateForLog 截斷長字串以便記錄（例如原始 AI 回應前綴）
func TruncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
