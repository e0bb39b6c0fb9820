package sanitize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

var (
	// scriptElement 匹配成对的 script 元素及其内容。
	scriptElement = regexp.MustCompile(`(?is)<\s*script[^>]*>.*?<\s*/\s*script[^>]*>`)
	// scriptTag 匹配任意属性、任意大小写的 <script> 开始或结束标签。
	scriptTag = regexp.MustCompile(`(?i)<\s*/?\s*script[^>]*>`)
)

// String 去除字符串中的 script 元素以及落单的 script 标签。
// 重复替换直到没有匹配，避免 "<scr<script>ipt>" 这类拼接在一次替换后重新成形。
func String(s string) string {
	for scriptTag.MatchString(s) {
		s = scriptElement.ReplaceAllString(s, "")
		s = scriptTag.ReplaceAllString(s, "")
	}
	return s
}

// Value 递归清洗 JSON 树：对象与数组按子节点重建，字符串叶子去除 script 标签，
// 其他基本类型原样返回。输入不会被修改。
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Value(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = Value(child)
		}
		return out
	default:
		return v
	}
}

// JSON 解析原始 JSON，清洗后重新编码。
func JSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	out, err := json.Marshal(Value(tree))
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return out, nil
}

// Struct 将类型化的值经 JSON 树清洗后解码回同一类型。
func Struct[T any](in T) (T, error) {
	var out T
	raw, err := json.Marshal(in)
	if err != nil {
		return out, fmt.Errorf("encode value: %w", err)
	}
	clean, err := JSON(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(clean, &out); err != nil {
		return out, fmt.Errorf("decode sanitized value: %w", err)
	}
	return out, nil
}
