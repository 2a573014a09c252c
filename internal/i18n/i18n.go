package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// 支持的语言
const (
	LocaleZH = "zh-CN"
	LocaleEN = "en-US"

	DefaultLocale = LocaleZH
)

// ResolveLocale 从请求中解析语言：优先 lang 查询参数，其次 Accept-Language
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if locale, ok := NormalizeLocale(c.Query("lang")); ok {
		return locale
	}
	header := c.GetHeader("Accept-Language")
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if locale, ok := NormalizeLocale(tag); ok {
			return locale
		}
	}
	return DefaultLocale
}

// NormalizeLocale 将语言标签映射为支持的语言
func NormalizeLocale(tag string) (string, bool) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	switch {
	case tag == "":
		return "", false
	case strings.HasPrefix(tag, "zh"):
		return LocaleZH, true
	case strings.HasPrefix(tag, "en"):
		return LocaleEN, true
	default:
		return "", false
	}
}

// T 翻译消息 key，缺失时回退到默认语言，再回退到 key 本身
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
