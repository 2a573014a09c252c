package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		url    string
		header string
		want   string
	}{
		{name: "default", url: "/", want: LocaleZH},
		{name: "header en", url: "/", header: "en-GB,en;q=0.9", want: LocaleEN},
		{name: "header weighted", url: "/", header: "fr-FR, zh-TW;q=0.8", want: LocaleZH},
		{name: "query wins", url: "/?lang=en", header: "zh-CN", want: LocaleEN},
		{name: "unknown", url: "/", header: "de-DE", want: LocaleZH},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", tc.url, nil)
			if tc.header != "" {
				c.Request.Header.Set("Accept-Language", tc.header)
			}
			if got := ResolveLocale(c); got != tc.want {
				t.Fatalf("ResolveLocale = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestTranslateFallback(t *testing.T) {
	if got := T(LocaleEN, "coupon.reason.EXPIRED"); got != "Coupon has expired" {
		t.Fatalf("unexpected en message: %s", got)
	}
	if got := T("ja-JP", "error.coupon_not_found"); got != "优惠券不存在" {
		t.Fatalf("expected default locale fallback, got %s", got)
	}
	if got := T(LocaleEN, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("expected key fallback, got %s", got)
	}
	if got := Sprintf(LocaleEN, "error.rate_limited", 5); got != "Too many requests, retry in 5 seconds" {
		t.Fatalf("unexpected sprintf: %s", got)
	}
}

func TestEveryKeyTranslated(t *testing.T) {
	for key := range messages[LocaleZH] {
		if _, ok := messages[LocaleEN][key]; !ok {
			t.Fatalf("missing en-US translation for %s", key)
		}
	}
	for key := range messages[LocaleEN] {
		if _, ok := messages[LocaleZH][key]; !ok {
			t.Fatalf("missing zh-CN translation for %s", key)
		}
	}
}
