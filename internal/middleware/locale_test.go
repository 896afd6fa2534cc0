package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocaleNegotiation(t *testing.T) {
	tests := []struct {
		name    string
		xLocale string
		accept  string
		want    string
	}{
		{name: "no headers defaults", want: "en"},
		{name: "x-locale wins", xLocale: "id", accept: "en-US", want: "id"},
		{name: "accept language indonesian", accept: "id-ID,id;q=0.9,en;q=0.8", want: "id"},
		{name: "accept language english region", accept: "en-GB", want: "en"},
		{name: "unsupported language falls back", accept: "fr-FR", want: "en"},
		{name: "garbage header falls back", accept: ";;;", want: "en"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := Locale("en")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = LocaleFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.xLocale != "" {
				req.Header.Set("X-Locale", tc.xLocale)
			}
			if tc.accept != "" {
				req.Header.Set("Accept-Language", tc.accept)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			if got != tc.want {
				t.Fatalf("locale = %q, want %q", got, tc.want)
			}
		})
	}
}
