package cache

import (
	"net/url"
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "endpoint only",
			key:  Key{Endpoint: "/bootstrap-static/"},
			want: "fpl:resp:bootstrap-static",
		},
		{
			name: "query params sorted",
			key: Key{
				Endpoint: "/leagues-classic/314/standings/",
				QueryParams: url.Values{
					"page_standings": []string{"2"},
					"page_new":       []string{"1"},
				},
			},
			want: "fpl:resp:leagues-classic/314/standings:page_new=1:page_standings=2",
		},
		{
			name: "empty endpoint",
			key:  Key{},
			want: "fpl:resp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_StringDeterministic(t *testing.T) {
	key := Key{
		Endpoint:    "/leagues-classic/1/standings/",
		QueryParams: url.Values{"b": {"2"}, "a": {"1"}, "c": {"3"}},
	}
	first := key.String()
	for i := 0; i < 20; i++ {
		if got := key.String(); got != first {
			t.Fatalf("String() not deterministic: %q vs %q", got, first)
		}
	}
}
