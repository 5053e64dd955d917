package auth

import (
	"errors"
	"testing"

	"github.com/danmuck/mapdlctl/internal/testutil/testlog"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		name    string
		stored  StaticToken
		input   string
		wantErr error
	}{
		{name: "empty token denied", stored: "", input: "", wantErr: ErrUnauthorized},
		{name: "mismatched token denied", stored: "abc", input: "xyz", wantErr: ErrUnauthorized},
		{name: "matching token accepted", stored: "abc", input: "abc", wantErr: nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.stored.Validate(tc.input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected err %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCheckBearerHeader(t *testing.T) {
	testlog.Start(t)
	v := StaticToken("s3cret")
	cases := map[string]error{
		"Bearer s3cret":   nil,
		"bearer  s3cret ": nil,
		"Bearer wrong":    ErrUnauthorized,
		"Basic s3cret":    ErrMissingToken,
		"Bearer":          ErrMissingToken,
		"":                ErrMissingToken,
	}
	for header, want := range cases {
		if err := Check(v, header); !errors.Is(err, want) {
			t.Fatalf("Check(%q) = %v, want %v", header, err, want)
		}
	}
}
