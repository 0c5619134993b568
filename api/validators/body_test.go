package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/contactalia/contactalia-backend/pkg/errors"
)

type phoneForm struct {
	Phone      string  `json:"phone" validate:"required,phone_es"`
	PostalCode *string `json:"postal_code" validate:"omitempty,postal_es"`
}

func decode(body string) error {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest phoneForm
	return DecodeJSONBody(req, &dest)
}

func TestSpanishPhoneAndPostalCode(t *testing.T) {
	valid := []string{
		`{"phone":"612345678"}`,
		`{"phone":"612 34 56 78","postal_code":"28001"}`,
		`{"phone":"612-345-678","postal_code":""}`,
	}
	for _, body := range valid {
		if err := decode(body); err != nil {
			t.Fatalf("expected %s to validate, got %v", body, err)
		}
	}

	invalid := map[string]string{
		`{"phone":"12345"}`:                           "phone",
		`{"phone":"61234567a"}`:                       "phone",
		`{"phone":"612345678","postal_code":"2800"}`:  "postal_code",
		`{"phone":"612345678","postal_code":"ABCDE"}`: "postal_code",
	}
	for body, field := range invalid {
		err := decode(body)
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %s, got %v", body, err)
		}
		details, _ := pkgerrors.As(err).Details().(map[string]string)
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details for %s, got %v", field, body, details)
		}
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	if err := decode(`{"phone":"612345678","extra":true}`); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSanitizeStringKeepsMultibyteCities(t *testing.T) {
	cases := map[string]struct {
		in   string
		max  int
		want string
	}{
		"accents":   {in: "  Málaga  ", max: 120, want: "Málaga"},
		"collapse":  {in: "Santa \t Cruz\n de  Tenerife", max: 0, want: "Santa Cruz de Tenerife"},
		"truncate":  {in: "Cádiz", max: 2, want: "Cá"},
		"control":   {in: "Leó\x00n", max: 10, want: "León"},
		"edgeSpace": {in: "A Coruña", max: 2, want: "A"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := SanitizeString(tc.in, tc.max); got != tc.want {
				t.Fatalf("SanitizeString(%q, %d) = %q, want %q", tc.in, tc.max, got, tc.want)
			}
		})
	}
}
