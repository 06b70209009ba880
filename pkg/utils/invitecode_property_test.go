package utils

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"pgregory.net/rapid"
)

func TestProperty_GeneratedCodesAlwaysValid(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every generated code passes validation", prop.ForAll(
		func(count int) bool {
			for i := 0; i < count; i++ {
				code, err := GenerateInviteCode()
				if err != nil {
					return false
				}
				if !IsValidCode(code) {
					return false
				}
				// Normalization is a no-op on generated codes
				if NormalizeCode(code) != code {
					return false
				}
			}
			return true
		},
		gen.IntRange(10, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: normalization is idempotent and case/whitespace insensitive
func TestProperty_NormalizationIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property test in short mode")
	}

	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.StringMatching(`[ \t]*[a-zA-Z0-9.]{0,20}[ \t]*`).Draw(rt, "raw")

		code := NormalizeCode(raw)
		if NormalizeCode(code) != code {
			rt.Fatalf("NormalizeCode not idempotent for %q", raw)
		}
		if code != strings.ToUpper(strings.TrimSpace(raw)) {
			rt.Fatalf("NormalizeCode(%q) = %q", raw, code)
		}

		domain := NormalizeRootDomain(raw)
		if NormalizeRootDomain(domain) != domain {
			rt.Fatalf("NormalizeRootDomain not idempotent for %q", raw)
		}
		if domain != strings.ToLower(strings.TrimSpace(raw)) {
			rt.Fatalf("NormalizeRootDomain(%q) = %q", raw, domain)
		}
	})
}
