package credential

import (
	"strings"
	"testing"

	"github.com/ppiankov/notterun/internal/provider"
)

func groq(fallback string) provider.Descriptor {
	return provider.Descriptor{
		Name:          "Groq",
		Models:        []string{"groq/llama-3.3-70b-versatile"},
		CredentialVar: "GROQ_API_KEY",
		FallbackKey:   fallback,
	}
}

func TestResolve_Precedence(t *testing.T) {
	cases := []struct {
		name     string
		fallback string
		user     string
		wantKey  string
		wantSrc  Source
	}{
		{"user wins", "fb", "  mine  ", "mine", SourceUser},
		{"blank user uses fallback", "fb", "   ", "fb", SourceFallback},
		{"empty user uses fallback", "fb", "", "fb", SourceFallback},
		{"nothing configured", "", "", "", SourceNone},
		{"user without fallback", "", "mine", "mine", SourceUser},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, src := Resolve(groq(tc.fallback), tc.user)
			if key != tc.wantKey || src != tc.wantSrc {
				t.Errorf("got (%q, %s), want (%q, %s)", key, src, tc.wantKey, tc.wantSrc)
			}
		})
	}
}

func TestApply_EmptyKeyIsNoop(t *testing.T) {
	slots := NewMapSlots(map[string]string{"GROQ_API_KEY": "old"})
	r := NewResolver(slots)

	wrote, err := r.Apply(groq(""), "")
	if err != nil {
		t.Fatal(err)
	}
	if wrote {
		t.Error("empty key should not write")
	}
	if got := slots.Get("GROQ_API_KEY"); got != "old" {
		t.Errorf("slot changed to %q", got)
	}

	wrote, err = r.Apply(groq(""), "new")
	if err != nil {
		t.Fatal(err)
	}
	if !wrote || slots.Get("GROQ_API_KEY") != "new" {
		t.Errorf("expected slot to hold new key, got %q", slots.Get("GROQ_API_KEY"))
	}
}

func TestPrepare(t *testing.T) {
	t.Run("user key written and returned", func(t *testing.T) {
		slots := NewMapSlots(nil)
		ctx, err := NewResolver(slots).Prepare(groq("fb"), " u ")
		if err != nil {
			t.Fatal(err)
		}
		if ctx.Key != "u" || ctx.Source != SourceUser || ctx.Variable != "GROQ_API_KEY" {
			t.Errorf("unexpected context %+v", ctx)
		}
		if slots.Get("GROQ_API_KEY") != "u" {
			t.Error("slot not written")
		}
	})

	t.Run("existing slot reused", func(t *testing.T) {
		slots := NewMapSlots(map[string]string{"GROQ_API_KEY": "prior"})
		ctx, err := NewResolver(slots).Prepare(groq(""), "")
		if err != nil {
			t.Fatal(err)
		}
		if ctx.Key != "prior" || ctx.Source != SourceEnvironment {
			t.Errorf("unexpected context %+v", ctx)
		}
	})

	t.Run("nothing available", func(t *testing.T) {
		slots := NewMapSlots(nil)
		ctx, err := NewResolver(slots).Prepare(groq(""), "")
		if err != nil {
			t.Fatal(err)
		}
		if !ctx.Empty() || ctx.Source != SourceNone {
			t.Errorf("unexpected context %+v", ctx)
		}
		if len(slots.Snapshot()) != 0 {
			t.Error("nothing should be written")
		}
	})
}

func TestEnvSlots(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	r := NewResolver(nil)
	if _, err := r.Apply(groq(""), "env-key"); err != nil {
		t.Fatal(err)
	}
	if got := (EnvSlots{}).Get("GROQ_API_KEY"); got != "env-key" {
		t.Errorf("got %q", got)
	}
}

func TestContext_StringHidesKey(t *testing.T) {
	ctx := Context{Variable: "OPENAI_API_KEY", Key: "sk-verysecretvalue1234", Source: SourceUser}
	s := ctx.String()
	if strings.Contains(s, "verysecret") {
		t.Errorf("key leaked: %s", s)
	}
	if !strings.Contains(s, "1234") || !strings.Contains(s, "user") {
		t.Errorf("unexpected string %q", s)
	}
}

func TestMask(t *testing.T) {
	cases := map[string]string{
		"":                "<unset>",
		"short":           "*****",
		"sk-abcdefgh1234": "sk-…1234",
	}
	for in, want := range cases {
		if got := Mask(in); got != want {
			t.Errorf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}
