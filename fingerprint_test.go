package samplecache

import (
	"regexp"
	"testing"
)

func TestFingerprintStable(t *testing.T) {
	id := Identity{Provider: "p", Model: "m", Temperature: 0.7, Params: map[string]string{"top_p": "0.9", "seed": "1"}}
	a := Fingerprint(id, "hello")
	for i := 0; i < 10; i++ {
		if b := Fingerprint(id, "hello"); b != a {
			t.Fatalf("unstable fingerprint: %s vs %s", a, b)
		}
	}
	if !regexp.MustCompile(`^[0-9a-f]{64}$`).MatchString(a) {
		t.Fatalf("fingerprint is not hex sha256: %q", a)
	}

	// map iteration order must not matter
	id2 := Identity{Provider: "p", Model: "m", Temperature: 0.7, Params: map[string]string{"seed": "1", "top_p": "0.9"}}
	if Fingerprint(id2, "hello") != a {
		t.Fatal("params order changed the fingerprint")
	}
}

// Fingerprints name records on disk; any change here orphans existing caches.
func TestFingerprintGolden(t *testing.T) {
	cases := []struct {
		id     Identity
		prompt string
		want   string
	}{
		{
			Identity{Provider: "fireworks", Model: "llama-v3", Temperature: 0.5, Params: map[string]string{"top_p": "0.9", "seed": "7"}},
			"Name a colour.",
			"1b97ff515b570d8eb926f23ddc2ed7e6509af01008117753e4b105415afc9177",
		},
		{
			Identity{Provider: "p", Model: "m"},
			"",
			"93833f1615e508f2403352d7564185e717ea72c252ab632b3cc6e87c4ed9ac0e",
		},
	}
	for _, c := range cases {
		if got := Fingerprint(c.id, c.prompt); got != c.want {
			t.Errorf("Fingerprint(%s, %q) = %s, want %s", c.id, c.prompt, got, c.want)
		}
	}
}

func TestFingerprintNilAndEmptyParams(t *testing.T) {
	a := Fingerprint(Identity{Provider: "p", Model: "m", Temperature: 1}, "x")
	b := Fingerprint(Identity{Provider: "p", Model: "m", Temperature: 1, Params: map[string]string{}}, "x")
	if a != b {
		t.Fatalf("nil and empty params differ: %s != %s", a, b)
	}
}

func TestFingerprintDistinct(t *testing.T) {
	base := Identity{Provider: "p", Model: "m", Temperature: 1}
	cases := map[string]struct {
		id     Identity
		prompt string
	}{
		"base":        {base, "hello"},
		"prompt":      {base, "hello!"},
		"provider":    {Identity{Provider: "q", Model: "m", Temperature: 1}, "hello"},
		"model":       {Identity{Provider: "p", Model: "n", Temperature: 1}, "hello"},
		"temperature": {Identity{Provider: "p", Model: "m", Temperature: 0.5}, "hello"},
		"params":      {Identity{Provider: "p", Model: "m", Temperature: 1, Params: map[string]string{"top_p": "1"}}, "hello"},
		// concatenation would make these equal
		"split1": {Identity{Provider: "pm", Model: "", Temperature: 1}, "hello"},
		"split2": {Identity{Provider: "p", Model: "mhello", Temperature: 1}, ""},
	}
	seen := make(map[string]string)
	for name, c := range cases {
		fp := Fingerprint(c.id, c.prompt)
		if other, dup := seen[fp]; dup {
			t.Fatalf("%s and %s share fingerprint %s", name, other, fp)
		}
		seen[fp] = name
	}
}

func TestFingerprintAliasReplacesProvider(t *testing.T) {
	a := Identity{Provider: "fireworks", Model: "llama", Alias: "llama-shared", Temperature: 1}
	b := Identity{Provider: "302ai", Model: "llama", Alias: "llama-shared", Temperature: 1}
	if Fingerprint(a, "q") != Fingerprint(b, "q") {
		t.Fatal("same alias on different providers should share a fingerprint")
	}
	c := Identity{Provider: "llama-shared", Model: "llama", Temperature: 1}
	if Fingerprint(a, "q") != Fingerprint(c, "q") {
		t.Fatal("alias should stand in for the provider")
	}
	if Fingerprint(a, "q") == Fingerprint(Identity{Provider: "fireworks", Model: "llama", Temperature: 1}, "q") {
		t.Fatal("alias ignored")
	}
}

func TestIdentityString(t *testing.T) {
	id := Identity{Provider: "p", Model: "m", Alias: "a", Temperature: 0.5, Params: map[string]string{"z": "1", "b": "2"}}
	if got, want := id.String(), "a/m@0.5,b=2,z=1"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
