package seb

import (
	"strings"
	"testing"
)

func TestBrowserExamKeyDerivation(t *testing.T) {
	// The derivation is SHA-256 over the concatenated start URL and config
	// key; the browser side implements the same recipe.
	startURL := "https://exam.example.com/attempt/abc"
	configKey := "deadbeef"

	want := SHA256Hex(startURL + configKey)
	if got := BrowserExamKey(startURL, configKey); got != want {
		t.Errorf("BrowserExamKey = %s, want %s", got, want)
	}

	if BrowserExamKey(startURL, "other") == want {
		t.Error("different config keys produced the same exam key")
	}
	if BrowserExamKey("https://exam.example.com/attempt/xyz", configKey) == want {
		t.Error("different start URLs produced the same exam key")
	}
}

func TestNewConfigKeyIsUniqueAndHex(t *testing.T) {
	a, b := NewConfigKey(), NewConfigKey()
	if a == b {
		t.Error("two generated config keys collided")
	}
	if len(a) != 64 {
		t.Errorf("config key length = %d, want 64 hex chars", len(a))
	}
	if strings.ToLower(a) != a {
		t.Error("config key is not lowercase hex")
	}
}

func TestVerifyKeysExactMatch(t *testing.T) {
	ok, disc := VerifyKeys("ck", "ek", "ck", "ek")
	if !ok || len(disc) != 0 {
		t.Errorf("matching keys: verified=%v discrepancies=%v", ok, disc)
	}
}

func TestVerifyKeysMismatches(t *testing.T) {
	cases := []struct {
		name                   string
		assertedCK, assertedEK string
		want                   []string
	}{
		{"config key wrong", "bad", "ek", []string{DiscrepancyConfigKey}},
		{"exam key wrong", "ck", "bad", []string{DiscrepancyBrowserExamKey}},
		{"both wrong", "bad", "bad", []string{DiscrepancyConfigKey, DiscrepancyBrowserExamKey}},
		{"both empty", "", "", []string{DiscrepancyConfigKey, DiscrepancyBrowserExamKey}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, disc := VerifyKeys("ck", "ek", tc.assertedCK, tc.assertedEK)
			if ok {
				t.Fatal("mismatched keys verified")
			}
			if len(disc) != len(tc.want) {
				t.Fatalf("discrepancies = %v, want %v", disc, tc.want)
			}
			for i := range disc {
				if disc[i] != tc.want[i] {
					t.Errorf("discrepancy[%d] = %s, want %s", i, disc[i], tc.want[i])
				}
			}
		})
	}
}

func TestBuildConfigMatchesVerification(t *testing.T) {
	configKey := NewConfigKey()
	doc := BuildConfig("https://exam.example.com/attempt", "https://exam.example.com/quit",
		"9f7c3a60-0000-0000-0000-000000000000", configKey, "QUITCODE", []string{"obs64.exe"})

	// A compliant browser reports the document's keys verbatim; the server
	// derives the same exam key from the stored config key. The two paths
	// must agree byte for byte.
	expectedExamKey := BrowserExamKey(doc.StartURL, configKey)
	ok, disc := VerifyKeys(configKey, expectedExamKey, doc.ConfigKey, doc.BrowserExamKey)
	if !ok {
		t.Fatalf("document keys failed verification: %v", disc)
	}

	if doc.QuitURL != "https://exam.example.com/quit" {
		t.Errorf("QuitURL = %s", doc.QuitURL)
	}
	if !strings.HasSuffix(doc.StartURL, "/9f7c3a60-0000-0000-0000-000000000000") {
		t.Errorf("StartURL missing session id: %s", doc.StartURL)
	}
	if !doc.Lockdown.RequireFullscreen || !doc.Lockdown.DisableCopyPaste {
		t.Error("lockdown toggles not set")
	}
}

func TestQuitPasswordRoundTrip(t *testing.T) {
	password := NewQuitPassword()
	if len(password) != 8 {
		t.Fatalf("quit password length = %d, want 8", len(password))
	}
	for _, c := range password {
		if strings.ContainsRune("01OIl", c) {
			t.Errorf("quit password contains ambiguous character %q", c)
		}
	}

	hash, err := HashQuitPassword(password, 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CheckQuitPassword(hash, password); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := CheckQuitPassword(hash, "WRONGPWD"); err == nil {
		t.Error("wrong password accepted")
	}
}
