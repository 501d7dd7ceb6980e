package secrets_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/secrets"
)

func staticLoader(vals map[string]string) secrets.Loader {
	return func() (map[string]string, error) { return vals, nil }
}

func TestNewVault_InitialLoad(t *testing.T) {
	v, err := secrets.NewVault(staticLoader(map[string]string{
		secrets.KeyOIDCClientSecret: "client-secret",
		secrets.KeySessionKey:       "sealing-key",
	}))
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	if got := v.Get(secrets.KeyOIDCClientSecret); got != "client-secret" {
		t.Fatalf("client secret = %q", got)
	}
	if got := v.Get("STOREFRONT_UNKNOWN"); got != "" {
		t.Fatalf("unknown key = %q, want empty", got)
	}
	keys := v.Keys()
	if len(keys) != 2 || keys[0] != secrets.KeyOIDCClientSecret || keys[1] != secrets.KeySessionKey {
		t.Fatalf("Keys() = %v", keys)
	}
}

func TestNewVault_LoaderError(t *testing.T) {
	_, err := secrets.NewVault(func() (map[string]string, error) {
		return nil, errors.New("secret mount missing")
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestVault_ReloadRotatesAndNotifies(t *testing.T) {
	gen := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		gen++
		if gen == 3 {
			return nil, errors.New("unavailable")
		}
		return map[string]string{secrets.KeySessionKey: map[int]string{1: "key-1", 2: "key-2"}[gen]}, nil
	})
	hooks := 0
	v.OnReload(func() { hooks++ })

	if err := v.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := v.Get(secrets.KeySessionKey); got != "key-2" {
		t.Fatalf("after reload got %q, want key-2", got)
	}
	if err := v.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if got := v.Get(secrets.KeySessionKey); got != "key-2" {
		t.Fatalf("failed reload replaced values: %q", got)
	}
	if hooks != 1 {
		t.Fatalf("expected 1 hook call, got %d", hooks)
	}
}

func TestVault_ConcurrentAccess(t *testing.T) {
	v, _ := secrets.NewVault(staticLoader(map[string]string{secrets.KeySessionKey: "k"}))

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = v.Get(secrets.KeySessionKey)
		}()
		go func() {
			defer wg.Done()
			_ = v.Reload()
		}()
	}
	wg.Wait()
}

func TestVault_Redacted(t *testing.T) {
	v, _ := secrets.NewVault(staticLoader(map[string]string{
		secrets.KeyOIDCClientSecret: "s3cr3t-value",
		"SHORT":                     "ab",
	}))

	tests := []struct {
		key, want string
	}{
		{secrets.KeyOIDCClientSecret, "s3****"},
		{"SHORT", "****"},
		{"MISSING", ""},
	}
	for _, tt := range tests {
		if got := v.Redacted(tt.key); got != tt.want {
			t.Errorf("Redacted(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestEnvLoader(t *testing.T) {
	dir := t.TempDir()
	secretFile := filepath.Join(dir, "session_key")
	if err := os.WriteFile(secretFile, []byte("from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(secrets.KeyOIDCClientSecret, "from-env")
	t.Setenv(secrets.KeySessionKey+"_FILE", secretFile)

	vals, err := secrets.EnvLoader(secrets.KeyOIDCClientSecret, secrets.KeySessionKey, "STOREFRONT_MISSING")()
	if err != nil {
		t.Fatalf("EnvLoader: %v", err)
	}
	if vals[secrets.KeyOIDCClientSecret] != "from-env" {
		t.Errorf("env value = %q", vals[secrets.KeyOIDCClientSecret])
	}
	if vals[secrets.KeySessionKey] != "from-file" {
		t.Errorf("file value = %q, want trimmed contents", vals[secrets.KeySessionKey])
	}
	if _, ok := vals["STOREFRONT_MISSING"]; ok {
		t.Error("missing key must be omitted")
	}
}

func TestEnvLoaderUnreadableFile(t *testing.T) {
	t.Setenv(secrets.KeySessionKey+"_FILE", filepath.Join(t.TempDir(), "absent"))
	if _, err := secrets.EnvLoader(secrets.KeySessionKey)(); err == nil {
		t.Fatal("expected an error for an unreadable secret file")
	}
}
