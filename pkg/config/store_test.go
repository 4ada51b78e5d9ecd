package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/StealthStack/pkg/crypto"
	"example.com/StealthStack/pkg/models"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.LoadOrGenerateKey(filepath.Join(t.TempDir(), "secret.key"))
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestStoreLoadMissingFileReturnsEmpty(t *testing.T) {
	store := NewDefaultStore(filepath.Join(t.TempDir(), "inventory.yaml"), testKey(t))
	cfg, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Nodes.Count() != 0 {
		t.Errorf("expected empty configuration, got %d nodes", cfg.Nodes.Count())
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	key := testKey(t)
	store := NewDefaultStore(path, key)

	cfg := NewConfiguration()
	provider := NewProvider(cfg)
	provider.AddHost("host-10.0.0.1:22", models.Host{Address: "10.0.0.1", Port: 22})
	provider.AddIdentity("id-root@10.0.0.1", models.Identity{
		User:     "root",
		Password: "s3cret",
		AuthType: "password",
	})
	provider.AddNode("root@10.0.0.1:22", models.Node{
		HostRef:     "host-10.0.0.1:22",
		IdentityRef: "id-root@10.0.0.1",
		Tags:        []string{models.RoleWebserver},
		SudoMode:    "sudo",
		SudoPwd:     "sudopass",
		Vars:        map[string]string{"domain": "a.example.com"},
	})

	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}

	// 敏感字段在磁盘上必须是加密的
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "s3cret") || strings.Contains(string(raw), "sudopass") {
		t.Fatal("plaintext secret leaked to disk")
	}
	if !strings.Contains(string(raw), crypto.Prefix) {
		t.Fatal("expected encrypted fields on disk")
	}

	loaded, err := NewDefaultStore(path, key).Load()
	if err != nil {
		t.Fatal(err)
	}
	lp := NewProvider(loaded)

	id, ok := lp.GetIdentity("root@10.0.0.1:22")
	if !ok {
		t.Fatal("identity not resolved via node ref")
	}
	if id.Password != "s3cret" {
		t.Errorf("password = %q, want decrypted value", id.Password)
	}

	node, ok := lp.GetNode("root@10.0.0.1:22")
	if !ok {
		t.Fatal("node missing after round trip")
	}
	if node.SudoPwd != "sudopass" {
		t.Errorf("sudo_pwd = %q, want decrypted value", node.SudoPwd)
	}
	if node.Vars["domain"] != "a.example.com" {
		t.Errorf("vars lost in round trip: %v", node.Vars)
	}

	fleet := lp.GetNodesByTag(models.RoleWebserver)
	if len(fleet) != 1 {
		t.Errorf("fleet size = %d, want 1", len(fleet))
	}
}

func TestSaveDoesNotMutateCaller(t *testing.T) {
	store := NewDefaultStore(filepath.Join(t.TempDir(), "inventory.yaml"), testKey(t))

	cfg := NewConfiguration()
	cfg.Identities.Set("id-a", models.Identity{User: "a", Password: "plain", AuthType: "password"})

	if err := store.Save(cfg); err != nil {
		t.Fatal(err)
	}
	id, _ := cfg.Identities.Get("id-a")
	if id.Password != "plain" {
		t.Errorf("Save mutated caller config: %q", id.Password)
	}
}
