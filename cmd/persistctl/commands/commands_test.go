package commands_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"persistentstore/cmd/persistctl/commands"
	"persistentstore/pkg/storage"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := commands.NewRoot(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSetGetDelete(t *testing.T) {
	for _, backend := range []string{"file", "bolt", "badger"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			flags := []string{"--backend", backend, "--dir", dir}

			if _, err := run(t, append([]string{"set", "prefs", `{"theme":"dark"}`}, flags...)...); err != nil {
				t.Fatalf("set: %v", err)
			}
			out, err := run(t, append([]string{"get", "prefs"}, flags...)...)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !strings.Contains(out, `"theme": "dark"`) {
				t.Fatalf("get output = %q", out)
			}
			if _, err := run(t, append([]string{"delete", "prefs"}, flags...)...); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := run(t, append([]string{"get", "prefs"}, flags...)...); err == nil {
				t.Fatal("get after delete succeeded")
			}
		})
	}
}

func TestSet_EncryptedAndYAML(t *testing.T) {
	dir := t.TempDir()
	key := strings.Repeat("0f", 32)
	flags := []string{"--dir", dir, "--key", key, "--serializer", "yaml"}

	if _, err := run(t, append([]string{"set", "n", "[1,2]"}, flags...)...); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := run(t, append([]string{"get", "n"}, flags...)...)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.Join(strings.Fields(out), "") != "[1,2]" {
		t.Fatalf("get output = %q", out)
	}
	if _, err := run(t, "get", "n", "--dir", dir); err == nil {
		t.Fatal("value readable without key")
	}
}

func TestSet_RejectsInvalidJSON(t *testing.T) {
	if _, err := run(t, "set", "k", "{nope", "--backend", "memory"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStats(t *testing.T) {
	out, err := run(t, "set", "k", "1", "--backend", "memory", "--stats")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	want := `persistentstore_storage_operations_total{op="set",storage="memory"} 1`
	if !strings.Contains(out, want) {
		t.Fatalf("stats output = %q, want line %q", out, want)
	}
}

func TestWatch_NeedsSelfUpdatingBackend(t *testing.T) {
	_, err := run(t, "watch", "k", "--backend", "memory")
	if err == nil || !strings.Contains(err.Error(), "external changes") {
		t.Fatalf("err = %v", err)
	}
}

// syncBuffer lets the test read output while a command is still writing it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitForLine(t *testing.T, out *syncBuffer, line string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, l := range strings.Split(out.String(), "\n") {
			if l == line {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no line %q in output %q", line, out.String())
}

func TestWatch_FileBackendReportsExternalChanges(t *testing.T) {
	dir := t.TempDir()
	other, err := storage.NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	other.SetValue("k", "1")

	var out, errOut syncBuffer
	root := commands.NewRoot(&out, &errOut)
	root.SetArgs([]string{"watch", "k", "--backend", "file", "--dir", dir})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	// The initial value is printed once the listener is in place.
	waitForLine(t, &out, "k = 1")

	other.SetValue("k", `{"theme":"dark"}`)
	waitForLine(t, &out, `k = {"theme":"dark"}`)

	other.DeleteValue("k")
	waitForLine(t, &out, "k deleted")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch: %v (stderr %q)", err, errOut.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestKeygen(t *testing.T) {
	out, err := run(t, "keygen", "--backend", "memory")
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	if !strings.HasPrefix(out, "key: ") || len(strings.Fields(out)[1]) != 64 {
		t.Fatalf("keygen output = %q", out)
	}

	salt := "00112233445566778899aabbccddeeff"
	a, err := run(t, "keygen", "--passphrase", "pw", "--salt", salt)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	b, _ := run(t, "keygen", "--passphrase", "pw", "--salt", salt)
	if a != b || !strings.Contains(a, "salt: "+salt) {
		t.Fatalf("derived output unstable: %q vs %q", a, b)
	}
}
