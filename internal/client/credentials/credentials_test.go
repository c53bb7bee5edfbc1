package credentials

import (
	"errors"
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSaveLoadDelete(t *testing.T) {
	gokeyring.MockInit()

	want := Account{Server: "https://betterfly.example", UserID: "u1", Token: "t1"}
	if err := Save(want); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if !SignedIn() {
		t.Fatal("SignedIn() = false after Save")
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}

	if err := Delete(); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := Load(); err != ErrNotFound {
		t.Errorf("Load() after Delete error = %v, want %v", err, ErrNotFound)
	}
	if err := Delete(); err != ErrNotFound {
		t.Errorf("second Delete() error = %v, want %v", err, ErrNotFound)
	}
}

func TestSaveRequiresToken(t *testing.T) {
	gokeyring.MockInit()
	if err := Save(Account{Server: "https://x"}); err == nil {
		t.Error("Save without token should fail")
	}
	if SignedIn() {
		t.Error("SignedIn() = true after rejected Save")
	}
}

func TestLoadUnavailable(t *testing.T) {
	gokeyring.MockInitWithError(errors.New("no dbus"))
	_, err := Load()
	if !errors.Is(err, ErrKeyringUnavailable) {
		t.Errorf("Load() error = %v, want %v", err, ErrKeyringUnavailable)
	}
}
