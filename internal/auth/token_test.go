package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	m, err := NewManager("secret", "lirawatch", time.Hour, "")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	token, _, err := m.Issue(Identity{UserID: 42, Role: "USER"})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != 42 || id.Role != "USER" || m.IsAdmin(id) {
		t.Fatalf("identity = %+v", id)
	}
	if !m.IsAdmin(Identity{UserID: 1, Role: DefaultAdminRole}) {
		t.Fatal("ADMIN must be admin")
	}
}

func TestVerifyRejects(t *testing.T) {
	m, _ := NewManager("secret", "lirawatch", time.Hour, "")
	other, _ := NewManager("other", "lirawatch", time.Hour, "")
	foreign, _, _ := other.Issue(Identity{UserID: 1})

	expiredMgr, _ := NewManager("secret", "lirawatch", time.Hour, "")
	expiredMgr.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _, _ := expiredMgr.Issue(Identity{UserID: 1})

	badSubject, _, _ := m.Issue(Identity{UserID: 0})

	for name, token := range map[string]string{
		"garbage":     "not-a-token",
		"wrong key":   foreign,
		"expired":     expired,
		"bad subject": badSubject,
	} {
		if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: err = %v", name, err)
		}
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("", "", 0, ""); err == nil {
		t.Fatal("expected error without secret")
	}
}
