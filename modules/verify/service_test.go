package verify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/legendx/enhancebot/common/model"
	"github.com/legendx/enhancebot/modules/verify"
)

type mockFetcher struct {
	status string
	err    error
}

func (m *mockFetcher) GetMemberStatus(ctx context.Context, channel string, userID int64) (string, error) {
	return m.status, m.err
}

func TestService_StatusMapping(t *testing.T) {
	cases := []struct {
		status string
		want   model.MembershipState
	}{
		{"administrator", model.MembershipVerified},
		{"member", model.MembershipVerified},
		{"creator", model.MembershipVerified},
		{"owner", model.MembershipVerified},
		{"Administrator", model.MembershipVerified}, // case-insensitive
		{"left", model.MembershipNotMember},
		{"kicked", model.MembershipNotMember},
		{"restricted", model.MembershipNotMember},
		{"", model.MembershipNotMember},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			svc := verify.NewService(&mockFetcher{status: tc.status}, zerolog.Nop())
			got := svc.CheckMembership(context.Background(), "@gate", 42)
			if got.State != tc.want {
				t.Errorf("status %q: got %v, want %v", tc.status, got.State, tc.want)
			}
		})
	}
}

func TestService_CheckFailedOnError(t *testing.T) {
	svc := verify.NewService(&mockFetcher{err: errors.New("network unreachable")}, zerolog.Nop())

	got := svc.CheckMembership(context.Background(), "@gate", 42)
	if got.State != model.MembershipCheckFailed {
		t.Fatalf("got %v, want MembershipCheckFailed", got.State)
	}
	if got.Reason == "" {
		t.Error("expected failure reason to be recorded")
	}
	if got.Verified() {
		t.Error("a failed check must never count as verified")
	}
}
