package supabase

import (
	"encoding/json"
	"testing"

	"github.com/matrihub/matrihub-go/internal/domain"
)

func TestProfileRow_FoldsLegacyPremiumSignals(t *testing.T) {
	cases := []struct {
		name string
		row  string
		want domain.MembershipState
	}{
		{
			"premium flag only",
			`{"profile_id":1,"is_premium":true}`,
			domain.MembershipPremium,
		},
		{
			"membership tier only",
			`{"profile_id":2,"is_premium":false,"membership":"premium"}`,
			domain.MembershipPremium,
		},
		{
			"tier casing from old writers",
			`{"profile_id":3,"membership":"Premium"}`,
			domain.MembershipPremium,
		},
		{
			"requested flag",
			`{"profile_id":4,"premium_requested":true}`,
			domain.MembershipRequested,
		},
		{
			"premium flag wins over requested",
			`{"profile_id":5,"is_premium":true,"premium_requested":true}`,
			domain.MembershipPremium,
		},
		{
			"no signal",
			`{"profile_id":6,"membership":"normal"}`,
			domain.MembershipNormal,
		},
		{
			"null tier column",
			`{"profile_id":7,"is_premium":false,"membership":null}`,
			domain.MembershipNormal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var row profileRow
			if err := json.Unmarshal([]byte(tc.row), &row); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := row.toDomain().Membership; got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestMembershipColumns_WritesEverySignal(t *testing.T) {
	cols := membershipColumns(domain.MembershipPremium)
	if cols["is_premium"] != true || cols["premium_requested"] != false || cols["membership"] != "premium" {
		t.Errorf("unexpected premium columns %v", cols)
	}

	cols = membershipColumns(domain.MembershipRequested)
	if cols["is_premium"] != false || cols["premium_requested"] != true || cols["membership"] != "requested" {
		t.Errorf("unexpected requested columns %v", cols)
	}

	cols = membershipColumns(domain.MembershipNormal)
	if cols["is_premium"] != false || cols["premium_requested"] != false || cols["membership"] != "normal" {
		t.Errorf("unexpected normal columns %v", cols)
	}
}
