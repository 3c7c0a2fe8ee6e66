package services

import "testing"

func TestSplitPayout(t *testing.T) {
	cases := []struct {
		amount    int64
		creator   int64
		community int64
		platform  int64
	}{
		{10000, 8900, 1000, 100},
		{1000, 890, 100, 10},
		{999, 889, 99, 11},
		{1, 0, 0, 1},
		{0, 0, 0, 0},
		{101, 89, 10, 2},
	}
	for _, tc := range cases {
		split, err := SplitPayout(tc.amount)
		if err != nil {
			t.Fatalf("SplitPayout(%d): %v", tc.amount, err)
		}
		if split.CreatorShareCents != tc.creator ||
			split.CommunityShareCents != tc.community ||
			split.PlatformShareCents != tc.platform {
			t.Errorf("SplitPayout(%d) = %d/%d/%d, want %d/%d/%d",
				tc.amount,
				split.CreatorShareCents, split.CommunityShareCents, split.PlatformShareCents,
				tc.creator, tc.community, tc.platform)
		}
		sum := split.CreatorShareCents + split.CommunityShareCents + split.PlatformShareCents
		if sum != tc.amount {
			t.Errorf("SplitPayout(%d): shares sum to %d", tc.amount, sum)
		}
	}
}

func TestSplitPayoutRejectsNegative(t *testing.T) {
	if _, err := SplitPayout(-1); err == nil {
		t.Fatalf("expected negative amount to be rejected")
	}
}
