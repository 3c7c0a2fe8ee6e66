package services

import (
	"fmt"

	"github.com/communityvault/backend/internal/platform/envutil"
)

// Default revenue split applied to every premium sale, in basis
// points. Overridable via CREATOR_SHARE_BPS / COMMUNITY_SHARE_BPS.
const (
	CreatorShareBps   = 8900
	CommunityShareBps = 1000
	PlatformShareBps  = 100
)

// PayoutSplit is one settled sale broken into integer-cent shares.
// The shares always sum to AmountCents.
type PayoutSplit struct {
	AmountCents         int64
	CreatorShareCents   int64
	CommunityShareCents int64
	PlatformShareCents  int64
}

// SplitPayout divides amountCents 89/10/1 between creator, community
// and platform. Creator and community shares round down; the platform
// absorbs the rounding remainder so no cent is lost or invented.
func SplitPayout(amountCents int64) (PayoutSplit, error) {
	if amountCents < 0 {
		return PayoutSplit{}, fmt.Errorf("negative amount: %d", amountCents)
	}

	creatorBps := int64(envutil.Int("CREATOR_SHARE_BPS", CreatorShareBps))
	communityBps := int64(envutil.Int("COMMUNITY_SHARE_BPS", CommunityShareBps))
	if creatorBps < 0 || communityBps < 0 || creatorBps+communityBps > 10000 {
		return PayoutSplit{}, fmt.Errorf("invalid share configuration: creator=%d community=%d", creatorBps, communityBps)
	}

	creator := amountCents * creatorBps / 10000
	community := amountCents * communityBps / 10000
	platform := amountCents - creator - community

	return PayoutSplit{
		AmountCents:         amountCents,
		CreatorShareCents:   creator,
		CommunityShareCents: community,
		PlatformShareCents:  platform,
	}, nil
}
