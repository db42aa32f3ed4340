package store

import (
	"context"

	"beacon/internal/escalation"
	id "beacon/pkg/domain"
	"beacon/pkg/platform/sentinel"
)

// StaticPartnerDirectory serves the accredited crisis partner list from a
// fixed in-process snapshot. Partner onboarding happens out of band; the
// pipeline only ever reads.
type StaticPartnerDirectory struct {
	partners map[id.PartnerID]*escalation.CrisisPartner
}

func NewStaticPartnerDirectory(partners []escalation.CrisisPartner) *StaticPartnerDirectory {
	byID := make(map[id.PartnerID]*escalation.CrisisPartner, len(partners))
	for i := range partners {
		byID[partners[i].ID] = &partners[i]
	}
	return &StaticPartnerDirectory{partners: byID}
}

func (d *StaticPartnerDirectory) GetPartner(_ context.Context, partnerID id.PartnerID) (*escalation.CrisisPartner, error) {
	partner, ok := d.partners[partnerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *partner
	return &copied, nil
}
