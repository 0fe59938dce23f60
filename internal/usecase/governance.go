package usecase

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/domain"
)

// maxHoldersPerCall bounds the rent-distribution loop. Larger holder sets
// must be chunked across multiple calls.
const maxHoldersPerCall = 256

// ProposalRepository defines persistence for proposals and ballots.
// CastBallot replaces any previous ballot by the same voter and adjusts the
// proposal tallies by the delta, in one transaction.
type ProposalRepository interface {
	Create(ctx context.Context, proposal domain.Proposal) error
	Get(ctx context.Context, address string) (domain.Proposal, error)
	CastBallot(ctx context.Context, ballot domain.Ballot) error
}

type GovernanceUsecase struct {
	proposals  ProposalRepository
	properties PropertyRepository
	ledger     Ledger
	atomic     Atomic
	signal     Signal
	clock      Clock

	// sequence disambiguates proposals created within one clock tick.
	sequence atomic.Uint64
}

func NewGovernanceUsecase(
	proposals ProposalRepository,
	properties PropertyRepository,
	ledger Ledger,
	atomic Atomic,
	signal Signal,
	clock Clock,
) *GovernanceUsecase {
	return &GovernanceUsecase{
		proposals:  proposals,
		properties: properties,
		ledger:     ledger,
		atomic:     atomic,
		signal:     signal,
		clock:      clock,
	}
}

// CreateProposal initializes a proposal with zero tallies. EndTime is taken
// as supplied; a deadline already in the past just yields a proposal nobody
// can vote on.
func (uc *GovernanceUsecase) CreateProposal(ctx context.Context, proposer, propertyAddress, text string, endTime time.Time) (domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Governance.Usecase.CreateProposal")
	defer span.End()

	property, err := uc.properties.Get(ctx, propertyAddress)
	if err != nil {
		span.RecordError(err)
		return domain.Proposal{}, err
	}

	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], uc.sequence.Add(1))
	proposal := domain.Proposal{
		Address: deedledger.DeriveAddressN(
			uint64(uc.clock.Now().UnixNano()),
			[]byte("proposal"), []byte(property.Address), []byte(proposer), seq[:],
		),
		Proposer:        proposer,
		PropertyAddress: property.Address,
		Text:            text,
		EndTime:         endTime,
	}

	if err := uc.proposals.Create(ctx, proposal); err != nil {
		span.RecordError(errors.Wrap(err, "proposal creation failed"))
		return domain.Proposal{}, err
	}

	return proposal, nil
}

// Vote tallies the voter's current share balance for or against. The weight
// is read live from the ledger at vote time; re-voting replaces the previous
// ballot rather than accumulating, so a voter's contribution to the tallies
// is always their single most recent cast.
func (uc *GovernanceUsecase) Vote(ctx context.Context, proposalAddress, voter string, voteFor bool) error {
	ctx, span := tracer.Start(ctx, "Governance.Usecase.Vote")
	defer span.End()

	proposal, err := uc.proposals.Get(ctx, proposalAddress)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if uc.clock.Now().After(proposal.EndTime) {
		return domain.ErrProposalVotingEnded
	}

	property, err := uc.properties.Get(ctx, proposal.PropertyAddress)
	if err != nil {
		span.RecordError(err)
		return err
	}

	weight, err := uc.ledger.BalanceOf(ctx, property.MintID, voter)
	if err != nil {
		span.RecordError(errors.Wrap(err, "weight lookup failed"))
		return err
	}

	err = uc.proposals.CastBallot(ctx, domain.Ballot{
		ProposalAddress: proposal.Address,
		Voter:           voter,
		VoteFor:         voteFor,
		Weight:          weight,
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "ballot cast failed"))
		return err
	}
	return nil
}

func (uc *GovernanceUsecase) GetProposal(ctx context.Context, address string) (domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Governance.Usecase.GetProposal")
	defer span.End()

	proposal, err := uc.proposals.Get(ctx, address)
	if err != nil {
		span.RecordError(err)
		return domain.Proposal{}, err
	}
	return proposal, nil
}

// DistributeRent pays rentPerUnit = totalRent / supply (floor) from the
// property's rent vault to every holder, all transfers in one transaction.
// The remainder of the division stays in the vault; that loss is the
// documented rounding policy, not a bug. An empty holder list means
// "enumerate current holders from the ledger"; an explicit list must be
// duplicate-free and within the per-call bound.
func (uc *GovernanceUsecase) DistributeRent(ctx context.Context, propertyAddress string, totalRent uint64, holders []string) error {
	ctx, span := tracer.Start(ctx, "Governance.Usecase.DistributeRent")
	defer span.End()

	property, err := uc.properties.Get(ctx, propertyAddress)
	if err != nil {
		span.RecordError(err)
		return err
	}

	supply, err := uc.ledger.TotalSupply(ctx, property.MintID)
	if err != nil {
		span.RecordError(errors.Wrap(err, "supply lookup failed"))
		return err
	}
	if supply == 0 {
		return domain.ErrDivisionByZero
	}

	if len(holders) == 0 {
		holders, err = uc.ledger.Holders(ctx, property.MintID)
		if err != nil {
			span.RecordError(errors.Wrap(err, "holder enumeration failed"))
			return err
		}
	} else {
		seen := make(map[string]struct{}, len(holders))
		for _, holder := range holders {
			if _, dup := seen[holder]; dup {
				return domain.ErrDuplicateHolder
			}
			seen[holder] = struct{}{}
		}
	}

	if len(holders) > maxHoldersPerCall {
		return domain.ErrHolderListTooLong
	}

	rentPerUnit := totalRent / supply
	vault := property.RentVaultOwner()

	err = uc.atomic.RunInTx(ctx, func(ctx context.Context) error {
		for _, holder := range holders {
			err := uc.ledger.Transfer(ctx, domain.RentCurrencyMintID, vault, holder, rentPerUnit, domain.RecordAuthority(property.Address))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(errors.Wrap(err, "rent distribution failed"))
		return err
	}

	uc.publish(ctx, deedledger.NewEvent(deedledger.EventRentDistributed, deedledger.RentDistributed{
		PropertyAddress: property.Address,
		TotalRent:       totalRent,
	}))

	return nil
}

func (uc *GovernanceUsecase) publish(ctx context.Context, event deedledger.Event) {
	if uc.signal == nil {
		return
	}
	if err := uc.signal.Publish(ctx, event); err != nil {
		slog.WarnContext(
			ctx, "failed to publish event",
			slog.String("type", event.Type),
			slog.String("error", err.Error()),
			slog.String("module", "governance"),
		)
	}
}
