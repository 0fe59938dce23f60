package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/deedledger/deedledger/internal/domain"
	"github.com/deedledger/deedledger/internal/infra/database"
	"github.com/deedledger/deedledger/internal/infra/database/models"
)

type ProposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

func (r *ProposalRepository) Create(ctx context.Context, proposal domain.Proposal) error {
	record := models.Proposal{
		Address:         proposal.Address,
		Proposer:        proposal.Proposer,
		PropertyAddress: proposal.PropertyAddress,
		Text:            proposal.Text,
		VotesFor:        proposal.VotesFor,
		VotesAgainst:    proposal.VotesAgainst,
		EndTime:         proposal.EndTime,
	}
	err := database.FromContext(ctx, r.db).Create(&record).Error
	return errors.Wrap(err, "failed to create proposal")
}

func (r *ProposalRepository) Get(ctx context.Context, address string) (domain.Proposal, error) {
	var record models.Proposal
	err := database.FromContext(ctx, r.db).
		Where("address = ?", address).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Proposal{}, domain.NotFoundError{Resource: "proposal"}
	}
	if err != nil {
		return domain.Proposal{}, errors.Wrap(err, "failed to read proposal")
	}
	return domain.Proposal{
		Address:         record.Address,
		Proposer:        record.Proposer,
		PropertyAddress: record.PropertyAddress,
		Text:            record.Text,
		VotesFor:        record.VotesFor,
		VotesAgainst:    record.VotesAgainst,
		EndTime:         record.EndTime,
	}, nil
}

// CastBallot upserts the voter's ballot and moves the tallies by the delta
// against any previous ballot, all under a lock on the proposal row. Tallies
// therefore always equal the sum of current ballots.
func (r *ProposalRepository) CastBallot(ctx context.Context, ballot domain.Ballot) error {
	run := func(tx *gorm.DB) error {
		var proposal models.Proposal
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("address = ?", ballot.ProposalAddress).
			Take(&proposal).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NotFoundError{Resource: "proposal"}
		}
		if err != nil {
			return errors.Wrap(err, "failed to lock proposal")
		}

		var previous models.Ballot
		err = tx.Where("proposal_address = ? AND voter = ?", ballot.ProposalAddress, ballot.Voter).
			Take(&previous).Error
		if err == nil {
			if previous.VoteFor {
				proposal.VotesFor -= previous.Weight
			} else {
				proposal.VotesAgainst -= previous.Weight
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, "failed to read previous ballot")
		}

		if ballot.VoteFor {
			proposal.VotesFor += ballot.Weight
		} else {
			proposal.VotesAgainst += ballot.Weight
		}

		record := models.Ballot{
			ProposalAddress: ballot.ProposalAddress,
			Voter:           ballot.Voter,
			VoteFor:         ballot.VoteFor,
			Weight:          ballot.Weight,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "proposal_address"}, {Name: "voter"}},
			DoUpdates: clause.Assignments(map[string]any{"vote_for": ballot.VoteFor, "weight": ballot.Weight}),
		}).Create(&record).Error
		if err != nil {
			return errors.Wrap(err, "failed to store ballot")
		}

		err = tx.Model(&models.Proposal{}).
			Where("address = ?", ballot.ProposalAddress).
			Updates(map[string]any{"votes_for": proposal.VotesFor, "votes_against": proposal.VotesAgainst}).Error
		return errors.Wrap(err, "failed to update tallies")
	}

	tx := database.FromContext(ctx, r.db)
	return tx.Transaction(run)
}
