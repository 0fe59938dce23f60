package domain

import "time"

// Proposal is a time-boxed governance vote weighted by share-unit balance.
// EndTime is fixed at creation; there is no explicit close, a proposal past
// its deadline is simply terminal.
type Proposal struct {
	Address         string    `json:"address"`
	Proposer        string    `json:"proposer"`
	PropertyAddress string    `json:"propertyAddress"`
	Text            string    `json:"text"`
	VotesFor        uint64    `json:"votesFor"`
	VotesAgainst    uint64    `json:"votesAgainst"`
	EndTime         time.Time `json:"endTime"`
}

// Ballot records a voter's last cast choice and weight on one proposal.
// Re-voting replaces the ballot and the tallies are adjusted by the delta,
// so repeated votes with a changing balance never double-count.
type Ballot struct {
	ProposalAddress string `json:"proposalAddress"`
	Voter           string `json:"voter"`
	VoteFor         bool   `json:"voteFor"`
	Weight          uint64 `json:"weight"`
}
