package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/domain"
)

// --- mocks ---

type mockPropertyRepo struct {
	properties map[string]domain.Property
}

func newMockPropertyRepo() *mockPropertyRepo {
	return &mockPropertyRepo{properties: map[string]domain.Property{}}
}

func (m *mockPropertyRepo) Create(ctx context.Context, p domain.Property) error {
	if _, ok := m.properties[p.Address]; ok {
		return domain.ErrDuplicateProperty
	}
	m.properties[p.Address] = p
	return nil
}

func (m *mockPropertyRepo) Get(ctx context.Context, address string) (domain.Property, error) {
	p, ok := m.properties[address]
	if !ok {
		return domain.Property{}, domain.NotFoundError{Resource: "property"}
	}
	return p, nil
}

func (m *mockPropertyRepo) clone() map[string]domain.Property {
	properties := make(map[string]domain.Property, len(m.properties))
	for address, p := range m.properties {
		properties[address] = p
	}
	return properties
}

type mockEscrowRepo struct {
	escrows map[string]domain.Escrow
}

func newMockEscrowRepo() *mockEscrowRepo {
	return &mockEscrowRepo{escrows: map[string]domain.Escrow{}}
}

func (m *mockEscrowRepo) Create(ctx context.Context, e domain.Escrow) error {
	if _, ok := m.escrows[e.Address]; ok {
		return errors.New("escrow address collision")
	}
	m.escrows[e.Address] = e
	return nil
}

func (m *mockEscrowRepo) Get(ctx context.Context, address string) (domain.Escrow, error) {
	e, ok := m.escrows[address]
	if !ok {
		return domain.Escrow{}, domain.NotFoundError{Resource: "escrow"}
	}
	return e, nil
}

func (m *mockEscrowRepo) Resolve(ctx context.Context, address string, buyer *string, state domain.EscrowState) error {
	e, ok := m.escrows[address]
	if !ok {
		return domain.NotFoundError{Resource: "escrow"}
	}
	if !e.IsActive() {
		return domain.ErrEscrowInactive
	}
	e.Buyer = buyer
	e.State = state
	m.escrows[address] = e
	return nil
}

func (m *mockEscrowRepo) clone() map[string]domain.Escrow {
	out := make(map[string]domain.Escrow, len(m.escrows))
	for k, v := range m.escrows {
		out[k] = v
	}
	return out
}

type mockProposalRepo struct {
	proposals map[string]domain.Proposal
	ballots   map[string]map[string]domain.Ballot
}

func newMockProposalRepo() *mockProposalRepo {
	return &mockProposalRepo{
		proposals: map[string]domain.Proposal{},
		ballots:   map[string]map[string]domain.Ballot{},
	}
}

func (m *mockProposalRepo) Create(ctx context.Context, p domain.Proposal) error {
	m.proposals[p.Address] = p
	return nil
}

func (m *mockProposalRepo) Get(ctx context.Context, address string) (domain.Proposal, error) {
	p, ok := m.proposals[address]
	if !ok {
		return domain.Proposal{}, domain.NotFoundError{Resource: "proposal"}
	}
	return p, nil
}

func (m *mockProposalRepo) CastBallot(ctx context.Context, b domain.Ballot) error {
	p, ok := m.proposals[b.ProposalAddress]
	if !ok {
		return domain.NotFoundError{Resource: "proposal"}
	}
	if m.ballots[b.ProposalAddress] == nil {
		m.ballots[b.ProposalAddress] = map[string]domain.Ballot{}
	}
	if prev, voted := m.ballots[b.ProposalAddress][b.Voter]; voted {
		if prev.VoteFor {
			p.VotesFor -= prev.Weight
		} else {
			p.VotesAgainst -= prev.Weight
		}
	}
	if b.VoteFor {
		p.VotesFor += b.Weight
	} else {
		p.VotesAgainst += b.Weight
	}
	m.ballots[b.ProposalAddress][b.Voter] = b
	m.proposals[b.ProposalAddress] = p
	return nil
}

type mockLedger struct {
	authorities map[string]string
	balances    map[string]map[string]uint64
	supply      map[string]uint64
	transferErr error
	mintErr     error
	registerErr error
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		authorities: map[string]string{},
		balances:    map[string]map[string]uint64{},
		supply:      map[string]uint64{},
	}
}

func (m *mockLedger) RegisterMint(ctx context.Context, mintID, authority string) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	if _, ok := m.authorities[mintID]; ok {
		return domain.ErrDuplicateProperty
	}
	m.authorities[mintID] = authority
	return nil
}

func (m *mockLedger) Mint(ctx context.Context, mintID, to string, amount uint64, auth domain.Authority) error {
	if m.mintErr != nil {
		return m.mintErr
	}
	if m.authorities[mintID] != auth.Record {
		return domain.LedgerError{Op: "mint", Err: errors.New("authority mismatch")}
	}
	m.credit(mintID, to, amount)
	m.supply[mintID] += amount
	return nil
}

func (m *mockLedger) Transfer(ctx context.Context, mintID, from, to string, amount uint64, auth domain.Authority) error {
	if m.transferErr != nil {
		return m.transferErr
	}
	if auth.Record != from && !domain.IsVaultOf(from, auth.Record) {
		return domain.LedgerError{Op: "transfer", Err: errors.New("authority mismatch")}
	}
	if m.balances[mintID][from] < amount {
		return domain.LedgerError{Op: "transfer", Err: errors.New("insufficient balance")}
	}
	m.balances[mintID][from] -= amount
	if m.balances[mintID][from] == 0 {
		delete(m.balances[mintID], from)
	}
	m.credit(mintID, to, amount)
	return nil
}

func (m *mockLedger) credit(mintID, owner string, amount uint64) {
	if m.balances[mintID] == nil {
		m.balances[mintID] = map[string]uint64{}
	}
	m.balances[mintID][owner] += amount
}

func (m *mockLedger) BalanceOf(ctx context.Context, mintID, owner string) (uint64, error) {
	return m.balances[mintID][owner], nil
}

func (m *mockLedger) TotalSupply(ctx context.Context, mintID string) (uint64, error) {
	return m.supply[mintID], nil
}

func (m *mockLedger) Holders(ctx context.Context, mintID string) ([]string, error) {
	var holders []string
	for owner := range m.balances[mintID] {
		holders = append(holders, owner)
	}
	sort.Strings(holders)
	return holders, nil
}

func (m *mockLedger) clone() (map[string]map[string]uint64, map[string]uint64, map[string]string) {
	balances := make(map[string]map[string]uint64, len(m.balances))
	for mint, owners := range m.balances {
		balances[mint] = make(map[string]uint64, len(owners))
		for owner, amount := range owners {
			balances[mint][owner] = amount
		}
	}
	supply := make(map[string]uint64, len(m.supply))
	for mint, s := range m.supply {
		supply[mint] = s
	}
	authorities := make(map[string]string, len(m.authorities))
	for mint, authority := range m.authorities {
		authorities[mint] = authority
	}
	return balances, supply, authorities
}

type mockRail struct {
	accounts    map[string]uint64
	transferErr error
}

func newMockRail() *mockRail {
	return &mockRail{accounts: map[string]uint64{}}
}

func (m *mockRail) TransferValue(ctx context.Context, from, to string, amount uint64) error {
	if m.transferErr != nil {
		return m.transferErr
	}
	if m.accounts[from] < amount {
		return domain.LedgerError{Op: "value transfer", Err: errors.New("insufficient funds")}
	}
	m.accounts[from] -= amount
	m.accounts[to] += amount
	return nil
}

func (m *mockRail) clone() map[string]uint64 {
	out := make(map[string]uint64, len(m.accounts))
	for k, v := range m.accounts {
		out[k] = v
	}
	return out
}

// mockAtomic emulates transactional rollback over the mock stores: on error
// every participating store is restored to its pre-transaction snapshot.
type mockAtomic struct {
	properties *mockPropertyRepo
	escrows    *mockEscrowRepo
	ledger     *mockLedger
	rail       *mockRail
}

func (a *mockAtomic) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var properties map[string]domain.Property
	var escrows map[string]domain.Escrow
	var balances map[string]map[string]uint64
	var supply map[string]uint64
	var authorities map[string]string
	var accounts map[string]uint64
	if a.properties != nil {
		properties = a.properties.clone()
	}
	if a.escrows != nil {
		escrows = a.escrows.clone()
	}
	if a.ledger != nil {
		balances, supply, authorities = a.ledger.clone()
	}
	if a.rail != nil {
		accounts = a.rail.clone()
	}

	err := fn(ctx)
	if err != nil {
		if a.properties != nil {
			a.properties.properties = properties
		}
		if a.escrows != nil {
			a.escrows.escrows = escrows
		}
		if a.ledger != nil {
			a.ledger.balances = balances
			a.ledger.supply = supply
			a.ledger.authorities = authorities
		}
		if a.rail != nil {
			a.rail.accounts = accounts
		}
	}
	return err
}

type mockSignal struct {
	events []deedledger.Event
	err    error
}

func (m *mockSignal) Publish(ctx context.Context, event deedledger.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
