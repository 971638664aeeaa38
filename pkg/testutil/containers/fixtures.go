//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"idbcrm/pkg/domain"
)

// SeedBranch inserts a branch row directly and returns its id.
func (p *PostgresContainer) SeedBranch(t *testing.T, code string) domain.BranchID {
	t.Helper()
	id := domain.New[domain.BranchID]()
	now := time.Now()
	_, err := p.DB.ExecContext(context.Background(), `
		INSERT INTO branches (id, name, code, type, created_at, updated_at)
		VALUES ($1, $2, $3, 'Branch', $4, $4)
	`, id.String(), "Branch "+code, code, now)
	if err != nil {
		t.Fatalf("seed branch: %v", err)
	}
	return id
}

// SeedPartner inserts a partner row directly and returns its id.
func (p *PostgresContainer) SeedPartner(t *testing.T, email, role string, branch *domain.BranchID) domain.PartnerID {
	t.Helper()
	id := domain.New[domain.PartnerID]()
	now := time.Now()
	var branchArg any
	if branch != nil {
		branchArg = branch.String()
	}
	_, err := p.DB.ExecContext(context.Background(), `
		INSERT INTO partners (id, name, email, password_hash, role, branch_id, created_at, updated_at)
		VALUES ($1, $2, $3, 'x', $4, $5, $6, $6)
	`, id.String(), email, email, role, branchArg, now)
	if err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	return id
}

// SeedLead inserts a lead row directly and returns its id.
func (p *PostgresContainer) SeedLead(t *testing.T, name string, branch *domain.BranchID, createdBy domain.PartnerID) domain.LeadID {
	t.Helper()
	id := domain.New[domain.LeadID]()
	now := time.Now()
	var branchArg any
	if branch != nil {
		branchArg = branch.String()
	}
	_, err := p.DB.ExecContext(context.Background(), `
		INSERT INTO leads (id, name, branch_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, id.String(), name, branchArg, createdBy.String(), now)
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return id
}
