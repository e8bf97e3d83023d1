// Package memory implements the domain repositories in process memory with
// the same unique constraints as the database backends.
package memory

import (
	"sync"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
)

// Store holds accounts and payments. Account and payment repositories built
// from the same Store share its lock.
type Store struct {
	mu sync.RWMutex

	accounts     map[string]*entity.Account
	byIdentity   map[string]string
	byToken      map[string]string
	byCustodyRef map[string]string
	payments     map[string]*entity.Payment
}

func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]*entity.Account),
		byIdentity:   make(map[string]string),
		byToken:      make(map[string]string),
		byCustodyRef: make(map[string]string),
		payments:     make(map[string]*entity.Payment),
	}
}

func identityKey(network, identity string) string {
	return network + "\x00" + identity
}

func copyAccount(a *entity.Account) *entity.Account {
	cp := *a
	if a.CustodyReference != nil {
		v := *a.CustodyReference
		cp.CustodyReference = &v
	}
	if a.WebhookURL != nil {
		v := *a.WebhookURL
		cp.WebhookURL = &v
	}
	return &cp
}

func copyPayment(p *entity.Payment) *entity.Payment {
	cp := *p
	if p.Address != nil {
		v := *p.Address
		cp.Address = &v
	}
	if p.SettlementProof != nil {
		v := *p.SettlementProof
		cp.SettlementProof = &v
	}
	if p.CompletedAt != nil {
		v := *p.CompletedAt
		cp.CompletedAt = &v
	}
	return &cp
}
