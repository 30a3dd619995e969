// Copyright 2021 The go-polytx Authors
// This file is part of the go-polytx library.
//
// The go-polytx library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-polytx library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-polytx library. If not, see <http://www.gnu.org/licenses/>.

// Package onchain answers questions about Polymesh identities from chain
// state: whether an account belongs to an identity with a valid CDD claim,
// and which authorizations wait for it.
package onchain

import (
	"context"
	"fmt"

	"github.com/probeum/go-polytx/client"
	"github.com/probeum/go-polytx/common"
	"github.com/probeum/go-polytx/crypto"
	"github.com/probeum/go-polytx/log"
	"github.com/probeum/go-polytx/metadata"
)

// JoinIdentity is the authorization type that lets an account join an
// identity as a secondary key.
const JoinIdentity = "JoinIdentity"

// IdentityStatus is the identity an account belongs to, if any, and whether
// that identity holds a valid CDD claim.
type IdentityStatus struct {
	DID         *common.Hash
	HasCddClaim bool
}

func (s *IdentityStatus) String() string {
	if s.DID == nil {
		return "no identity"
	}
	if s.HasCddClaim {
		return fmt.Sprintf("identity %s, CDD valid", s.DID.Hex())
	}
	return fmt.Sprintf("identity %s, CDD invalid", s.DID.Hex())
}

// Querier runs identity queries against a node.
type Querier struct {
	client *client.Client
}

// New creates a querier.
func New(c *client.Client) *Querier {
	return &Querier{client: c}
}

// IdentityOf returns the identity id an account is linked to, or nil.
func (q *Querier) IdentityOf(ctx context.Context, address string) (*common.Hash, error) {
	account, _, err := crypto.SS58Decode(address)
	if err != nil {
		return nil, err
	}
	blob, err := q.client.Metadata(ctx, nil)
	if err != nil {
		return nil, err
	}
	meta, err := metadata.Decode(blob)
	if err != nil {
		return nil, err
	}
	mod, item, err := meta.FindStorage("Identity", "KeyToIdentityIds")
	if err != nil {
		return nil, err
	}
	key, err := mod.Storage.StorageKey(item, account)
	if err != nil {
		return nil, err
	}
	value, err := q.client.StorageAt(ctx, key, nil)
	if err != nil {
		return nil, err
	}
	if len(value) == 0 {
		value = item.Fallback
	}
	if len(value) != common.HashLength {
		return nil, fmt.Errorf("unexpected identity id length %d", len(value))
	}
	did := common.BytesToHash(value)
	if did == (common.Hash{}) {
		return nil, nil
	}
	return &did, nil
}

// GetIdentityStatus reports the identity of an account and its CDD status.
func (q *Querier) GetIdentityStatus(ctx context.Context, address string) (*IdentityStatus, error) {
	did, err := q.IdentityOf(ctx, address)
	if err != nil {
		return nil, err
	}
	status := &IdentityStatus{DID: did}
	if did == nil {
		log.Debug("Account has no identity", "address", address)
		return status, nil
	}
	cdd, err := q.client.IsIdentityHasValidCdd(ctx, *did, nil)
	if err != nil {
		return nil, err
	}
	status.HasCddClaim = cdd.Valid()
	log.Info("Identity status", "address", address, "did", did.Hex(), "cdd", status.HasCddClaim)
	return status, nil
}

// GetPendingAuthorizations returns the ids of the unexpired JoinIdentity
// authorizations addressed to an account. They are accepted with
// identity.joinIdentityAsKey.
func (q *Querier) GetPendingAuthorizations(ctx context.Context, address string) ([]uint64, error) {
	auths, err := q.client.FilteredAuthorizations(ctx, map[string]string{"Account": address}, false, JoinIdentity)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, len(auths))
	for i, a := range auths {
		ids[i] = a.AuthID
	}
	log.Info("Pending authorizations", "address", address, "ids", ids)
	return ids, nil
}
