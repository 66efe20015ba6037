// Package audit implements the scoped disclosure layer of the payroll node:
// auditor view keys with bounded lifetimes and closed scopes, and report
// generation over accepted payment records. Nothing in this package ever
// touches blinding factors or plaintext salaries.
package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/veilpay/payroll-node/log"
	"github.com/veilpay/payroll-node/storage"
)

// ErrExpiredViewKey is returned when a report is requested with a revoked or
// expired view key.
var ErrExpiredViewKey = errors.New("view key expired or revoked")

// ViewKey is an auditor's disclosure grant: who may see what, for which
// company, and until when.
type ViewKey struct {
	ID        uuid.UUID
	Company   common.Address
	Grantor   string
	Auditor   string
	Scope     Scope
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
}

// Valid reports whether the key grants access at the given instant. A key is
// invalid once revoked or strictly after its expiry.
func (vk *ViewKey) Valid(now time.Time) bool {
	return !vk.Revoked && !now.After(vk.ExpiresAt)
}

// viewKeyEnvelope is the stored representation. The scope is flattened into a
// discriminator plus payload so the closed variant set survives encoding.
type viewKeyEnvelope struct {
	ID        []byte         `cbor:"1,keyasint"`
	Company   common.Address `cbor:"2,keyasint"`
	Grantor   string         `cbor:"3,keyasint"`
	Auditor   string         `cbor:"4,keyasint"`
	ScopeKind ScopeKind      `cbor:"5,keyasint"`
	ScopeData []byte         `cbor:"6,keyasint"`
	CreatedAt int64          `cbor:"7,keyasint"`
	ExpiresAt int64          `cbor:"8,keyasint"`
	Revoked   bool           `cbor:"9,keyasint"`
}

func encodeViewKey(vk *ViewKey) ([]byte, error) {
	kind, scopeData, err := encodeScope(vk.Scope)
	if err != nil {
		return nil, err
	}
	env := &viewKeyEnvelope{
		ID:        vk.ID[:],
		Company:   vk.Company,
		Grantor:   vk.Grantor,
		Auditor:   vk.Auditor,
		ScopeKind: kind,
		ScopeData: scopeData,
		CreatedAt: vk.CreatedAt.Unix(),
		ExpiresAt: vk.ExpiresAt.Unix(),
		Revoked:   vk.Revoked,
	}
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode view key: %w", err)
	}
	return em.Marshal(env)
}

func decodeViewKey(data []byte) (*ViewKey, error) {
	env := &viewKeyEnvelope{}
	if err := cbor.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("decode view key: %w", err)
	}
	id, err := uuid.FromBytes(env.ID)
	if err != nil {
		return nil, fmt.Errorf("decode view key id: %w", err)
	}
	scope, err := decodeScope(env.ScopeKind, env.ScopeData)
	if err != nil {
		return nil, err
	}
	return &ViewKey{
		ID:        id,
		Company:   env.Company,
		Grantor:   env.Grantor,
		Auditor:   env.Auditor,
		Scope:     scope,
		CreatedAt: time.Unix(env.CreatedAt, 0),
		ExpiresAt: time.Unix(env.ExpiresAt, 0),
		Revoked:   env.Revoked,
	}, nil
}

// ViewKeyManager issues, validates and revokes auditor view keys, persisting
// them through the storage layer.
type ViewKeyManager struct {
	stg *storage.Storage
}

// NewViewKeyManager creates a manager on top of the given storage.
func NewViewKeyManager(stg *storage.Storage) *ViewKeyManager {
	return &ViewKeyManager{stg: stg}
}

// Issue creates and persists a new view key. durationDays must be positive
// and the scope must be internally consistent, otherwise ErrInvalidScope is
// returned.
func (m *ViewKeyManager) Issue(company common.Address, grantor, auditor string,
	scope Scope, durationDays int,
) (*ViewKey, error) {
	if durationDays <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d days", ErrInvalidScope, durationDays)
	}
	if scope == nil {
		return nil, fmt.Errorf("%w: nil scope", ErrInvalidScope)
	}
	if err := scope.validate(); err != nil {
		return nil, err
	}

	// second resolution matches the stored representation
	now := time.Now().Truncate(time.Second)
	vk := &ViewKey{
		ID:        uuid.New(),
		Company:   company,
		Grantor:   grantor,
		Auditor:   auditor,
		Scope:     scope,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(durationDays) * 24 * time.Hour),
	}
	data, err := encodeViewKey(vk)
	if err != nil {
		return nil, err
	}
	if err := m.stg.SetViewKey(vk.ID[:], data); err != nil {
		return nil, fmt.Errorf("persist view key: %w", err)
	}
	log.Infow("issued view key",
		"id", vk.ID.String(),
		"company", company.Hex(),
		"auditor", auditor,
		"expires", vk.ExpiresAt)
	return vk, nil
}

// Get returns the stored view key for an identifier, or storage.ErrNotFound.
func (m *ViewKeyManager) Get(id uuid.UUID) (*ViewKey, error) {
	data, err := m.stg.ViewKey(id[:])
	if err != nil {
		return nil, err
	}
	return decodeViewKey(data)
}

// IsValid reports whether the stored key with the given identifier grants
// access at the given instant. Unknown keys are invalid.
func (m *ViewKeyManager) IsValid(id uuid.UUID, now time.Time) bool {
	vk, err := m.Get(id)
	if err != nil {
		return false
	}
	return vk.Valid(now)
}

// Revoke invalidates a view key immediately. Revoking an already revoked or
// nonexistent key is a no-op success.
func (m *ViewKeyManager) Revoke(id uuid.UUID) error {
	vk, err := m.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if vk.Revoked {
		return nil
	}
	vk.Revoked = true
	data, err := encodeViewKey(vk)
	if err != nil {
		return err
	}
	if err := m.stg.SetViewKey(id[:], data); err != nil {
		return fmt.Errorf("persist revocation: %w", err)
	}
	log.Infow("revoked view key", "id", id.String())
	return nil
}
