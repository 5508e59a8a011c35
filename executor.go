package bankxmov

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var errOverdraw = errors.New("balance would go negative")

// Executor applies an accepted movement: balance deltas, card counters and the movement
// record, all through the caller's transaction.
type Executor struct {
	limits *CardLimits
	node   *snowflake.Node
}

func NewExecutor(limits *CardLimits, node *snowflake.Node) *Executor {
	return &Executor{
		limits: limits,
		node:   node,
	}
}

// Execute expects req to have passed Validate against snap, inside the same transaction.
func (e *Executor) Execute(ctx context.Context, tx Tx, req CreateMovementReq, snap Snapshot, now time.Time) (*Movement, error) {
	mt, ok := ParseMovementType(req.Type)
	if !ok {
		return nil, badRequest("type", "unrecognized movement type")
	}
	kind := movementKinds[mt]

	mov := &Movement{
		ID:            e.node.Generate(),
		Type:          mt,
		ReferenceIBAN: req.ReferenceIBAN,
		Amount:        req.Amount,
		CreatedAt:     now,
	}
	if kind.effect.destination != 0 {
		mov.DestinationIBAN = req.DestinationIBAN
	}
	if kind.effect.counters {
		mov.CardNumber = req.CardNumber
	}

	changed, err := applyEffect(kind.effect, mov, snap, now)
	if err != nil {
		if errors.Is(err, errOverdraw) {
			return nil, badRequest("amount", "insufficient funds")
		}
		return nil, err
	}
	for _, acct := range changed {
		if err = tx.SaveAccount(ctx, acct); err != nil {
			return nil, fmt.Errorf("save account %s: %w", acct.IBAN, err)
		}
	}

	if kind.effect.counters {
		if kind.ceiling {
			if err = e.limits.CheckAndReserve(snap.Card, mov.Amount, now); err != nil {
				return nil, err
			}
		} else {
			e.limits.Reserve(snap.Card, mov.Amount, now)
		}
		if err = tx.SaveCard(ctx, snap.Card); err != nil {
			return nil, fmt.Errorf("save card counters: %w", err)
		}
	}

	if err = tx.InsertMovement(ctx, mov); err != nil {
		return nil, fmt.Errorf("insert movement: %w", err)
	}
	return mov, nil
}

// applyEffect moves mov's amount on the snapshot accounts as eff dictates. Either every
// balance is updated or none is.
func applyEffect(eff effect, mov *Movement, snap Snapshot, now time.Time) ([]*Account, error) {
	legs := []struct {
		iban string
		acct *Account
		sign int
	}{
		{mov.ReferenceIBAN, snap.Reference, eff.reference},
		{mov.DestinationIBAN, snap.Destination, eff.destination},
	}

	changed := make([]*Account, 0, len(legs))
	next := make([]decimal.Decimal, 0, len(legs))
	for _, leg := range legs {
		if leg.sign == 0 {
			continue
		}
		if leg.acct == nil {
			return nil, ErrNotFound{Resource: "account", Key: leg.iban}
		}
		bal := leg.acct.Balance.Add(signed(mov.Amount, leg.sign))
		if bal.IsNegative() {
			return nil, errOverdraw
		}
		changed = append(changed, leg.acct)
		next = append(next, bal)
	}

	for i, acct := range changed {
		acct.Balance = next[i]
		acct.UpdatedAt = now
	}
	return changed, nil
}
