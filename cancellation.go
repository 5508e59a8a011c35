package bankxmov

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

const DefaultCancelWindow = 24 * time.Hour

// Canceller reverses executed movements within Window of their creation and removes them
// from history. Card spend counters are left as they are: a cancelled card purchase still
// counts against its period.
type Canceller struct {
	Window time.Duration
}

func NewCanceller(window time.Duration) *Canceller {
	if window <= 0 {
		window = DefaultCancelWindow
	}
	return &Canceller{Window: window}
}

func (c *Canceller) Cancel(ctx context.Context, tx Tx, id snowflake.ID, username string, now time.Time) (*Movement, error) {
	mov, err := tx.LockMovement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lock movement %s: %w", id, err)
	}
	if mov == nil {
		return nil, ErrNotFound{Resource: "movement", Key: id.String()}
	}

	owned, err := tx.AccountsByOwner(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("accounts of %s: %w", username, err)
	}
	if !ownsMovement(owned, mov) {
		return nil, ErrForbidden{Reason: "user does not own the movement's accounts"}
	}

	if now.Sub(mov.CreatedAt) > c.Window {
		return nil, badRequest("createdAt", fmt.Sprintf("cannot cancel after %s", windowText(c.Window)))
	}

	accts, err := tx.LockAccounts(ctx, nonEmpty(mov.ReferenceIBAN, mov.DestinationIBAN)...)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	snap := Snapshot{
		Reference:   accts[mov.ReferenceIBAN],
		Destination: accts[mov.DestinationIBAN],
	}

	changed, err := applyEffect(movementKinds[mov.Type].effect.inverse(), mov, snap, now)
	if err != nil {
		if errors.Is(err, errOverdraw) {
			return nil, badRequest("amount", "insufficient funds to reverse movement")
		}
		return nil, err
	}
	for _, acct := range changed {
		if err = tx.SaveAccount(ctx, acct); err != nil {
			return nil, fmt.Errorf("save account %s: %w", acct.IBAN, err)
		}
	}

	if err = tx.DeleteMovement(ctx, mov.ID); err != nil {
		return nil, fmt.Errorf("delete movement %s: %w", mov.ID, err)
	}
	return mov, nil
}

func ownsMovement(owned []Account, mov *Movement) bool {
	for i := range owned {
		if mov.Involves(owned[i].IBAN) {
			return true
		}
	}
	return false
}

func windowText(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	}
	return d.String()
}

func nonEmpty(ss ...string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
