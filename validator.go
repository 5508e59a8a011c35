package bankxmov

import (
	"time"

	"github.com/shopspring/decimal"
)

// effect is how a movement type moves money: the sign applied to the reference and
// destination balances, and whether the card's spend counters are touched.
type effect struct {
	reference   int
	destination int
	counters    bool
}

func (e effect) inverse() effect {
	return effect{
		reference:   -e.reference,
		destination: -e.destination,
	}
}

func (e effect) debitsReference() bool {
	return e.reference < 0
}

type movementKind struct {
	validate func(v *Validator, req CreateMovementReq, snap Snapshot, now time.Time) error
	effect   effect
	// externalSource marks types whose reference account may be outside the bank.
	externalSource bool
	// ceiling marks card debits checked against the card's spending limits.
	ceiling bool
}

var movementKinds = map[MovementType]movementKind{
	Transferencia: {
		validate: validateAccountTransfer,
		effect:   effect{reference: -1, destination: 1},
	},
	Bizum: {
		validate: validateAccountTransfer,
		effect:   effect{reference: -1, destination: 1},
	},
	InteresMensual: {
		validate:       validateInterest,
		effect:         effect{destination: 1},
		externalSource: true,
	},
	Nomina: {
		validate:       validatePayroll,
		effect:         effect{destination: 1},
		externalSource: true,
	},
	Pago: {
		validate: validateCardMovement,
		effect:   effect{reference: -1, counters: true},
		ceiling:  true,
	},
	Ingreso: {
		validate: validateCardMovement,
		effect:   effect{reference: 1, counters: true},
	},
	Extraccion: {
		validate: validateCardMovement,
		effect:   effect{reference: -1, counters: true},
		ceiling:  true,
	},
}

// Validator decides whether a proposed movement may be executed against a snapshot of the
// accounts and card it references. It never mutates the snapshot.
type Validator struct {
	limits *CardLimits
}

func NewValidator(limits *CardLimits) *Validator {
	return &Validator{limits: limits}
}

// Validate applies the movement rules in order and returns the first failure as an
// ErrBadRequest, ErrNotFound or ErrForbidden.
func (v *Validator) Validate(req CreateMovementReq, snap Snapshot, now time.Time) error {
	mt, ok := ParseMovementType(req.Type)
	if !ok {
		return badRequest("type", "unrecognized movement type")
	}
	if reason, ok := validAmount(req.Amount); !ok {
		return badRequest("amount", reason)
	}

	kind := movementKinds[mt]
	if err := validateReference(kind, req, snap); err != nil {
		return err
	}
	if err := kind.validate(v, req, snap, now); err != nil {
		return err
	}

	if kind.effect.debitsReference() && req.Amount.GreaterThan(snap.Reference.Balance) {
		return badRequest("amount", "insufficient funds")
	}
	if kind.ceiling {
		return v.limits.Check(*snap.Card, req.Amount, now)
	}
	return nil
}

func validateReference(kind movementKind, req CreateMovementReq, snap Snapshot) error {
	if req.ReferenceIBAN == "" {
		if kind.externalSource {
			return nil
		}
		return badRequest("ibanReference", "reference account is required")
	}
	if snap.Reference == nil {
		return ErrNotFound{Resource: "account", Key: req.ReferenceIBAN}
	}
	if snap.Reference.Deleted {
		return badRequest("ibanReference", "account is deleted")
	}
	return nil
}

func validateDestination(req CreateMovementReq, snap Snapshot) error {
	if req.DestinationIBAN == "" {
		return badRequest("ibanDestination", "destination account is required")
	}
	if snap.Destination == nil {
		return ErrNotFound{Resource: "account", Key: req.DestinationIBAN}
	}
	if snap.Destination.Deleted {
		return badRequest("ibanDestination", "account is deleted")
	}
	return nil
}

func validateAccountTransfer(_ *Validator, req CreateMovementReq, snap Snapshot, _ time.Time) error {
	if err := validateDestination(req, snap); err != nil {
		return err
	}
	if req.DestinationIBAN == req.ReferenceIBAN {
		return badRequest("ibanDestination", "destination must differ from reference account")
	}
	return nil
}

func validateInterest(_ *Validator, req CreateMovementReq, snap Snapshot, _ time.Time) error {
	if err := validateDestination(req, snap); err != nil {
		return err
	}
	if !snap.Destination.Type.EarnsInterest() {
		return ErrForbidden{Reason: "account type earns no interest"}
	}
	return nil
}

func validatePayroll(_ *Validator, req CreateMovementReq, snap Snapshot, _ time.Time) error {
	return validateDestination(req, snap)
}

func validateCardMovement(_ *Validator, req CreateMovementReq, snap Snapshot, now time.Time) error {
	if req.CardNumber == "" {
		return badRequest("cardNumber", "card is required")
	}
	card := snap.Card
	if card == nil {
		return ErrNotFound{Resource: "card", Key: maskCardNumber(req.CardNumber)}
	}
	switch {
	case card.Deleted:
		return badRequest("cardNumber", "card is deleted")
	case !card.Active:
		return badRequest("cardNumber", "card is inactive")
	case card.Expired(now):
		return badRequest("cardNumber", "card is expired")
	case card.AccountIBAN != snap.Reference.IBAN:
		return badRequest("cardNumber", "card does not belong to account")
	}
	return nil
}

func signed(amount decimal.Decimal, sign int) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(sign)))
}
