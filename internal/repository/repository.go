// Package repository implements all database access for the pricing
// service. It uses pgx directly (no ORM) for transparency and
// performance.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/sympose/conf-reg-pricing/internal/model"
	"github.com/sympose/conf-reg-pricing/internal/pricing"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrWorkshopFull is returned when a selected workshop has no remaining seats.
var ErrWorkshopFull = errors.New("workshop is fully booked")

// ErrAlreadyRegistered is returned when the same email registers twice.
var ErrAlreadyRegistered = errors.New("email already registered")

// ErrDiscountNotAvailable is returned when the authoritative pre-commit
// re-check rejects a discount that passed the price preview, typically
// a concurrent registration consumed the last remaining use.
var ErrDiscountNotAvailable = errors.New("discount code no longer available")

// ErrAlreadyPaid is returned when payment verification targets a
// registration that is already paid.
var ErrAlreadyPaid = errors.New("registration already paid")

// ErrNotPayable is returned when payment verification targets a
// cancelled or refunded registration.
var ErrNotPayable = errors.New("registration is not awaiting payment")

// RegistrationRepository persists registrations together with their
// frozen price breakdowns.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create persists a registration and consumes its capped resources in a
// single transaction: workshop seats are counted up under row locks, and
// the discount code (if any) is re-validated against its locked row and
// its usage counter incremented. Locking serialises concurrent
// registrations racing for the last seat or the last remaining use of a
// code, so the preview-time eligibility check can stay lock-free.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration, now time.Time) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Duplicate registration guard.
	var dupCount int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE lower(email) = lower($1)`,
		reg.Email,
	).Scan(&dupCount)
	if err != nil {
		return fmt.Errorf("check duplicate: %w", err)
	}
	if dupCount > 0 {
		return ErrAlreadyRegistered
	}

	// Consume workshop seats. Duplicate selections are one billable line
	// and one seat; ids are locked in sorted order so two concurrent
	// registrations can never deadlock on each other.
	ids := lo.Uniq(reg.WorkshopIDs)
	sort.Strings(ids)
	for _, id := range ids {
		var capacity *int
		var seatsTaken int
		err = tx.QueryRow(ctx,
			`SELECT capacity, seats_taken FROM workshops WHERE id = $1 FOR UPDATE`,
			id,
		).Scan(&capacity, &seatsTaken)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return &pricing.UnknownWorkshopError{ID: id}
			}
			return fmt.Errorf("lock workshop row: %w", err)
		}
		if capacity != nil && seatsTaken >= *capacity {
			return fmt.Errorf("%w: %s", ErrWorkshopFull, id)
		}
		if _, err = tx.Exec(ctx,
			`UPDATE workshops SET seats_taken = seats_taken + 1 WHERE id = $1`,
			id,
		); err != nil {
			return fmt.Errorf("increment seats_taken: %w", err)
		}
	}

	// Re-validate and consume the discount under a row lock. The engine's
	// resolver is pure and cheap, so running it a second time against the
	// locked row closes the race window between preview and commit.
	if reg.DiscountCode != "" {
		if err = r.consumeDiscount(ctx, tx, reg, now); err != nil {
			return err
		}
	}

	accompanying, err := json.Marshal(reg.AccompanyingPersons)
	if err != nil {
		return fmt.Errorf("marshal accompanying persons: %w", err)
	}
	var accommodation []byte
	if reg.Accommodation != nil {
		if accommodation, err = json.Marshal(reg.Accommodation); err != nil {
			return fmt.Errorf("marshal accommodation: %w", err)
		}
	}
	breakdown, err := json.Marshal(reg.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO registrations
		   (id, email, full_name, category_key, age, workshop_ids,
		    accompanying_persons, accommodation, discount_code,
		    breakdown, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		reg.ID, reg.Email, reg.FullName, reg.CategoryKey, reg.Age, reg.WorkshopIDs,
		accompanying, accommodation, nullable(reg.DiscountCode),
		breakdown, string(reg.Status), reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *RegistrationRepository) consumeDiscount(ctx context.Context, tx pgx.Tx, reg *model.Registration, now time.Time) error {
	var (
		d         model.DiscountCode
		kind      string
		valueText string
	)
	err := tx.QueryRow(ctx,
		`SELECT code, kind, value::text, valid_from, valid_to, active,
		        max_uses, uses_so_far, applicable_category_keys
		 FROM discount_codes
		 WHERE code = $1
		 FOR UPDATE`,
		reg.DiscountCode,
	).Scan(&d.Code, &kind, &valueText, &d.ValidFrom, &d.ValidTo, &d.Active, &d.MaxUses, &d.UsesSoFar, &d.ApplicableCategoryKeys)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrDiscountNotAvailable, pricing.ReasonNotFound)
		}
		return fmt.Errorf("lock discount row: %w", err)
	}
	d.Kind = model.DiscountKind(kind)
	if d.Value, err = decimal.NewFromString(valueText); err != nil {
		return fmt.Errorf("parse discount value %q: %w", valueText, err)
	}

	res := pricing.ResolveDiscountCode(d, reg.CategoryKey, now, reg.Breakdown.Subtotal)
	if !res.Valid {
		return fmt.Errorf("%w: %s", ErrDiscountNotAvailable, res.Reason)
	}
	// The code was edited between preview and commit; the quoted amount
	// no longer holds, so the registrant must re-quote.
	if !res.Amount.Equal(reg.Breakdown.DiscountAmount) {
		return fmt.Errorf("%w: quoted amount is stale", ErrDiscountNotAvailable)
	}

	if _, err = tx.Exec(ctx,
		`UPDATE discount_codes SET uses_so_far = uses_so_far + 1 WHERE code = $1`,
		d.Code,
	); err != nil {
		return fmt.Errorf("increment discount usage: %w", err)
	}
	return nil
}

// GetByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var (
		reg           model.Registration
		status        string
		accompanying  []byte
		accommodation []byte
		breakdown     []byte
		discountCode  *string
		paymentUTR    *string
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, email, full_name, category_key, age, workshop_ids,
		        accompanying_persons, accommodation, discount_code,
		        breakdown, status, payment_utr, created_at
		 FROM registrations WHERE id = $1`,
		id,
	).Scan(&reg.ID, &reg.Email, &reg.FullName, &reg.CategoryKey, &reg.Age, &reg.WorkshopIDs,
		&accompanying, &accommodation, &discountCode,
		&breakdown, &status, &paymentUTR, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}

	reg.Status = model.RegistrationStatus(status)
	if discountCode != nil {
		reg.DiscountCode = *discountCode
	}
	if paymentUTR != nil {
		reg.PaymentUTR = *paymentUTR
	}
	if len(accompanying) > 0 {
		if err := json.Unmarshal(accompanying, &reg.AccompanyingPersons); err != nil {
			return nil, fmt.Errorf("unmarshal accompanying persons: %w", err)
		}
	}
	if len(accommodation) > 0 {
		if err := json.Unmarshal(accommodation, &reg.Accommodation); err != nil {
			return nil, fmt.Errorf("unmarshal accommodation: %w", err)
		}
	}
	if err := json.Unmarshal(breakdown, &reg.Breakdown); err != nil {
		return nil, fmt.Errorf("unmarshal breakdown: %w", err)
	}
	return &reg, nil
}

// MarkPaid records a verified bank-transfer UTR and moves the
// registration to paid. Only a registration awaiting payment can make
// the transition: a second verification attempt reports ErrAlreadyPaid,
// and a cancelled or refunded registration reports ErrNotPayable.
func (r *RegistrationRepository) MarkPaid(ctx context.Context, id, utr string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE registrations
		 SET status = $2, payment_utr = $3
		 WHERE id = $1 AND status IN ($4, $5)`,
		id, string(model.StatusPaid), utr,
		string(model.StatusPending), string(model.StatusPendingPayment),
	)
	if err != nil {
		return fmt.Errorf("mark paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var status string
		if err := r.db.QueryRow(ctx,
			`SELECT status FROM registrations WHERE id = $1`, id,
		).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("check registration: %w", err)
		}
		if status == string(model.StatusPaid) {
			return ErrAlreadyPaid
		}
		return fmt.Errorf("%w: %s", ErrNotPayable, status)
	}
	return nil
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
