// Package ledger records who has voted and what they answered without
// storing the two side by side.
//
// A receipt row proves that an identity voted. The vote row is keyed by the
// SHA-256 of the identity and a random token that only the respondent keeps
// (in the receipt_id cookie), so votes and answers cannot be traced back to an
// identity without that token.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/log"
	"github.com/mbolis/questionnaire/questionnaire"
)

const (
	CookieName       = "receipt_id"
	MaxValueLength   = 511
	TruncationMarker = "…"
)

var (
	ErrTampered      = errors.New("receipt token does not match a vote")
	ErrMissingCookie = errors.New("receipt exists but no token was supplied")
)

// StorageError wraps any database failure; the transaction has been rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %s", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// form fields that are never answers
var controlFields = map[string]bool{
	"cmd_save":             true,
	"g-recaptcha-response": true,
}

type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Result describes what a successful Submit did.
type Result struct {
	// Token goes into the receipt cookie; set only for a new receipt.
	Token      string
	NewReceipt bool
	Revote     bool
	VoteID     int64
}

// UserHash derives the vote key from an identity and a receipt token.
func UserHash(identityID string, token uuid.UUID) string {
	h := sha256.New()
	h.Write([]byte(identityID))
	h.Write(token.Bytes())
	return hex.EncodeToString(h.Sum(nil))
}

// ParseToken reads a receipt token with or without dashes.
func ParseToken(text string) (uuid.UUID, error) {
	token, err := uuid.FromString(strings.ReplaceAll(strings.TrimSpace(text), "-", ""))
	if err != nil {
		return uuid.Nil, errors.Wrap(ErrTampered, err.Error())
	}
	return token, nil
}

// Truncate cuts values of MaxValueLength+1 characters or more down to
// MaxValueLength characters followed by TruncationMarker.
func Truncate(value string) string {
	runes := []rune(value)
	if len(runes) <= MaxValueLength {
		return value
	}
	return string(runes[:MaxValueLength]) + TruncationMarker
}

// Sanitize keeps the answer fields of a submitted form: control fields,
// empty values and keys without the field prefix are dropped.
func Sanitize(form url.Values) map[string]string {
	answers := make(map[string]string, len(form))
	for key, values := range form {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		if controlFields[key] || !strings.HasPrefix(key, questionnaire.FieldPrefix) {
			continue
		}
		answers[key] = Truncate(values[0])
	}
	return answers
}

// Submit stores the answers of identityID in one transaction.
//
// Without a receipt, a receipt and a fresh token are created. With a receipt,
// cookie must carry the token handed out the first time: a missing cookie
// yields ErrMissingCookie and one that matches no vote yields ErrTampered,
// both without touching the database.
func (l *Ledger) Submit(ctx context.Context, identityID, cookie string, answers map[string]string) (Result, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, &StorageError{Op: "begin", Err: err}
	}
	defer tx.Rollback()

	hasReceipt, err := receiptExists(ctx, tx, identityID)
	if err != nil {
		return Result{}, &StorageError{Op: "get_receipt", Err: err}
	}

	now := l.now().UTC()
	var res Result

	if !hasReceipt {
		token, err := uuid.NewV4()
		if err != nil {
			return Result{}, errors.Wrap(err, "generate token")
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO receipt (user_id, created_at) VALUES (?, ?)`, identityID, now)
		if err != nil {
			return Result{}, &StorageError{Op: "insert_receipt", Err: err}
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO vote (user_hash, datestamp) VALUES (?, ?)
			ON CONFLICT (user_hash) DO UPDATE SET datestamp = excluded.datestamp
			RETURNING id`,
			UserHash(identityID, token), now,
		).Scan(&res.VoteID)
		if err != nil {
			return Result{}, &StorageError{Op: "insert_vote", Err: err}
		}

		res.Token = token.String()
		res.NewReceipt = true
	} else {
		if cookie == "" {
			return Result{}, ErrMissingCookie
		}
		token, err := ParseToken(cookie)
		if err != nil {
			return Result{}, err
		}

		res.VoteID, err = voteID(ctx, tx, UserHash(identityID, token))
		if errors.Is(err, sql.ErrNoRows) {
			return Result{}, ErrTampered
		}
		if err != nil {
			return Result{}, &StorageError{Op: "get_vote", Err: err}
		}

		_, err = tx.ExecContext(ctx, `UPDATE vote SET datestamp = ? WHERE id = ?`, now, res.VoteID)
		if err != nil {
			return Result{}, &StorageError{Op: "update_vote", Err: err}
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM answer WHERE vote_id = ?`, res.VoteID)
		if err != nil {
			return Result{}, &StorageError{Op: "delete_answers", Err: err}
		}
		res.Revote = true
	}

	if err := insertAnswers(ctx, tx, res.VoteID, answers); err != nil {
		return Result{}, &StorageError{Op: "insert_answers", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return Result{}, &StorageError{Op: "commit", Err: err}
	}

	log.Debugf("ledger.submit: vote %d, %d answers (new receipt: %t)", res.VoteID, len(answers), res.NewReceipt)
	return res, nil
}

// Lookup returns the stored answers of identityID, or nil when it has no
// receipt yet. The receipt token rules are the same as for Submit.
func (l *Ledger) Lookup(ctx context.Context, identityID, cookie string) (map[string]string, error) {
	hasReceipt, err := receiptExists(ctx, l.db, identityID)
	if err != nil {
		return nil, &StorageError{Op: "get_receipt", Err: err}
	}
	if !hasReceipt {
		return nil, nil
	}
	if cookie == "" {
		return nil, ErrMissingCookie
	}

	token, err := ParseToken(cookie)
	if err != nil {
		return nil, err
	}

	id, err := voteID(ctx, l.db, UserHash(identityID, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTampered
	}
	if err != nil {
		return nil, &StorageError{Op: "get_vote", Err: err}
	}

	rows, err := l.db.QueryContext(ctx, `SELECT code, value FROM answer WHERE vote_id = ?`, id)
	if err != nil {
		return nil, &StorageError{Op: "get_answers", Err: err}
	}
	defer rows.Close()

	answers := map[string]string{}
	for rows.Next() {
		var code, value string
		if err := rows.Scan(&code, &value); err != nil {
			return nil, &StorageError{Op: "get_answers.scan", Err: err}
		}
		answers[code] = value
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "get_answers", Err: err}
	}
	return answers, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func receiptExists(ctx context.Context, q querier, identityID string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM receipt WHERE user_id = ?`, identityID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func voteID(ctx context.Context, q querier, hash string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM vote WHERE user_hash = ?`, hash).Scan(&id)
	return id, err
}

func insertAnswers(ctx context.Context, tx *sql.Tx, voteID int64, answers map[string]string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO answer (vote_id, code, value) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	codes := make([]string, 0, len(answers))
	for code := range answers {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if _, err := stmt.ExecContext(ctx, voteID, code, answers[code]); err != nil {
			return errors.Wrapf(err, "answer %s", code)
		}
	}
	return nil
}
