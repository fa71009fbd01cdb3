package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrDonationNotFound indicates no donation matched the reference
var ErrDonationNotFound = errors.New("donation not found")

// CreateDonationParams holds the fields for recording a settled donation
type CreateDonationParams struct {
	CampaignID    string
	PayloadID     string
	TxKey         string
	TxHash        string
	AmountDrops   int64
	DonorAccount  string
	Status        string
	ForwardStatus string
	ForwardTxHash string
}

const donationColumns = `id, campaign_id, payload_id, tx_key, tx_hash, amount_drops,
	donor_account, status, forward_status, forward_tx_hash, created_at, updated_at`

func scanDonation(row pgx.Row) (*Donation, error) {
	var d Donation
	err := row.Scan(&d.ID, &d.CampaignID, &d.PayloadID, &d.TxKey, &d.TxHash, &d.AmountDrops,
		&d.DonorAccount, &d.Status, &d.ForwardStatus, &d.ForwardTxHash, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDonationNotFound
		}
		return nil, fmt.Errorf("donation scan failed: %w", err)
	}
	return &d, nil
}

// CreateDonation records a settled donation and returns the stored row
func (s *Store) CreateDonation(ctx context.Context, params CreateDonationParams) (*Donation, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO donations (id, campaign_id, payload_id, tx_key, tx_hash, amount_drops,
			donor_account, status, forward_status, forward_tx_hash)
		 VALUES (gen_random_uuid(), $1, NULLIF($2, ''), $3, NULLIF($4, ''), $5,
			NULLIF($6, ''), $7, $8, NULLIF($9, ''))
		 RETURNING `+donationColumns,
		params.CampaignID, params.PayloadID, params.TxKey, params.TxHash, params.AmountDrops,
		params.DonorAccount, params.Status, params.ForwardStatus, params.ForwardTxHash,
	)
	return scanDonation(row)
}

// UpdateDonationForward records the outcome of the forward leg
func (s *Store) UpdateDonationForward(ctx context.Context, txKey, forwardStatus, forwardTxHash string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE donations
		 SET forward_status = $1, forward_tx_hash = NULLIF($2, ''), updated_at = now()
		 WHERE tx_key = $3`,
		forwardStatus, forwardTxHash, txKey,
	)
	if err != nil {
		return fmt.Errorf("donation forward update failed: %w", err)
	}
	return nil
}

// GetDonationByReference looks a donation up by id, payload id or tx hash
func (s *Store) GetDonationByReference(ctx context.Context, reference string) (*Donation, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+donationColumns+`
		 FROM donations
		 WHERE id::text = $1 OR payload_id = $1 OR tx_hash = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		reference,
	)
	return scanDonation(row)
}

// ListDonationsByCampaign returns the most recent donations for a campaign
func (s *Store) ListDonationsByCampaign(ctx context.Context, campaignID string, limit int32) ([]Donation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+donationColumns+`
		 FROM donations
		 WHERE campaign_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		campaignID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("donation list failed: %w", err)
	}
	defer rows.Close()

	var donations []Donation
	for rows.Next() {
		var d Donation
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.PayloadID, &d.TxKey, &d.TxHash, &d.AmountDrops,
			&d.DonorAccount, &d.Status, &d.ForwardStatus, &d.ForwardTxHash, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("donation scan failed: %w", err)
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}
