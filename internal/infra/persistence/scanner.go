package persistence

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/server24/provisiond/internal/domain"
)

// ScanSubscriberRow scans a row in the column order of the subscriber
// statements in internal/constants.
func ScanSubscriberRow(row pgx.Row) (*domain.Subscriber, error) {
	var sub domain.Subscriber
	err := row.Scan(
		&sub.ID, &sub.ExternalID, &sub.Username, &sub.FullName,
		&sub.Balance, &sub.Active, &sub.Admin, &sub.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ScanCredentialRow scans a row in the column order of the credential
// statements in internal/constants.
func ScanCredentialRow(row pgx.Row) (*domain.Credential, error) {
	var (
		cred domain.Credential
		id   string
	)
	err := row.Scan(
		&id, &cred.SubscriberID, &cred.Port, &cred.Flow,
		&cred.QuotaBytes, &cred.UsedBytes, &cred.ExpiresAt,
		&cred.Active, &cred.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	cred.ID, err = domain.CredentialIDFromString(id)
	if err != nil {
		return nil, fmt.Errorf("stored credential id is malformed: %w", err)
	}
	return &cred, nil
}
