package constants

// Statement names
const (
	StmtGetSubscriberByID       = "get_subscriber_by_id"
	StmtGetSubscriberByExternal = "get_subscriber_by_external"
	StmtUpsertSubscriber        = "upsert_subscriber"
	StmtAdjustBalance           = "adjust_balance"
	StmtListSubscribers         = "list_subscribers"

	StmtGetCredential          = "get_credential"
	StmtCreateCredential       = "create_credential"
	StmtListCredentials        = "list_credentials"
	StmtListCredentialsBySub   = "list_credentials_by_subscriber"
	StmtListCredentialPorts    = "list_credential_ports"
	StmtUpdateCredentialExpiry = "update_credential_expiry"
	StmtUpdateCredentialUsage  = "update_credential_usage"
	StmtDeleteCredential       = "delete_credential"
)

var Queries = map[string]string{
	StmtGetSubscriberByID: `
		SELECT id, external_id, username, full_name, balance, active, admin, created_at
		FROM subscribers
		WHERE id = $1`,

	StmtGetSubscriberByExternal: `
		SELECT id, external_id, username, full_name, balance, active, admin, created_at
		FROM subscribers
		WHERE external_id = $1`,

	StmtUpsertSubscriber: `
		INSERT INTO subscribers (external_id, username, full_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id)
		DO UPDATE SET username = EXCLUDED.username, full_name = EXCLUDED.full_name
		RETURNING id, external_id, username, full_name, balance, active, admin, created_at`,

	StmtAdjustBalance: `
		UPDATE subscribers
		SET balance = balance + $2
		WHERE id = $1 AND balance + $2 >= 0
		RETURNING balance`,

	StmtListSubscribers: `
		SELECT id, external_id, username, full_name, balance, active, admin, created_at
		FROM subscribers
		ORDER BY created_at`,

	StmtGetCredential: `
		SELECT id, subscriber_id, port, flow, quota_bytes, used_bytes, expires_at, active, created_at
		FROM credentials
		WHERE id = $1::uuid`,

	StmtCreateCredential: `
		INSERT INTO credentials (id, subscriber_id, port, flow, quota_bytes, used_bytes, expires_at, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,

	StmtListCredentials: `
		SELECT id, subscriber_id, port, flow, quota_bytes, used_bytes, expires_at, active, created_at
		FROM credentials
		ORDER BY created_at`,

	StmtListCredentialsBySub: `
		SELECT id, subscriber_id, port, flow, quota_bytes, used_bytes, expires_at, active, created_at
		FROM credentials
		WHERE subscriber_id = $1
		ORDER BY created_at`,

	StmtListCredentialPorts: `
		SELECT port FROM credentials`,

	StmtUpdateCredentialExpiry: `
		UPDATE credentials
		SET expires_at = $2
		WHERE id = $1::uuid`,

	StmtUpdateCredentialUsage: `
		UPDATE credentials
		SET used_bytes = $2
		WHERE id = $1::uuid`,

	StmtDeleteCredential: `
		DELETE FROM credentials
		WHERE id = $1::uuid`,
}
