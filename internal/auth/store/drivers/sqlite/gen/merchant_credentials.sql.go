package gen

import "context"

const credentialColumns = `id, tenant_id, portal_id, ciphertext, key_ref, created_at, updated_at`

func scanCredential(row scanner) (MerchantCredential, error) {
	var c MerchantCredential
	err := row.Scan(&c.ID, &c.TenantID, &c.PortalID, &c.Ciphertext, &c.KeyRef, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const upsertMerchantCredential = `INSERT INTO merchant_credentials
    (id, tenant_id, portal_id, ciphertext, key_ref, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (tenant_id, portal_id) DO UPDATE SET
    ciphertext = excluded.ciphertext,
    key_ref    = excluded.key_ref,
    updated_at = excluded.updated_at`

type UpsertMerchantCredentialParams struct {
	ID         string
	TenantID   string
	PortalID   string
	Ciphertext []byte
	KeyRef     string
	At         int64
}

func (q *Queries) UpsertMerchantCredential(ctx context.Context, arg UpsertMerchantCredentialParams) error {
	_, err := q.db.ExecContext(ctx, upsertMerchantCredential,
		arg.ID,
		arg.TenantID,
		arg.PortalID,
		arg.Ciphertext,
		arg.KeyRef,
		arg.At,
		arg.At,
	)
	return err
}

const resealMerchantCredential = `UPDATE merchant_credentials
SET ciphertext = ?, key_ref = ?, updated_at = ?
WHERE tenant_id = ? AND portal_id = ? AND key_ref = ? AND updated_at = ?`

type ResealMerchantCredentialParams struct {
	TenantID   string
	PortalID   string
	Ciphertext []byte
	KeyRef     string
	At         int64
	PrevKeyRef string
	PrevAt     int64
}

func (q *Queries) ResealMerchantCredential(ctx context.Context, arg ResealMerchantCredentialParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, resealMerchantCredential,
		arg.Ciphertext,
		arg.KeyRef,
		arg.At,
		arg.TenantID,
		arg.PortalID,
		arg.PrevKeyRef,
		arg.PrevAt,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getMerchantCredential = `SELECT ` + credentialColumns + `
FROM merchant_credentials WHERE tenant_id = ? AND portal_id = ?`

func (q *Queries) GetMerchantCredential(ctx context.Context, tenantID, portalID string) (MerchantCredential, error) {
	return scanCredential(q.db.QueryRowContext(ctx, getMerchantCredential, tenantID, portalID))
}

const listMerchantCredentials = `SELECT ` + credentialColumns + `
FROM merchant_credentials WHERE tenant_id = ? ORDER BY portal_id`

func (q *Queries) ListMerchantCredentials(ctx context.Context, tenantID string) ([]MerchantCredential, error) {
	rows, err := q.db.QueryContext(ctx, listMerchantCredentials, tenantID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCredential)
}

const listMerchantCredentialsNotSealedWith = `SELECT ` + credentialColumns + `
FROM merchant_credentials WHERE key_ref <> ? ORDER BY tenant_id, portal_id`

func (q *Queries) ListMerchantCredentialsNotSealedWith(ctx context.Context, keyRef string) ([]MerchantCredential, error) {
	rows, err := q.db.QueryContext(ctx, listMerchantCredentialsNotSealedWith, keyRef)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCredential)
}

const deleteMerchantCredential = `DELETE FROM merchant_credentials WHERE tenant_id = ? AND portal_id = ?`

func (q *Queries) DeleteMerchantCredential(ctx context.Context, tenantID, portalID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteMerchantCredential, tenantID, portalID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
