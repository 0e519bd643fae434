package gen

import "context"

const signingKeyColumns = `id, kid, algorithm, secret_encrypted, created_at, retired_at, expires_at`

func scanSigningKey(row scanner) (SigningKey, error) {
	var k SigningKey
	err := row.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.SecretEncrypted, &k.CreatedAt, &k.RetiredAt, &k.ExpiresAt)
	return k, err
}

const createSigningKey = `INSERT INTO signing_keys (id, kid, algorithm, secret_encrypted, created_at, retired_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateSigningKey(ctx context.Context, k SigningKey) error {
	_, err := q.db.ExecContext(ctx, createSigningKey,
		k.ID,
		k.Kid,
		k.Algorithm,
		k.SecretEncrypted,
		k.CreatedAt,
		k.RetiredAt,
		k.ExpiresAt,
	)
	return err
}

const getSigningKeyByKid = `SELECT ` + signingKeyColumns + ` FROM signing_keys WHERE kid = ?`

func (q *Queries) GetSigningKeyByKid(ctx context.Context, kid string) (SigningKey, error) {
	return scanSigningKey(q.db.QueryRowContext(ctx, getSigningKeyByKid, kid))
}

const listSigningKeys = `SELECT ` + signingKeyColumns + ` FROM signing_keys ORDER BY created_at DESC, id DESC`

func (q *Queries) ListSigningKeys(ctx context.Context) ([]SigningKey, error) {
	rows, err := q.db.QueryContext(ctx, listSigningKeys)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSigningKey)
}

const listUsableSigningKeys = `SELECT ` + signingKeyColumns + `
FROM signing_keys
WHERE retired_at IS NULL OR expires_at IS NULL OR expires_at > ?
ORDER BY created_at DESC, id DESC`

func (q *Queries) ListUsableSigningKeys(ctx context.Context, now int64) ([]SigningKey, error) {
	rows, err := q.db.QueryContext(ctx, listUsableSigningKeys, now)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSigningKey)
}

const retireSigningKey = `UPDATE signing_keys SET retired_at = ?, expires_at = ? WHERE kid = ? AND retired_at IS NULL`

func (q *Queries) RetireSigningKey(ctx context.Context, kid string, retiredAt, expiresAt int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, retireSigningKey, retiredAt, expiresAt, kid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpiredSigningKeys = `DELETE FROM signing_keys WHERE retired_at IS NOT NULL AND expires_at IS NOT NULL AND expires_at <= ?`

func (q *Queries) DeleteExpiredSigningKeys(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSigningKeys, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
