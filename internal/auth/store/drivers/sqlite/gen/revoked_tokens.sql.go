package gen

import "context"

const revokeToken = `INSERT INTO revoked_tokens (jti, subject, expires_at, revoked_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (jti) DO NOTHING`

func (q *Queries) RevokeToken(ctx context.Context, t RevokedToken) error {
	_, err := q.db.ExecContext(ctx, revokeToken, t.Jti, t.Subject, t.ExpiresAt, t.RevokedAt)
	return err
}

const isTokenRevoked = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`

func (q *Queries) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := q.db.QueryRowContext(ctx, isTokenRevoked, jti).Scan(&revoked)
	return revoked, err
}

const deleteExpiredRevocations = `DELETE FROM revoked_tokens WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredRevocations(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredRevocations, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
