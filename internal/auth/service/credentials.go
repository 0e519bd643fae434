package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/tenantauth/internal/auth/domain"
	"github.com/aussiebroadwan/tenantauth/internal/auth/store"
	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/idx"
	"github.com/aussiebroadwan/tenantauth/pkg/slogx"
)

// CredentialService owns tenants, users and their password hashes, and the
// sealed merchant portal credentials of each tenant.
type CredentialService struct {
	Store  store.Store
	Sealer *cryptox.Sealer
	Audit  Recorder
	Now    func() time.Time
}

type CreateUserInput struct {
	Email    string
	Password string
	Role     domain.Role
	TenantID string
}

// CreateTenant registers a new tenant partition.
func (s *CredentialService) CreateTenant(ctx context.Context, actor domain.Principal, name string) (domain.Tenant, error) {
	ev := actorEvent(actor, domain.ActionTenantCreate, "tenant:"+name)

	tenant, err := s.createTenant(ctx, name)
	if err == nil {
		ev.Resource = "tenant:" + tenant.ID
	}
	record(ctx, s.Audit, withOutcome(ev, err))
	return tenant, err
}

func (s *CredentialService) createTenant(ctx context.Context, name string) (domain.Tenant, error) {
	name, err := validateTenantName(name)
	if err != nil {
		return domain.Tenant{}, err
	}

	tenant := domain.Tenant{
		ID:        idx.New().String(),
		Name:      name,
		CreatedAt: clock(s.Now),
	}
	if err := s.Store.Tenants().CreateTenant(ctx, tenant); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Tenant{}, domain.ErrDuplicateTenant
		}
		return domain.Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	return tenant, nil
}

// GetTenant returns an active tenant.
func (s *CredentialService) GetTenant(ctx context.Context, tenantID string) (domain.Tenant, error) {
	tenant, err := s.Store.Tenants().GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("get tenant: %w", err)
	}
	if !tenant.Active() {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return tenant, nil
}

// CreateUser stores a new user with an argon2id password hash. It performs
// no privilege check; HTTP callers go through CreateUserAs.
func (s *CredentialService) CreateUser(ctx context.Context, in CreateUserInput) (domain.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return domain.User{}, err
	}
	if err := validateRole(in.Role); err != nil {
		return domain.User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return domain.User{}, err
	}
	if _, err := s.GetTenant(ctx, in.TenantID); err != nil {
		return domain.User{}, err
	}

	hash, err := cryptox.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := clock(s.Now)
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		TenantID:     in.TenantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, domain.ErrDuplicateEmail
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// CreateUserAs creates a user on behalf of actor. Only a super admin may
// create another super admin.
func (s *CredentialService) CreateUserAs(ctx context.Context, actor domain.Principal, in CreateUserInput) (domain.User, error) {
	ev := actorEvent(actor, domain.ActionUserCreate, "tenant:"+in.TenantID)
	ev.TenantID = in.TenantID

	user, err := s.createUserAs(ctx, actor, in)
	if err == nil {
		ev.Resource = "user:" + user.ID
	}
	record(ctx, s.Audit, withOutcome(ev, err))
	return user, err
}

func (s *CredentialService) createUserAs(ctx context.Context, actor domain.Principal, in CreateUserInput) (domain.User, error) {
	if err := checkTenant(actor, in.TenantID, domain.ErrTenantMismatch); err != nil {
		return domain.User{}, err
	}
	if err := checkGrant(actor, in.Role); err != nil {
		return domain.User{}, err
	}
	return s.CreateUser(ctx, in)
}

// GetUser returns a user by id.
func (s *CredentialService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// ListUsers returns the users of one tenant.
func (s *CredentialService) ListUsers(ctx context.Context, tenantID string) ([]domain.User, error) {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	users, err := s.Store.Users().ListUsersByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// VerifyPassword reports whether password matches the stored hash for email.
// Unknown emails are checked against a dummy hash so both paths cost the
// same.
func (s *CredentialService) VerifyPassword(ctx context.Context, email, password string) (bool, error) {
	_, ok, err := s.verify(ctx, email, password)
	return ok, err
}

// Authenticate returns the active user identified by email and password.
// Unknown email, wrong password and deactivated accounts all fail with
// ErrInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	user, ok, err := s.verify(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	if !ok || !user.Active() {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	tenant, err := s.Store.Tenants().GetTenantByID(ctx, user.TenantID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load tenant: %w", err)
	}
	if !tenant.Active() {
		return domain.User{}, domain.ErrInvalidCredentials
	}

	if cryptox.NeedsRehash(user.PasswordHash) {
		if hash, err := cryptox.HashPassword(password); err != nil {
			l.Warn("failed to rehash password", slog.String("user_id", user.ID), slog.Any("error", err))
		} else if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, clock(s.Now)); err != nil {
			l.Warn("failed to store rehashed password", slog.String("user_id", user.ID), slog.Any("error", err))
		} else {
			user.PasswordHash = hash
			l.Info("upgraded password hash", slog.String("user_id", user.ID))
		}
	}
	return user, nil
}

func (s *CredentialService) verify(ctx context.Context, email, password string) (domain.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = cryptox.VerifyPassword(password, cryptox.DummyHash())
			return domain.User{}, false, nil
		}
		return domain.User{}, false, fmt.Errorf("load user: %w", err)
	}

	switch err := cryptox.VerifyPassword(password, user.PasswordHash); {
	case err == nil:
		return user, true, nil
	case errors.Is(err, cryptox.ErrPasswordMismatch):
		return user, false, nil
	default:
		slogx.FromContext(ctx).Error("stored password hash is unusable",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		return user, false, nil
	}
}

// ChangePassword replaces a user's password after checking the current one.
func (s *CredentialService) ChangePassword(ctx context.Context, actor domain.Principal, current, next string) error {
	ev := actorEvent(actor, domain.ActionPasswordChange, "user:"+actor.UserID)
	err := s.changePassword(ctx, actor.UserID, current, next)
	record(ctx, s.Audit, withOutcome(ev, err))
	return err
}

func (s *CredentialService) changePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifyPassword(current, user.PasswordHash); err != nil {
		return domain.ErrInvalidCredentials
	}
	if err := validatePassword(next); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash, clock(s.Now)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ChangeRole sets a user's role. Outstanding tokens of the user stop
// verifying because their role claim no longer matches.
func (s *CredentialService) ChangeRole(ctx context.Context, actor domain.Principal, userID string, role domain.Role) error {
	ev := actorEvent(actor, domain.ActionUserRoleChange, "user:"+userID)
	err := s.changeRole(ctx, actor, userID, role, &ev)
	record(ctx, s.Audit, withOutcome(ev, err))
	return err
}

func (s *CredentialService) changeRole(ctx context.Context, actor domain.Principal, userID string, role domain.Role, ev *domain.AuditEvent) error {
	if err := validateRole(role); err != nil {
		return err
	}
	target, err := s.manageableUser(ctx, actor, userID)
	if err != nil {
		return err
	}
	ev.TenantID = target.TenantID
	if err := checkGrant(actor, role); err != nil {
		return err
	}
	if err := s.Store.Users().UpdateRole(ctx, target.ID, role, clock(s.Now)); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

// Deactivate disables a user. Deactivated users cannot log in and their
// tokens stop verifying.
func (s *CredentialService) Deactivate(ctx context.Context, actor domain.Principal, userID string) error {
	ev := actorEvent(actor, domain.ActionUserDeactivate, "user:"+userID)
	err := s.deactivate(ctx, actor, userID, &ev)
	record(ctx, s.Audit, withOutcome(ev, err))
	return err
}

func (s *CredentialService) deactivate(ctx context.Context, actor domain.Principal, userID string, ev *domain.AuditEvent) error {
	target, err := s.manageableUser(ctx, actor, userID)
	if err != nil {
		return err
	}
	ev.TenantID = target.TenantID
	if !target.Active() {
		return nil
	}
	if err := s.Store.Users().DeactivateUser(ctx, target.ID, clock(s.Now)); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// manageableUser loads the target of a user management action and checks
// actor may act on it.
func (s *CredentialService) manageableUser(ctx context.Context, actor domain.Principal, userID string) (domain.User, error) {
	if actor.UserID != "" && actor.UserID == userID {
		return domain.User{}, fmt.Errorf("%w: cannot change own account", domain.ErrInvalidInput)
	}
	target, err := s.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if err := checkTenant(actor, target.TenantID, domain.ErrTenantMismatch); err != nil {
		return domain.User{}, err
	}
	if target.Role.CrossTenant() && !actor.Role.CrossTenant() {
		return domain.User{}, domain.ErrForbidden
	}
	return target, nil
}

// StoreMerchantCredential seals secret and stores it for (tenant, portal).
// Storing again for the same pair rotates the credential.
func (s *CredentialService) StoreMerchantCredential(
	ctx context.Context,
	caller domain.Principal,
	tenantID, portalID string,
	secret domain.PortalSecret,
) (domain.MerchantCredential, error) {
	ev := actorEvent(caller, domain.ActionCredentialStore, credentialResource(tenantID, portalID))
	ev.TenantID = tenantID

	cred, replaced, err := s.storeMerchantCredential(ctx, caller, tenantID, portalID, secret)
	if replaced {
		ev.Action = domain.ActionCredentialRotate
	}
	record(ctx, s.Audit, withOutcome(ev, err))
	return cred, err
}

func (s *CredentialService) storeMerchantCredential(
	ctx context.Context,
	caller domain.Principal,
	tenantID, portalID string,
	secret domain.PortalSecret,
) (domain.MerchantCredential, bool, error) {
	if err := checkTenant(caller, tenantID, domain.ErrAccessDenied); err != nil {
		return domain.MerchantCredential{}, false, err
	}
	if err := validatePortalID(portalID); err != nil {
		return domain.MerchantCredential{}, false, err
	}
	if secret.Password == "" {
		return domain.MerchantCredential{}, false, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return domain.MerchantCredential{}, false, err
	}

	plaintext, err := json.Marshal(secret)
	if err != nil {
		return domain.MerchantCredential{}, false, fmt.Errorf("encode credential: %w", err)
	}
	ciphertext, keyRef, err := s.Sealer.Seal(plaintext, credentialAAD(tenantID, portalID))
	if err != nil {
		return domain.MerchantCredential{}, false, fmt.Errorf("seal credential: %w", err)
	}

	now := clock(s.Now)
	cred := domain.MerchantCredential{
		ID:         idx.New().String(),
		TenantID:   tenantID,
		PortalID:   portalID,
		Ciphertext: ciphertext,
		KeyRef:     keyRef,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	replaced, err := s.Store.MerchantCredentials().UpsertMerchantCredential(ctx, cred)
	if err != nil {
		return domain.MerchantCredential{}, false, fmt.Errorf("store credential: %w", err)
	}
	if replaced {
		// Upsert keeps the original row id and creation time.
		// The rotation is already stored; on a failed reload the caller
		// gets the new row id and timestamps.
		stored, err := s.Store.MerchantCredentials().GetMerchantCredential(ctx, tenantID, portalID)
		if err != nil {
			slogx.FromContext(ctx).Warn("reload rotated credential failed",
				slog.String("tenant_id", tenantID),
				slog.String("portal_id", portalID),
				slog.Any("error", err),
			)
		} else {
			cred = stored
		}
	}
	return cred, replaced, nil
}

// RetrieveMerchantCredential unseals the credential for (tenant, portal).
// Callers outside the tenant are refused unless their role is cross-tenant.
func (s *CredentialService) RetrieveMerchantCredential(
	ctx context.Context,
	caller domain.Principal,
	tenantID, portalID string,
) (domain.PortalSecret, error) {
	ev := actorEvent(caller, domain.ActionCredentialRead, credentialResource(tenantID, portalID))
	ev.TenantID = tenantID

	secret, err := s.retrieveMerchantCredential(ctx, caller, tenantID, portalID)
	record(ctx, s.Audit, withOutcome(ev, err))
	return secret, err
}

func (s *CredentialService) retrieveMerchantCredential(
	ctx context.Context,
	caller domain.Principal,
	tenantID, portalID string,
) (domain.PortalSecret, error) {
	if err := checkTenant(caller, tenantID, domain.ErrAccessDenied); err != nil {
		return domain.PortalSecret{}, err
	}

	cred, err := s.Store.MerchantCredentials().GetMerchantCredential(ctx, tenantID, portalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.PortalSecret{}, domain.ErrNotFound
		}
		return domain.PortalSecret{}, fmt.Errorf("load credential: %w", err)
	}
	return s.open(cred)
}

// DeleteMerchantCredential destroys a stored credential (tenant offboarding).
func (s *CredentialService) DeleteMerchantCredential(ctx context.Context, caller domain.Principal, tenantID, portalID string) error {
	ev := actorEvent(caller, domain.ActionCredentialDelete, credentialResource(tenantID, portalID))
	ev.TenantID = tenantID

	err := checkTenant(caller, tenantID, domain.ErrAccessDenied)
	if err == nil {
		err = s.Store.MerchantCredentials().DeleteMerchantCredential(ctx, tenantID, portalID)
		if errors.Is(err, store.ErrNotFound) {
			err = domain.ErrNotFound
		} else if err != nil {
			err = fmt.Errorf("delete credential: %w", err)
		}
	}
	record(ctx, s.Audit, withOutcome(ev, err))
	return err
}

// ResealMerchantCredentials re-encrypts every credential that was sealed
// with a key other than the primary sealing key. It returns how many
// credentials were rewritten.
func (s *CredentialService) ResealMerchantCredentials(ctx context.Context) (int, error) {
	l := slogx.FromContext(ctx)
	primary := s.Sealer.Primary()

	stale, err := s.Store.MerchantCredentials().ListMerchantCredentialsNotSealedWith(ctx, primary)
	if err != nil {
		return 0, fmt.Errorf("list credentials: %w", err)
	}

	resealed := 0
	for _, listed := range stale {
		ok, err := s.resealMerchantCredential(ctx, primary, listed.TenantID, listed.PortalID)
		if err != nil {
			return resealed, err
		}
		if ok {
			resealed++
		}
	}

	if resealed > 0 {
		l.Info("resealed merchant credentials", slog.Int("count", resealed), slog.String("key_ref", primary))
	}
	ev := actorEvent(systemActor, domain.ActionCredentialsReseal, "sealing_key:"+primary)
	record(ctx, s.Audit, ev)
	return resealed, nil
}

// resealMerchantCredential re-reads one credential and rewrites it under
// primary in a single transaction. A credential rotated or deleted since it
// was listed is left alone.
func (s *CredentialService) resealMerchantCredential(ctx context.Context, primary, tenantID, portalID string) (bool, error) {
	resealed := false
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		creds := tx.MerchantCredentials()
		cred, err := creds.GetMerchantCredential(ctx, tenantID, portalID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load credential: %w", err)
		}
		if cred.KeyRef == primary {
			return nil
		}

		aad := credentialAAD(cred.TenantID, cred.PortalID)
		plaintext, err := s.Sealer.Open(cred.Ciphertext, cred.KeyRef, aad)
		if err != nil {
			return fmt.Errorf("open credential %s: %w", cred.ID, err)
		}
		next := cred
		next.Ciphertext, next.KeyRef, err = s.Sealer.Seal(plaintext, aad)
		if err != nil {
			return fmt.Errorf("seal credential %s: %w", cred.ID, err)
		}
		next.UpdatedAt = clock(s.Now)

		err = creds.ResealMerchantCredential(ctx, next, cred.KeyRef, cred.UpdatedAt)
		if errors.Is(err, store.ErrNotFound) {
			slogx.FromContext(ctx).Info("credential changed during reseal; skipped",
				slog.String("tenant_id", tenantID), slog.String("portal_id", portalID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("store credential %s: %w", cred.ID, err)
		}
		resealed = true
		return nil
	})
	return resealed, err
}

func (s *CredentialService) open(cred domain.MerchantCredential) (domain.PortalSecret, error) {
	plaintext, err := s.Sealer.Open(cred.Ciphertext, cred.KeyRef, credentialAAD(cred.TenantID, cred.PortalID))
	if err != nil {
		return domain.PortalSecret{}, fmt.Errorf("open credential %s: %w", cred.ID, err)
	}
	var secret domain.PortalSecret
	if err := json.Unmarshal(plaintext, &secret); err != nil {
		return domain.PortalSecret{}, fmt.Errorf("decode credential %s: %w", cred.ID, err)
	}
	return secret, nil
}

// checkTenant refuses callers outside tenantID unless their role spans
// tenants.
func checkTenant(caller domain.Principal, tenantID string, refusal *domain.Error) error {
	if caller.Role.CrossTenant() || caller.TenantID == tenantID {
		return nil
	}
	return refusal
}

// checkGrant refuses granting super_admin to anyone but a super admin.
func checkGrant(actor domain.Principal, role domain.Role) error {
	if role.CrossTenant() && !actor.Role.CrossTenant() {
		return domain.ErrForbidden
	}
	return nil
}

func credentialAAD(tenantID, portalID string) []byte {
	return []byte(tenantID + "|" + portalID)
}

func credentialResource(tenantID, portalID string) string {
	return "credential:" + tenantID + "/" + portalID
}
