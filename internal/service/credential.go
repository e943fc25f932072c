package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"videotube/internal/assets"
	"videotube/internal/config"
	"videotube/internal/logging"
	"videotube/internal/metrics"
	"videotube/internal/model"
	"videotube/internal/repository"
	"videotube/internal/token"
	"videotube/internal/validation"
)

// CredentialService handles registration, login and refresh rotation with reuse detection.
type CredentialService struct {
	accounts repository.AccountRepository
	sessions repository.SessionRepository
	signer   *token.Signer
	assets   assets.Host // nil when uploads are not configured
	config   *config.Config

	hashCost int
	now      func() time.Time
}

func NewCredentialService(
	accounts repository.AccountRepository,
	sessions repository.SessionRepository,
	signer *token.Signer,
	host assets.Host,
	cfg *config.Config,
) *CredentialService {
	return &CredentialService{
		accounts: accounts,
		sessions: sessions,
		signer:   signer,
		assets:   host,
		config:   cfg,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

var errUploadsDisabled = model.NewError(model.ErrInvalidOperation, "file uploads are not configured")

// Register creates an account. Avatar and cover files, when given, are uploaded
// first and removed again if the account cannot be stored.
func (s *CredentialService) Register(ctx context.Context, in model.RegisterInput) (*model.Account, error) {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)

	if err := validation.ValidateStruct(in); err != nil {
		return nil, err
	}

	exists, err := s.accounts.ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check account exists: %w", err)
	}
	if exists {
		return nil, model.ErrAccountExists
	}

	var uploaded []string
	cleanup := func() {
		for _, url := range uploaded {
			if err := s.assets.Delete(context.WithoutCancel(ctx), url); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("url", url).Msg("failed to remove orphaned upload")
			}
		}
	}

	avatarURL, err := s.upload(ctx, in.AvatarPath, assets.KindAvatar)
	if err != nil {
		return nil, err
	}
	if avatarURL != nil {
		uploaded = append(uploaded, *avatarURL)
	} else if s.config.DefaultAvatarURL != "" {
		def := s.config.DefaultAvatarURL
		avatarURL = &def
	}

	coverURL, err := s.upload(ctx, in.CoverPath, assets.KindCover)
	if err != nil {
		cleanup()
		return nil, err
	}
	if coverURL != nil {
		uploaded = append(uploaded, *coverURL)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{
		Username:       in.Username,
		Email:          in.Email,
		FullName:       in.FullName,
		PasswordHashed: string(hash),
		AvatarURL:      avatarURL,
		CoverURL:       coverURL,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		cleanup()
		metrics.RecordAuthEvent("register", err)
		if errors.Is(err, model.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	metrics.RecordAuthEvent("register", nil)
	logging.Ctx(ctx).Info().Str("account_id", account.ID.String()).Msg("account registered")
	return account, nil
}

func (s *CredentialService) upload(ctx context.Context, path string, kind assets.Kind) (*string, error) {
	if path == "" {
		return nil, nil
	}
	if s.assets == nil {
		return nil, errUploadsDisabled
	}
	url, err := s.assets.Upload(ctx, path, kind)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", kind, err)
	}
	return &url, nil
}

// Authenticate verifies a username-or-email and password and opens a new session.
// Older sessions beyond MaxSessionsPerAccount are evicted.
func (s *CredentialService) Authenticate(ctx context.Context, identifier, password string, client model.ClientInfo) (*model.LoginResult, error) {
	result, err := s.authenticate(ctx, identifier, password, client)
	metrics.RecordAuthEvent("login", err)
	return result, err
}

func (s *CredentialService) authenticate(ctx context.Context, identifier, password string, client model.ClientInfo) (*model.LoginResult, error) {
	err := validation.ValidateStruct(model.LoginRequest{Identifier: strings.TrimSpace(identifier), Password: password})
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHashed), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	tokens, err := s.openSession(ctx, account, client)
	if err != nil {
		return nil, err
	}

	evicted, err := s.sessions.Trim(ctx, account.ID, s.config.MaxSessionsPerAccount)
	if err != nil {
		return nil, fmt.Errorf("trim sessions: %w", err)
	}
	if evicted > 0 {
		logging.Ctx(ctx).Debug().Str("account_id", account.ID.String()).Int64("evicted", evicted).Msg("older sessions evicted")
	}

	return &model.LoginResult{Account: account, Tokens: tokens}, nil
}

func (s *CredentialService) openSession(ctx context.Context, account *model.Account, client model.ClientInfo) (*model.TokenPair, error) {
	sessionID := uuid.New()

	refresh, expiresAt, err := s.signer.IssueRefresh(account.ID, sessionID)
	if err != nil {
		return nil, err
	}
	access, err := s.signer.IssueAccess(account.ID, account.Username)
	if err != nil {
		return nil, err
	}

	sess := &model.Session{
		ID:        sessionID,
		AccountID: account.ID,
		TokenHash: token.Hash(refresh),
		ExpiresAt: expiresAt,
	}
	if client.DeviceInfo != "" {
		sess.DeviceInfo = &client.DeviceInfo
	}
	if client.IPAddress != "" {
		sess.IPAddress = &client.IPAddress
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	return s.pair(access, refresh), nil
}

func (s *CredentialService) pair(access, refresh string) *model.TokenPair {
	return &model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.signer.AccessTTL().Seconds()),
	}
}

// Refresh rotates the session named by the refresh token. Presenting a token
// that is no longer the session's current one revokes every session of the account.
func (s *CredentialService) Refresh(ctx context.Context, refreshToken string, client model.ClientInfo) (*model.TokenPair, error) {
	pair, err := s.refresh(ctx, refreshToken, client)
	metrics.RecordAuthEvent("refresh", err)
	return pair, err
}

func (s *CredentialService) refresh(ctx context.Context, raw string, client model.ClientInfo) (*model.TokenPair, error) {
	if err := validation.ValidateStruct(model.RefreshRequest{RefreshToken: raw}); err != nil {
		return nil, err
	}

	accountID, sessionID, err := s.signer.ParseRefresh(raw)
	if err != nil {
		return nil, err
	}

	log := logging.Ctx(ctx).With().
		Str("account_id", accountID.String()).
		Str("session_id", sessionID.String()).
		Logger()

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, model.ErrSessionNotFound) {
		// Logged out, evicted or revoked
		return nil, model.ErrRefreshTokenReused
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.AccountID != accountID {
		return nil, model.ErrTokenInvalid
	}
	if sess.IsExpired(s.now()) {
		return nil, model.ErrTokenExpired
	}

	if !token.HashMatches(raw, sess.TokenHash) {
		log.Warn().Msg("refresh token reuse detected, revoking all sessions")
		if err := s.sessions.DeleteAllForAccount(ctx, accountID); err != nil {
			log.Error().Err(err).Msg("failed to revoke sessions after reuse")
		}
		return nil, model.ErrRefreshTokenReused
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.ErrTokenInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	next, expiresAt, err := s.signer.IssueRefresh(accountID, sessionID)
	if err != nil {
		return nil, err
	}
	swapped, err := s.sessions.Rotate(ctx, sessionID, sess.TokenHash, token.Hash(next), expiresAt)
	if err != nil {
		return nil, fmt.Errorf("rotate session: %w", err)
	}
	if !swapped {
		// A concurrent refresh of the same token won.
		return nil, model.ErrRefreshTokenReused
	}

	access, err := s.signer.IssueAccess(accountID, account.Username)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("device", client.DeviceInfo).Msg("session rotated")
	return s.pair(access, next), nil
}

// Logout ends every session of the account.
func (s *CredentialService) Logout(ctx context.Context, accountID uuid.UUID) error {
	if err := s.sessions.DeleteAllForAccount(ctx, accountID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	metrics.RecordAuthEvent("logout", nil)
	return nil
}

func (s *CredentialService) ChangePassword(ctx context.Context, accountID uuid.UUID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" || len(newPassword) < model.MinPasswordLength {
		return model.ErrPasswordTooShort
	}
	err := validation.ValidateStruct(model.ChangePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword})
	if err != nil {
		return err
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHashed), []byte(oldPassword)); err != nil {
		metrics.RecordAuthEvent("change_password", model.ErrInvalidCredentials)
		return model.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.accounts.UpdatePasswordHash(ctx, accountID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if s.config.RevokeSessionsOnPasswordChange {
		if err := s.sessions.DeleteAllForAccount(ctx, accountID); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}

	metrics.RecordAuthEvent("change_password", nil)
	return nil
}

// CurrentAccount returns the authenticated account's own profile.
func (s *CredentialService) CurrentAccount(ctx context.Context, accountID uuid.UUID) (*model.Account, error) {
	return s.accounts.GetByID(ctx, accountID)
}
