package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/mail"
	"strings"

	"learnjs_backend/internal/domain"
	"learnjs_backend/internal/logger"
	"learnjs_backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxNameLength     = 100

	referralAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxReferralAttempts = 5
)

type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	ReferralCode string
}

type AuthResult struct {
	Token    string          `json:"token"`
	User     *domain.User    `json:"user"`
	Referral *ReferralResult `json:"referral,omitempty"`
	// ReferralError explains why a code given at signup was not applied.
	ReferralError string `json:"referral_error,omitempty"`
}

// RequestInfo carries client details for the audit trail.
type RequestInfo struct {
	IP        string
	UserAgent string
}

type AccountService struct {
	store     repository.Store
	ledger    *LedgerService
	referrals *ReferralService
	audit     *AuditService
	hashCost  int
}

func NewAccountService(store repository.Store, ledger *LedgerService, referrals *ReferralService, audit *AuditService) *AccountService {
	return &AccountService{
		store:     store,
		ledger:    ledger,
		referrals: referrals,
		audit:     audit,
		hashCost:  bcrypt.DefaultCost,
	}
}

// SetHashCost overrides the bcrypt cost. Values outside bcrypt's range are ignored.
func (s *AccountService) SetHashCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		s.hashCost = cost
	}
}

// GenerateReferralCode returns a random uppercase alphanumeric code.
func GenerateReferralCode() (string, error) {
	b := make([]byte, domain.ReferralCodeLength)
	size := big.NewInt(int64(len(referralAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b[i] = referralAlphabet[n.Int64()]
	}
	return string(b), nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.NewValidationError("name", "is required")
	}
	if len([]rune(name)) > MaxNameLength {
		return "", domain.NewValidationError("name", "must be at most 100 characters")
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "", domain.NewValidationError("email", "must be a valid email address")
	}
	return email, nil
}

// Register creates the account with its welcome bonus in one transaction.
// A referral code is applied afterwards; if it is rejected the account
// still exists and the reason is reported in the result.
func (s *AccountService) Register(ctx context.Context, in RegisterInput, req RequestInfo) (*AuthResult, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domain.NewValidationError("password", "must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	var (
		user    *domain.User
		welcome *domain.Transaction
	)
	for attempt := 0; attempt < maxReferralAttempts; attempt++ {
		code, err := GenerateReferralCode()
		if err != nil {
			return nil, err
		}
		user = &domain.User{Name: name, Email: email, PasswordHash: string(hash), ReferralCode: code}
		welcome = &domain.Transaction{Type: domain.TransactionReward, Note: "Welcome bonus"}

		err = s.store.WithTx(ctx, func(r *repository.Repos) error {
			if err := r.Users.Create(ctx, user); err != nil {
				return err
			}
			user.Coins, err = s.ledger.CreditWithTx(ctx, r, user.ID, domain.WelcomeBonus, welcome)
			if err != nil {
				return err
			}
			return r.Audit.Create(ctx, &domain.AuditLog{
				UserID:    user.ID,
				Action:    domain.AuditActionRegister,
				Category:  domain.AuditCategoryAuth,
				IP:        req.IP,
				UserAgent: req.UserAgent,
			})
		})
		if errors.Is(err, repository.ErrReferralCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		break
	}
	if user.ID == 0 {
		return nil, errors.New("could not allocate a unique referral code")
	}
	observeTransactions(welcome)
	logger.WithContext(ctx).Info("user registered", "user_id", user.ID)

	res := &AuthResult{User: user}
	if code := strings.TrimSpace(in.ReferralCode); code != "" {
		ref, err := s.referrals.Process(ctx, code, user.ID)
		if err != nil {
			logger.WithContext(ctx).Warn("referral not applied at signup", "user_id", user.ID, "error", err)
			s.audit.Log(ctx, user.ID, domain.AuditActionReferralFailed, domain.AuditCategoryReferral, map[string]interface{}{
				"referral_code": code,
				"error":         err.Error(),
			})
			res.ReferralError = err.Error()
		} else {
			res.Referral = ref
			if user, err = s.store.Repos().Users.GetByID(ctx, user.ID); err != nil {
				return nil, err
			}
			res.User = user
		}
	}

	res.Token, err = GenerateJWT(user.ID, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Login checks the password and issues a fresh token.
func (s *AccountService) Login(ctx context.Context, email, password string, req RequestInfo) (*AuthResult, error) {
	repos := s.store.Repos()
	u, err := repos.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !u.HasPassword() || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if err := repos.Users.Touch(ctx, u.ID); err != nil {
		logger.WithContext(ctx).Warn("failed to update last_active", "user_id", u.ID, "error", err)
	}
	s.audit.LogLogin(ctx, u.ID, req.IP, req.UserAgent)

	token, err := GenerateJWT(u.ID, u.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *AccountService) Me(ctx context.Context, userID int64) (*domain.User, error) {
	return s.store.Repos().Users.GetByID(ctx, userID)
}

func (s *AccountService) UpdateName(ctx context.Context, userID int64, name string) (*domain.User, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	repos := s.store.Repos()
	if err := repos.Users.UpdateName(ctx, userID, name); err != nil {
		return nil, err
	}
	return repos.Users.GetByID(ctx, userID)
}

// EnsureAdmin creates an admin account or promotes and re-keys an existing one.
func (s *AccountService) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, domain.NewValidationError("password", "must be at least 8 characters")
	}

	repos := s.store.Repos()
	u, err := repos.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		res, err := s.Register(ctx, RegisterInput{Name: name, Email: email, Password: password}, RequestInfo{})
		if err != nil {
			return nil, err
		}
		u = res.User
	case err != nil:
		return nil, err
	default:
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
		if err != nil {
			return nil, err
		}
		if err := repos.Users.SetPasswordHash(ctx, u.ID, string(hash)); err != nil {
			return nil, err
		}
	}

	if err := repos.Users.SetAdmin(ctx, u.ID, true); err != nil {
		return nil, err
	}
	return repos.Users.GetByID(ctx, u.ID)
}
