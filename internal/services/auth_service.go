package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/morchidhub/guide-backend/internal/database"
	"github.com/morchidhub/guide-backend/internal/models"
	"github.com/morchidhub/guide-backend/pkg/jwt"
	"github.com/morchidhub/guide-backend/pkg/validator"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 6

// MinimumAge is the youngest a user may be at registration
const MinimumAge = 18

// UserAccountStore is the persistence the auth workflow needs
type UserAccountStore interface {
	Create(ctx context.Context, user *models.User, guide *models.GuideProfile) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
}

// RefreshTokenStore persists issued refresh tokens
type RefreshTokenStore interface {
	Store(ctx context.Context, userID uuid.UUID, token, ipAddress, userAgent string, expiresAt time.Time) error
	Get(ctx context.Context, token string) (*models.RefreshToken, error)
	MarkUsed(ctx context.Context, token string) error
	Revoke(ctx context.Context, token string) error
}

// LoginLimiter throttles repeated login attempts
type LoginLimiter interface {
	CheckLoginRateLimit(ctx context.Context, email, ip string) error
	RecordLoginAttempt(ctx context.Context, email, ip string) error
	ResetEmail(ctx context.Context, email string) error
}

// RegisterInput is a new account request
type RegisterInput struct {
	FullName    string
	Email       string
	Phone       string
	DateOfBirth string // YYYY-MM-DD or YYYY
	Role        string
	Password    string
	Guide       *GuideDetails
}

// ClientInfo describes where a request came from
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// TokenPair is returned on login and refresh
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"user"`
}

var birthDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// AuthService handles registration and credential-based authentication
type AuthService struct {
	users        UserAccountStore
	tokens       RefreshTokenStore
	limiter      LoginLimiter
	jwtService   *jwt.Service
	phones       *validator.PhoneValidator
	validate     *playground.Validate
	bcryptCost   int
	accessExpiry time.Duration
	refreshTTL   time.Duration
	logger       logrus.FieldLogger
	now          func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users UserAccountStore,
	tokens RefreshTokenStore,
	limiter LoginLimiter,
	jwtService *jwt.Service,
	bcryptCost int,
	accessExpiry time.Duration,
	refreshTTL time.Duration,
	logger logrus.FieldLogger,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		limiter:      limiter,
		jwtService:   jwtService,
		phones:       validator.NewPhoneValidator(),
		validate:     playground.New(),
		bcryptCost:   bcryptCost,
		accessExpiry: accessExpiry,
		refreshTTL:   refreshTTL,
		logger:       logger,
		now:          time.Now,
	}
}

// Register creates a tourist or guide account. Guide accounts get a guide
// profile in pending_approval, created in the same transaction.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, *models.GuideProfile, error) {
	fullName := strings.TrimSpace(input.FullName)
	if n := utf8.RuneCountInString(fullName); n < 3 || n > 100 {
		return nil, nil, &ValidationError{Field: "full_name", Message: "Full name must be between 3 and 100 characters"}
	}

	email := normalizeEmail(input.Email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, nil, &ValidationError{Field: "email", Message: "Invalid email address"}
	}

	phone, err := s.phones.Validate(input.Phone)
	if err != nil {
		return nil, nil, &ValidationError{Field: "phone", Message: err.Error()}
	}

	birthDate, err := normalizeBirthDate(input.DateOfBirth, s.now())
	if err != nil {
		return nil, nil, err
	}

	if input.Role != models.RoleTourist && input.Role != models.RoleGuide {
		return nil, nil, &ValidationError{Field: "role", Message: "Role must be tourist or guide"}
	}

	if err := checkPasswordStrength(input.Password); err != nil {
		return nil, nil, err
	}

	var guide *models.GuideProfile
	if input.Role == models.RoleGuide {
		if input.Guide == nil {
			return nil, nil, &ValidationError{Field: "guide_details", Message: "Guide details are required for the guide role"}
		}
		details, err := input.Guide.normalize()
		if err != nil {
			return nil, nil, err
		}
		guide = &models.GuideProfile{}
		details.applyTo(guide)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		FullName:     fullName,
		Email:        email,
		Phone:        models.NewNullString(phone),
		DateOfBirth:  models.NewNullString(birthDate),
		PasswordHash: string(hash),
		Role:         input.Role,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user, guide); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, nil, &ConflictError{Code: "EMAIL_ALREADY_EXISTS", Message: "An account with this email already exists"}
		}
		return nil, nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("User registered")

	return user, guide, nil
}

// Login authenticates a user by email and password and issues tokens
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*TokenPair, error) {
	email = normalizeEmail(email)

	if err := s.limiter.CheckLoginRateLimit(ctx, email, client.IPAddress); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		if err := s.limiter.RecordLoginAttempt(ctx, email, client.IPAddress); err != nil {
			s.logger.WithError(err).Warn("Failed to record login attempt")
		}
		return nil, &AuthenticationError{Message: "Invalid email or password"}
	}

	if !user.IsActive {
		return nil, &AuthorizationError{Message: "Account is deactivated"}
	}

	pair, err := s.issueTokens(ctx, user, client)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to update last login")
	}
	if err := s.limiter.ResetEmail(ctx, email); err != nil {
		s.logger.WithError(err).Warn("Failed to reset login rate limit")
	}

	return pair, nil
}

// Refresh issues a new access token from a valid, unrevoked refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, &AuthenticationError{Message: "Invalid refresh token"}
	}

	stored, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &AuthenticationError{Message: "Refresh token not found"}
		}
		return nil, err
	}
	if stored.Revoked {
		return nil, &AuthenticationError{Message: "Refresh token has been revoked"}
	}
	if s.now().After(stored.ExpiresAt) {
		return nil, &AuthenticationError{Message: "Refresh token has expired"}
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &AuthenticationError{Message: "User not found"}
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, &AuthorizationError{Message: "Account is deactivated"}
	}

	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.Roles())
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.tokens.MarkUsed(ctx, refreshToken); err != nil {
		s.logger.WithError(err).Warn("Failed to update refresh token last use")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessExpiry.Seconds()),
		User:         user,
	}, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	return nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User, client ClientInfo) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, user.Roles())
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	expiresAt := s.now().Add(s.refreshTTL)
	if err := s.tokens.Store(ctx, user.ID, refreshToken, client.IPAddress, client.UserAgent, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.accessExpiry.Seconds()),
		User:         user,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength),
		}
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return &ValidationError{Field: "password", Message: "Password must contain at least one letter and one digit"}
	}
	return nil
}

// normalizeBirthDate accepts YYYY-MM-DD or a bare year, which becomes January 1st
func normalizeBirthDate(value string, now time.Time) (string, error) {
	value = strings.TrimSpace(value)
	invalid := &ValidationError{Field: "date_of_birth", Message: "Date of birth must be YYYY-MM-DD or YYYY"}

	var born time.Time
	switch {
	case len(value) == 4:
		year, err := strconv.Atoi(value)
		if err != nil {
			return "", invalid
		}
		born = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	case birthDateRegex.MatchString(value):
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return "", invalid
		}
		born = t
	default:
		return "", invalid
	}

	if born.Year() < now.Year()-100 {
		return "", invalid
	}
	if born.AddDate(MinimumAge, 0, 0).After(now) {
		return "", &ValidationError{Field: "date_of_birth", Message: fmt.Sprintf("You must be at least %d years old", MinimumAge)}
	}

	return born.Format("2006-01-02"), nil
}
