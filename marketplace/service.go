package marketplace

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// SignUpInput is the provider registration payload.
type SignUpInput struct {
	Name            string  `form:"name" json:"name"`
	Email           string  `form:"email" json:"email"`
	Password        string  `form:"password" json:"password"`
	Phone           string  `form:"phone" json:"phone"`
	Address         string  `form:"address" json:"address"`
	StateID         string  `form:"state_id" json:"state_id"`
	CityID          string  `form:"city_id" json:"city_id"`
	ServiceDistance float64 `form:"service_distance" json:"service_distance"`
	Latitude        float64 `form:"latitude" json:"latitude"`
	Longitude       float64 `form:"longitude" json:"longitude"`
}

// Validate runs the field rules.
func (r SignUpInput) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.Phone, validation.Required, validation.By(ValidatePhoneNumber)),
		validation.Field(&r.Address, validation.Required),
		validation.Field(&r.StateID, validation.Required, is.UUID),
		validation.Field(&r.CityID, validation.Required, is.UUID),
		validation.Field(&r.ServiceDistance, validation.Required, validation.By(validatePositive("service distance"))),
		validation.Field(&r.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&r.Longitude, validation.Min(-180.0), validation.Max(180.0)),
	)
}

// ValidatePhoneNumber accepts any number phonenumbers can parse as a
// valid subscriber number.
func ValidatePhoneNumber(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return goerrors.New("phone is required", goerrors.CategoryValidation)
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return goerrors.New("invalid phone format", goerrors.CategoryValidation)
	}

	if !phonenumbers.IsValidNumber(num) {
		return goerrors.New("invalid phone format", goerrors.CategoryValidation)
	}

	return nil
}

func validatePositive(label string) validation.RuleFunc {
	return func(value any) error {
		v, _ := value.(float64)
		if v <= 0 {
			return goerrors.New(label+" must be greater than 0", goerrors.CategoryValidation)
		}
		return nil
	}
}

// ProviderService implements the provider lifecycle: sign up, email
// verification, and password recovery.
type ProviderService struct {
	repo      portal.RepositoryManager
	providers Providers
	mailer    Mailer
	logger    portal.Logger
}

func NewProviderService(repo portal.RepositoryManager, providers Providers, mailer Mailer) *ProviderService {
	return &ProviderService{
		repo:      repo,
		providers: providers,
		mailer:    mailer,
		logger:    portal.NewDefaultLogger(),
	}
}

func (s *ProviderService) WithLogger(logger portal.Logger) *ProviderService {
	s.logger = logger
	return s
}

// SignUp creates the credential row and the provider profile in one
// transaction, then emails the verification code. A duplicate email
// aborts before anything is written.
func (s *ProviderService) SignUp(ctx context.Context, input SignUpInput) (*Provider, error) {
	otp, err := GenerateOTP()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate verification code")
	}

	hash, err := portal.HashPassword(input.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	provider := &Provider{}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if existing, err := s.providers.GetByEmailTx(ctx, tx, input.Email); err == nil && existing != nil {
			return portal.ErrDuplicateEmail
		} else if err != nil && !goerrors.IsNotFound(err) {
			return portal.StoreError(err)
		}

		user := &portal.User{
			Name:         input.Name,
			Username:     input.Email,
			PasswordHash: hash,
			Role:         portal.RoleMechanic,
			IsActive:     true,
		}

		if id, err := hashid.NewUUID(input.Email); err == nil {
			user.ID = id
		}

		user, err := s.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create provider user")
		}

		now := time.Now()
		provider.UserID = user.ID
		provider.Name = input.Name
		provider.Email = input.Email
		provider.Phone = input.Phone
		provider.Address = input.Address
		provider.ServiceDistance = input.ServiceDistance
		provider.Latitude = input.Latitude
		provider.Longitude = input.Longitude
		provider.OTP = otp
		provider.OTPCreatedAt = &now

		if stateID, err := parseUUID(input.StateID); err == nil {
			provider.StateID = stateID
		}
		if cityID, err := parseUUID(input.CityID); err == nil {
			provider.CityID = cityID
		}

		if provider, err = s.providers.CreateTx(ctx, tx, provider); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create provider")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "provider registration transaction failed")
	}

	if err := s.mailer.SendOTP(ctx, provider.Email, provider.Name, otp); err != nil {
		s.logger.Error("send OTP email", "error", err, "email", provider.Email)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "Failed to send OTP email").
			WithCode(goerrors.CodeInternal)
	}

	return provider, nil
}

// VerifyOTP checks the emailed code and marks the provider verified.
func (s *ProviderService) VerifyOTP(ctx context.Context, email, otp string) error {
	provider, err := s.providers.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("Provider not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return portal.StoreError(err)
	}

	if provider.IsVerified {
		return nil
	}

	if provider.OTP == "" || provider.OTP != otp {
		return goerrors.New("Invalid OTP", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if IsOTPExpired(provider.OTPCreatedAt) {
		return goerrors.New("OTP has expired", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if err := s.providers.MarkVerified(ctx, provider.ID); err != nil {
		return portal.StoreError(err)
	}

	return nil
}

// ForgotPassword reissues a code and mails it. The stored code restarts
// the expiry window.
func (s *ProviderService) ForgotPassword(ctx context.Context, email string) error {
	provider, err := s.providers.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("User not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return portal.StoreError(err)
	}

	otp, err := GenerateOTP()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset code")
	}

	if err := s.providers.SetOTP(ctx, provider.ID, otp); err != nil {
		return portal.StoreError(err)
	}

	if err := s.mailer.SendPasswordReset(ctx, provider.Email, provider.Name, otp); err != nil {
		s.logger.Error("send password reset email", "error", err, "email", provider.Email)
		return goerrors.Wrap(err, goerrors.CategoryInternal, "Failed to send password reset email").
			WithCode(goerrors.CodeInternal)
	}

	return nil
}

// ResetPassword validates email plus code and replaces the credential.
func (s *ProviderService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	provider, err := s.providers.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return goerrors.New("User not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return portal.StoreError(err)
	}

	if provider.OTP == "" || provider.OTP != otp {
		return goerrors.New("Invalid OTP", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	if IsOTPExpired(provider.OTPCreatedAt) {
		return goerrors.New("OTP has expired", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := portal.HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	if err := s.repo.Users().ResetPassword(ctx, provider.UserID, hash); err != nil {
		return portal.StoreError(err)
	}

	if err := s.providers.ClearOTP(ctx, provider.ID); err != nil {
		return portal.StoreError(err)
	}

	return nil
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}
