package businessflow

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmsu/prior-art-portal/app/dto"
	"github.com/mmsu/prior-art-portal/app/services"
	"github.com/mmsu/prior-art-portal/models"
	"github.com/mmsu/prior-art-portal/repository"
	"github.com/mmsu/prior-art-portal/utils"
	"gorm.io/gorm"
)

// AuthFlow handles registration, login and disclaimer acceptance
type AuthFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.LoginResponse, error)
	AcceptDisclaimer(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.AcceptDisclaimerResponse, error)
	GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error)
}

// AuthFlowImpl implements the authentication business flow
type AuthFlowImpl struct {
	userRepo       repository.UserRepository
	ledgerRepo     repository.CreditTransactionRepository
	auditRepo      repository.AuditLogRepository
	tokenService   services.TokenService
	captchaService services.CaptchaService
	db             *gorm.DB
}

// NewAuthFlow creates a new auth flow instance
func NewAuthFlow(
	userRepo repository.UserRepository,
	ledgerRepo repository.CreditTransactionRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	captchaService services.CaptchaService,
	db *gorm.DB,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		auditRepo:      auditRepo,
		tokenService:   tokenService,
		captchaService: captchaService,
		db:             db,
	}
}

// Register creates a Pending account with the default credit grant. The
// account cannot log in until an administrator approves it.
func (f *AuthFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	if err := f.validateRegisterRequest(ctx, req); err != nil {
		return nil, NewBusinessError("REGISTRATION_VALIDATION_FAILED", "Registration validation failed", err)
	}

	var user *models.User

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		user = &models.User{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: string(hashedPassword),
			Institution:  req.Institution,
			Phone:        req.Phone,
			Role:         models.RoleRegular,
			Credits:      0,
			Status:       models.UserStatusPending,
			CreatedAt:    utils.UTCNow(),
			UpdatedAt:    utils.UTCNow(),
		}
		if err := f.userRepo.Save(txCtx, user); err != nil {
			return err
		}

		// Initial credit grant goes through the ledger so the first entry's
		// balance_after already matches the stored balance.
		_, err = creditCredits(txCtx, f.userRepo, f.ledgerRepo, user, utils.DefaultCredits, models.CreditKindGrant, "Initial credit grant")
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Registration failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionUserRegistered, "user", nil, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("REGISTRATION_FAILED", "Registration failed", err)
	} else {
		msg := fmt.Sprintf("User registered: %d", user.ID)
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionUserRegistered, "user", &user.ID, msg, true, nil, metadata)
	}

	return &dto.RegisterResponse{
		Message: "Registration received. Your account is pending approval.",
		UserID:  user.ID,
		Status:  string(user.Status),
		Credits: user.Credits,
	}, nil
}

// Login authenticates an active account and issues JWT tokens
func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	user, err := f.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}
	if user == nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		errMsg := "Invalid password"
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionLoginFailed, "user", &user.ID, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrInvalidCredentials)
	}

	if !user.IsActive() {
		errMsg := fmt.Sprintf("Account status is %s", user.Status)
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionLoginFailed, "user", &user.ID, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", ErrAccountNotActive)
	}

	accessToken, refreshToken, err := f.tokenService.GenerateTokens(user.ID, string(user.Role))
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	_ = f.userRepo.UpdateLastSeen(ctx, user.ID, utils.UTCNow())

	msg := fmt.Sprintf("User logged in: %d", user.ID)
	_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionUserLogin, "user", &user.ID, msg, true, nil, metadata)

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
		User:         ToUserDTO(*user),
	}, nil
}

// RefreshToken exchanges a refresh token for a new token pair
func (f *AuthFlowImpl) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.LoginResponse, error) {
	accessToken, refreshToken, err := f.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	claims, err := f.tokenService.ValidateToken(accessToken)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	user, err := getActiveUser(ctx, f.userRepo, claims.UserID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_REFRESH_FAILED", "Token refresh failed", err)
	}

	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    utils.AccessTokenTTLSeconds,
		User:         ToUserDTO(*user),
	}, nil
}

// AcceptDisclaimer records the one-time legal disclaimer acceptance. The
// portal rejects submissions from accounts that have not accepted it.
func (f *AuthFlowImpl) AcceptDisclaimer(ctx context.Context, userID uint, metadata *ClientMetadata) (*dto.AcceptDisclaimerResponse, error) {
	var user *models.User
	acceptedAt := utils.UTCNow()

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		user, err = getActiveUser(txCtx, f.userRepo, userID)
		if err != nil {
			return err
		}
		if user.DisclaimerAccepted {
			return ErrDisclaimerAlreadyAccepted
		}

		return f.userRepo.UpdateDisclaimer(txCtx, userID, acceptedAt)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Disclaimer acceptance failed: %s", err.Error())
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionDisclaimerAccepted, "user", &userID, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("DISCLAIMER_FAILED", "Disclaimer acceptance failed", err)
	} else {
		msg := fmt.Sprintf("Disclaimer accepted: %d", userID)
		_ = createAuditLog(ctx, f.auditRepo, user, models.AuditActionDisclaimerAccepted, "user", &userID, msg, true, nil, metadata)
	}

	return &dto.AcceptDisclaimerResponse{
		Message:    "Disclaimer accepted",
		AcceptedAt: acceptedAt.Format(time.RFC3339),
	}, nil
}

// GetProfile returns the caller's account details
func (f *AuthFlowImpl) GetProfile(ctx context.Context, userID uint) (*dto.UserDTO, error) {
	user, err := f.userRepo.ByID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_FAILED", "Failed to load profile", err)
	}
	if user == nil {
		return nil, NewBusinessError("PROFILE_FAILED", "Failed to load profile", ErrUserNotFound)
	}

	d := ToUserDTO(*user)
	return &d, nil
}

// Private helper methods

func (f *AuthFlowImpl) validateRegisterRequest(ctx context.Context, req *dto.RegisterRequest) error {
	if f.captchaService != nil {
		if !f.captchaService.VerifyRotate(ctx, req.CaptchaID, req.CaptchaAngle) {
			return ErrCaptchaFailed
		}
	}

	existing, err := f.userRepo.ByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailAlreadyExists
	}

	return nil
}
