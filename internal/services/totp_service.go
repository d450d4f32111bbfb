package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"

	"wallfloor-backend/internal/apperr"
	"wallfloor-backend/internal/auth"
	"wallfloor-backend/internal/models"
	"wallfloor-backend/internal/repositories"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpIssuer = "WallFloor"

// TOTPService handles optional authenticator-app 2FA for back-office
// accounts.
type TOTPService struct {
	UserRepo   *repositories.UserRepository
	JWTManager *auth.JWTManager
}

func NewTOTPService(userRepo *repositories.UserRepository, jwtManager *auth.JWTManager) *TOTPService {
	return &TOTPService{UserRepo: userRepo, JWTManager: jwtManager}
}

// GenerateSetup creates a new TOTP secret and QR code for enrolment.
// The secret is stored immediately but 2FA stays off until a code is
// verified.
func (s *TOTPService) GenerateSetup(ctx context.Context, user *models.User) (*models.TOTPSetupResponse, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := s.UserRepo.SetTOTPSecret(ctx, user.ID, key.Secret()); err != nil {
		return nil, err
	}

	qrImage, err := key.Image(200, 200)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, qrImage); err != nil {
		return nil, err
	}

	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		QRCode:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		Issuer:      totpIssuer,
		AccountName: user.Email,
	}, nil
}

// VerifyAndEnable turns 2FA on after the user proves the authenticator
// works
func (s *TOTPService) VerifyAndEnable(ctx context.Context, userID int, code string) error {
	user, err := s.UserRepo.Get(ctx, userID)
	if err != nil {
		return &apperr.NotFoundError{Resource: "user"}
	}
	if user.TOTPSecret == "" {
		return &apperr.StatusConflictError{Msg: "2FA setup has not been started"}
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.Validation("invalid authenticator code")
	}
	return s.UserRepo.EnableTOTP(ctx, userID)
}

// CompleteLogin exchanges a temp token plus a valid TOTP code for a
// full session token.
func (s *TOTPService) CompleteLogin(ctx context.Context, req *models.TOTPVerifyRequest) (*models.AuthResponse, error) {
	claims, err := s.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, &apperr.AuthorizationError{Msg: "invalid or expired login session"}
	}

	user, err := s.UserRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, &apperr.AuthorizationError{Msg: "invalid or expired login session"}
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return nil, &apperr.StatusConflictError{Msg: "2FA is not enabled for this account"}
	}
	if !totp.Validate(req.Code, user.TOTPSecret) {
		return nil, &apperr.AuthorizationError{Msg: "invalid authenticator code"}
	}

	token, err := s.JWTManager.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Disable turns 2FA off and clears the stored secret
func (s *TOTPService) Disable(ctx context.Context, userID int) error {
	return s.UserRepo.DisableTOTP(ctx, userID)
}
