package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/bloggen/bloggen_backend/middleware"
	"github.com/bloggen/bloggen_backend/models"
	"github.com/bloggen/bloggen_backend/repositories"
	"github.com/bloggen/bloggen_backend/services"
	"github.com/bloggen/bloggen_backend/utils"
)

const rememberMeValidity = 30 * 24 * time.Hour

// AuthController contains registration, login and account recovery logic
type AuthController struct {
	users  repositories.UserRepository
	otp    *services.OTPService
	redis  *redis.Client
	logger *log.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(users repositories.UserRepository, otp *services.OTPService, redisClient *redis.Client) *AuthController {
	return &AuthController{
		users:  users,
		otp:    otp,
		redis:  redisClient,
		logger: log.New(os.Stdout, "[AUTH] ", log.LstdFlags),
	}
}

// mobileAccountCap returns how many accounts may share one mobile number.
// Default is 1, i.e. the mobile number is unique; MOBILE_ACCOUNT_CAP raises
// it for deployments that allow family accounts.
func mobileAccountCap() int64 {
	if capStr := os.Getenv("MOBILE_ACCOUNT_CAP"); capStr != "" {
		if n, err := strconv.ParseInt(capStr, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return 1
}

// validationMessage maps a request validation failure to the handler's
// client-facing message. Format failures get their own text, everything else
// falls back to the handler's required-fields message.
func validationMessage(err error, requiredMsg string) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return requiredMsg
	}
	switch fieldErrors[0].Tag() {
	case "email":
		return "Invalid email format"
	case "min":
		return "Password must be at least 6 characters long"
	default:
		return requiredMsg
	}
}

// checkRegistrationConflicts reports the first uniqueness conflict in the
// order username, email, mobile. An empty message means no conflict.
func (ac *AuthController) checkRegistrationConflicts(ctx context.Context, username, email, mobile string) (string, error) {
	existing, err := ac.users.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "Username already exists", nil
	}

	existing, err = ac.users.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "Email already exists", nil
	}

	count, err := ac.users.CountByMobile(ctx, mobile)
	if err != nil {
		return "", err
	}
	if count >= mobileAccountCap() {
		return "Mobile number already registered", nil
	}

	return "", nil
}

// SendOTP issues a registration OTP after validating that the requested
// username, email and mobile are still free
func (ac *AuthController) SendOTP(c echo.Context) error {
	var req models.SendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	req.Mobile = utils.SanitizeInput(req.Mobile)
	req.Username = utils.SanitizeInput(req.Username)

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: validationMessage(err, "Mobile, email, and username are required"),
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}
	req.Email = email

	if !utils.IsValidE164(req.Mobile) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid mobile number format. Expected E.164 format (e.g., +14155552671).",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conflict, err := ac.checkRegistrationConflicts(ctx, req.Username, req.Email, req.Mobile)
	if err != nil {
		ac.logger.Printf("Database error during send-otp: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if conflict != "" {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: conflict,
		})
	}

	if ac.redis != nil {
		if err := utils.ValidateOTPAttempts(ctx, req.Mobile, ac.redis); err != nil {
			ac.logger.Printf("OTP throttled for %s: %v", req.Mobile, err)
			return c.JSON(http.StatusTooManyRequests, models.Response{
				Status:  http.StatusTooManyRequests,
				Message: "Too many OTP requests, please try again later",
			})
		}
	}

	if _, err := ac.otp.Issue(ctx, req.Mobile); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send OTP SMS",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "OTP sent successfully",
	})
}

// Register verifies the submitted OTP and creates the user account
func (ac *AuthController) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	req.FirstName = utils.SanitizeInput(req.FirstName)
	req.LastName = utils.SanitizeInput(req.LastName)
	req.Mobile = utils.SanitizeInput(req.Mobile)
	req.Username = utils.SanitizeInput(req.Username)

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: validationMessage(err, "All required fields must be filled"),
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email format",
		})
	}
	req.Email = email

	// The OTP message does not distinguish wrong from expired, so an
	// attacker cannot probe which codes were ever issued.
	if !ac.otp.Verify(req.Mobile, req.OTP) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid or expired OTP",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	conflict, err := ac.checkRegistrationConflicts(ctx, req.Username, req.Email, req.Mobile)
	if err != nil {
		ac.logger.Printf("Database error during registration: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if conflict != "" {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: conflict,
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error hashing password",
		})
	}

	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Mobile:      req.Mobile,
		DateOfBirth: req.DateOfBirth,
		Username:    req.Username,
		Password:    string(hashedPassword),
	}

	userID, err := ac.users.Insert(ctx, &user)
	if err != nil {
		ac.logger.Printf("Failed to insert user %s: %v", req.Username, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create user",
		})
	}

	// Welcome mail is best effort; registration already succeeded
	go func(to, username string) {
		if err := utils.SendWelcomeEmail(to, username); err != nil {
			ac.logger.Printf("Failed to send welcome email to %s: %v", to, err)
		}
	}(user.Email, user.Username)

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "User created successfully",
		Data: map[string]interface{}{
			"userId": userID.Hex(),
		},
	})
}

// Login authenticates a user by username and password and issues a session
// token
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Username and password are required",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := ac.users.FindByUsername(ctx, req.Username)
	if err != nil {
		ac.logger.Printf("Database error during login: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	// Unknown user and wrong password are indistinguishable on purpose
	if user == nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid credentials",
		})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid credentials",
		})
	}

	token, err := middleware.GenerateJWT(user.ID.Hex(), user.Username, user.Email)
	if err != nil {
		ac.logger.Printf("Failed to generate session token: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate session token",
		})
	}

	data := map[string]interface{}{
		"id":       user.ID.Hex(),
		"username": user.Username,
		"token":    token,
	}

	if req.RememberMe && ac.redis != nil {
		rememberToken := utils.GenerateRememberMeToken()
		credentials := utils.RememberedCredentials{
			Username:   user.Username,
			UserID:     user.ID.Hex(),
			ExpiresAt:  time.Now().Add(rememberMeValidity),
			DeviceInfo: c.Request().UserAgent(),
		}
		if err := utils.StoreRememberedCredentials(ac.redis, rememberToken, credentials, rememberMeValidity); err != nil {
			ac.logger.Printf("Failed to store remember-me credentials: %v", err)
		} else {
			data["rememberMeToken"] = rememberToken
		}
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data:    data,
	})
}

// RecoverySendOTP issues a recovery OTP to an already registered mobile
// number
func (ac *AuthController) RecoverySendOTP(c echo.Context) error {
	var req models.RecoverySendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	req.Mobile = utils.SanitizeInput(req.Mobile)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Mobile number is required",
		})
	}

	if !utils.IsValidE164(req.Mobile) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid mobile number format. Expected E.164 format (e.g., +14155552671).",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := ac.users.FindByMobile(ctx, req.Mobile)
	if err != nil {
		ac.logger.Printf("Database error during recovery send-otp: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "No account found with this mobile number.",
		})
	}

	if ac.redis != nil {
		if err := utils.ValidateOTPAttempts(ctx, req.Mobile, ac.redis); err != nil {
			ac.logger.Printf("OTP throttled for %s: %v", req.Mobile, err)
			return c.JSON(http.StatusTooManyRequests, models.Response{
				Status:  http.StatusTooManyRequests,
				Message: "Too many OTP requests, please try again later",
			})
		}
	}

	if _, err := ac.otp.Issue(ctx, req.Mobile); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send OTP SMS",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "OTP sent successfully for account recovery",
	})
}

// RecoveryGetUsername reveals the username behind a mobile number after OTP
// verification
func (ac *AuthController) RecoveryGetUsername(c echo.Context) error {
	var req models.GetUsernameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	req.Mobile = utils.SanitizeInput(req.Mobile)
	req.OTP = utils.SanitizeInput(req.OTP)

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Mobile and OTP are required",
		})
	}

	if !ac.otp.Verify(req.Mobile, req.OTP) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid or expired OTP",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	user, err := ac.users.FindByMobile(ctx, req.Mobile)
	if err != nil {
		ac.logger.Printf("Database error during get-username: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found.",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Username retrieved successfully",
		Data: map[string]interface{}{
			"username": user.Username,
		},
	})
}

// RecoveryResetPassword overwrites the stored password hash after OTP
// verification
func (ac *AuthController) RecoveryResetPassword(c echo.Context) error {
	var req models.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	req.Mobile = utils.SanitizeInput(req.Mobile)
	req.OTP = utils.SanitizeInput(req.OTP)

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: validationMessage(err, "Mobile, OTP, and new password are required"),
		})
	}

	if !ac.otp.Verify(req.Mobile, req.OTP) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid or expired OTP",
		})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Error hashing password",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	matched, err := ac.users.UpdatePassword(ctx, req.Mobile, string(hashedPassword))
	if err != nil {
		ac.logger.Printf("Database error during reset-password: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}
	if !matched {
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "User not found.",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Password reset successfully",
	})
}

// ValidateToken lets the front end check whether a session token is still
// usable
func (ac *AuthController) ValidateToken(c echo.Context) error {
	var req models.ValidateTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Token is required",
		})
	}

	claims, err := middleware.ParseJWT(req.Token)
	if err != nil {
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Token is not valid",
			Data: map[string]interface{}{
				"valid": false,
			},
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Token is valid",
		Data: map[string]interface{}{
			"valid":    true,
			"userId":   claims.UserID,
			"username": claims.Username,
		},
	})
}
