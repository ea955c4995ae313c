package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/bloggen/bloggen_backend/middleware"
	"github.com/bloggen/bloggen_backend/models"
	"github.com/bloggen/bloggen_backend/services"
)

type fakeUserRepo struct {
	users []*models.User
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	for _, u := range f.users {
		if u.Mobile == mobile {
			copy := *u
			return &copy, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) CountByMobile(ctx context.Context, mobile string) (int64, error) {
	var count int64
	for _, u := range f.users {
		if u.Mobile == mobile {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserRepo) Insert(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copy := *user
	f.users = append(f.users, &copy)
	return user.ID, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, mobile, hashedPassword string) (bool, error) {
	for _, u := range f.users {
		if u.Mobile == mobile {
			u.Password = hashedPassword
			return true, nil
		}
	}
	return false, nil
}

type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

type recordingSMS struct {
	lastMobile string
	lastCode   string
	calls      int
	err        error
}

func (r *recordingSMS) SendOTP(ctx context.Context, mobile, code string) error {
	r.calls++
	r.lastMobile = mobile
	r.lastCode = code
	return r.err
}

func newAuthTestServer() (*echo.Echo, *fakeUserRepo, *recordingSMS, *AuthController) {
	users := &fakeUserRepo{}
	sms := &recordingSMS{}
	ac := NewAuthController(users, services.NewOTPService(sms), nil)

	e := echo.New()
	e.Validator = &requestValidator{validator: validator.New()}
	e.POST("/api/auth/register", ac.Register)
	e.POST("/api/auth/send-otp", ac.SendOTP)
	e.POST("/api/auth/login", ac.Login)
	e.POST("/api/auth/validate-token", ac.ValidateToken)
	e.POST("/api/auth/recovery/send-otp", ac.RecoverySendOTP)
	e.POST("/api/auth/recovery/get-username", ac.RecoveryGetUsername)
	e.POST("/api/auth/recovery/reset-password", ac.RecoveryResetPassword)
	return e, users, sms, ac
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func addUser(users *fakeUserRepo, username, email, mobile, password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: username,
		Email:    email,
		Mobile:   mobile,
		Password: string(hash),
	}
	users.users = append(users.users, user)
	return user
}

func TestSendOTP(t *testing.T) {
	e, users, sms, _ := newAuthTestServer()

	rec := doJSON(e, http.MethodPost, "/api/auth/send-otp",
		`{"mobile":"+14155552671","email":"alice@example.com","username":"alice"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sms.calls)
	assert.Equal(t, "+14155552671", sms.lastMobile)
	assert.Regexp(t, `^\d{6}$`, sms.lastCode)

	// Local digits without the + prefix are rejected
	rec = doJSON(e, http.MethodPost, "/api/auth/send-otp",
		`{"mobile":"1234567","email":"alice@example.com","username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An existing username is reported before any SMS goes out
	addUser(users, "bob", "bob@example.com", "+14155552672", "password1")
	rec = doJSON(e, http.MethodPost, "/api/auth/send-otp",
		`{"mobile":"+14155552673","email":"new@example.com","username":"bob"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already exists", decodeResponse(t, rec).Message)
	assert.Equal(t, 1, sms.calls)
}

func TestSendOTPRejectsBadEmail(t *testing.T) {
	e, _, sms, _ := newAuthTestServer()

	rec := doJSON(e, http.MethodPost, "/api/auth/send-otp",
		`{"mobile":"+14155552671","email":"not-an-email","username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email format", decodeResponse(t, rec).Message)
	assert.Equal(t, 0, sms.calls)
}

func TestSendOTPDeliveryFailure(t *testing.T) {
	e, _, sms, _ := newAuthTestServer()
	sms.err = fmt.Errorf("gateway down")

	rec := doJSON(e, http.MethodPost, "/api/auth/send-otp",
		`{"mobile":"+14155552671","email":"alice@example.com","username":"alice"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to send OTP SMS", decodeResponse(t, rec).Message)
}

func TestRegisterFlow(t *testing.T) {
	e, users, sms, _ := newAuthTestServer()

	rec := doJSON(e, http.MethodPost, "/api/auth/send-otp",
		`{"mobile":"+14155552671","email":"alice@example.com","username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	registerBody := func(otp string) string {
		return fmt.Sprintf(`{"firstName":"Alice","lastName":"Smith","email":"alice@example.com",
			"mobile":"+14155552671","dob":"1990-05-01","username":"alice","password":"hunter22","otp":"%s"}`, otp)
	}

	// Wrong code is rejected and does not burn the real one
	rec = doJSON(e, http.MethodPost, "/api/auth/register", registerBody("000000"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired OTP", decodeResponse(t, rec).Message)

	rec = doJSON(e, http.MethodPost, "/api/auth/register", registerBody(sms.lastCode))
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.NotEmpty(t, data["userId"])

	require.Len(t, users.users, 1)
	stored := users.users[0]
	assert.Equal(t, "alice", stored.Username)
	assert.Equal(t, "+14155552671", stored.Mobile)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter22")))

	// The code was consumed by the successful registration
	rec = doJSON(e, http.MethodPost, "/api/auth/register", registerBody(sms.lastCode))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired OTP", decodeResponse(t, rec).Message)
}

func TestRegisterConflicts(t *testing.T) {
	e, users, _, ac := newAuthTestServer()
	addUser(users, "alice", "alice@example.com", "+14155552671", "password1")

	issue := func(mobile string) string {
		code, err := ac.otp.Issue(context.Background(), mobile)
		require.NoError(t, err)
		return code
	}

	// Username conflict wins over email and mobile
	code := issue("+14155552672")
	rec := doJSON(e, http.MethodPost, "/api/auth/register", fmt.Sprintf(
		`{"firstName":"Eve","email":"eve@example.com","mobile":"+14155552672","dob":"1991-01-01",
		"username":"alice","password":"hunter22","otp":"%s"}`, code))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already exists", decodeResponse(t, rec).Message)

	code = issue("+14155552672")
	rec = doJSON(e, http.MethodPost, "/api/auth/register", fmt.Sprintf(
		`{"firstName":"Eve","email":"alice@example.com","mobile":"+14155552672","dob":"1991-01-01",
		"username":"eve","password":"hunter22","otp":"%s"}`, code))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already exists", decodeResponse(t, rec).Message)

	code = issue("+14155552671")
	rec = doJSON(e, http.MethodPost, "/api/auth/register", fmt.Sprintf(
		`{"firstName":"Eve","email":"eve@example.com","mobile":"+14155552671","dob":"1991-01-01",
		"username":"eve","password":"hunter22","otp":"%s"}`, code))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Mobile number already registered", decodeResponse(t, rec).Message)
}

func TestRegisterValidation(t *testing.T) {
	e, _, _, _ := newAuthTestServer()

	rec := doJSON(e, http.MethodPost, "/api/auth/register",
		`{"firstName":"Alice","email":"alice@example.com","mobile":"+14155552671",
		"dob":"1990-05-01","username":"alice","password":"short","otp":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Password must be at least 6 characters long", decodeResponse(t, rec).Message)

	rec = doJSON(e, http.MethodPost, "/api/auth/register",
		`{"firstName":"Alice","email":"alice@example.com","mobile":"+14155552671",
		"dob":"","username":"alice","password":"hunter22","otp":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All required fields must be filled", decodeResponse(t, rec).Message)
}

func TestLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	e, users, _, _ := newAuthTestServer()
	user := addUser(users, "alice", "alice@example.com", "+14155552671", "hunter22")

	// Unknown user and wrong password produce the same answer
	rec := doJSON(e, http.MethodPost, "/api/auth/login", `{"username":"nobody","password":"hunter22"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeResponse(t, rec).Message)

	rec = doJSON(e, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeResponse(t, rec).Message)

	rec = doJSON(e, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, user.ID.Hex(), data["id"])
	assert.Equal(t, "alice", data["username"])

	claims, err := middleware.ParseJWT(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
}

func TestValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	e, _, _, _ := newAuthTestServer()

	token, err := middleware.GenerateJWT(primitive.NewObjectID().Hex(), "alice", "alice@example.com")
	require.NoError(t, err)

	rec := doJSON(e, http.MethodPost, "/api/auth/validate-token", fmt.Sprintf(`{"token":"%s"}`, token))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, "alice", data["username"])

	rec = doJSON(e, http.MethodPost, "/api/auth/validate-token", `{"token":"garbage"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, false, data["valid"])
}

func TestRecoverySendOTP(t *testing.T) {
	e, users, sms, _ := newAuthTestServer()

	rec := doJSON(e, http.MethodPost, "/api/auth/recovery/send-otp", `{"mobile":"+14155552671"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No account found with this mobile number.", decodeResponse(t, rec).Message)
	assert.Equal(t, 0, sms.calls)

	addUser(users, "alice", "alice@example.com", "+14155552671", "hunter22")
	rec = doJSON(e, http.MethodPost, "/api/auth/recovery/send-otp", `{"mobile":"+14155552671"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sms.calls)
}

func TestRecoveryGetUsername(t *testing.T) {
	e, users, sms, _ := newAuthTestServer()
	addUser(users, "alice", "alice@example.com", "+14155552671", "hunter22")

	rec := doJSON(e, http.MethodPost, "/api/auth/recovery/send-otp", `{"mobile":"+14155552671"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/recovery/get-username",
		`{"mobile":"+14155552671","otp":"000000"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/recovery/get-username",
		fmt.Sprintf(`{"mobile":"+14155552671","otp":"%s"}`, sms.lastCode))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, "alice", data["username"])
}

func TestRecoveryResetPassword(t *testing.T) {
	e, users, sms, ac := newAuthTestServer()
	addUser(users, "alice", "alice@example.com", "+14155552671", "hunter22")

	rec := doJSON(e, http.MethodPost, "/api/auth/recovery/send-otp", `{"mobile":"+14155552671"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/auth/recovery/reset-password",
		fmt.Sprintf(`{"mobile":"+14155552671","otp":"%s","newPassword":"newpassword"}`, sms.lastCode))
	require.Equal(t, http.StatusOK, rec.Code)

	stored := users.users[0]
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("newpassword")))

	// A mobile with a valid code but no account yields 404
	code, err := ac.otp.Issue(context.Background(), "+14155552672")
	require.NoError(t, err)
	rec = doJSON(e, http.MethodPost, "/api/auth/recovery/reset-password",
		fmt.Sprintf(`{"mobile":"+14155552672","otp":"%s","newPassword":"newpassword"}`, code))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found.", decodeResponse(t, rec).Message)
}
