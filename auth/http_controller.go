package auth

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RefreshCookieName is the cookie carrying the refresh token between
// the browser and the refresh endpoint.
const RefreshCookieName = "refreshtoken"

// RefreshCookiePath scopes the refresh cookie so the browser only
// attaches it to the refresh endpoint, never to ordinary API calls.
const RefreshCookiePath = "/api/refresh_token"

// ContextKey is the fiber locals key under which the auth middleware
// stores the verified session claims.
const ContextKey = "user"

// Controller exposes the authentication lifecycle as a JSON API.
type Controller struct {
	Debug  bool
	Logger Logger

	auther     *Authenticator
	refreshTTL time.Duration
}

// ControllerOption configures the controller.
type ControllerOption func(*Controller)

// WithControllerLogger overrides the default logger.
func WithControllerLogger(l Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithDebug enables payload dumps on stdout.
func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) { c.Debug = debug }
}

// WithRefreshCookieTTL sets the refresh cookie lifetime. Should match
// the refresh token TTL.
func WithRefreshCookieTTL(ttl time.Duration) ControllerOption {
	return func(c *Controller) {
		if ttl > 0 {
			c.refreshTTL = ttl
		}
	}
}

// NewController creates a new Controller instance
func NewController(auther *Authenticator, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:     defLogger{},
		auther:     auther,
		refreshTTL: DefaultRefreshTTL,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// RegisterRoutes mounts the authentication endpoints on the given
// router group. protect is the middleware guarding the endpoints that
// need a live access token.
func (a *Controller) RegisterRoutes(api fiber.Router, protect fiber.Handler) {
	api.Post("/register", a.Register)
	api.Post("/active", a.Activate)
	api.Post("/login", a.Login)
	api.Get("/logout", protect, a.Logout)
	api.Get("/refresh_token", a.Refresh)
	api.Post("/google_login", a.GoogleLogin)
	api.Post("/login_sms", a.SMSLoginStart)
	api.Post("/sms_verify", a.SMSLoginVerify)
	api.Post("/forgot_password", a.ForgotPassword)
	api.Patch("/reset_password", protect, a.ResetPassword)
}

// ClaimsFromContext returns the session claims stored by the auth
// middleware, or an error if the request was not authenticated.
func ClaimsFromContext(c *fiber.Ctx) (*SessionClaims, error) {
	claims, ok := c.Locals(ContextKey).(*SessionClaims)
	if !ok || claims == nil {
		return nil, ErrInvalidCredential.Clone()
	}
	return claims, nil
}

// RegisterPayload is the registration request body.
type RegisterPayload struct {
	Name     string `json:"name" form:"name"`
	Account  string `json:"account" form:"account"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&r.Account, validation.Required, validation.By(validIdentifier)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func validIdentifier(value any) error {
	s, _ := value.(string)
	if Classify(s) == ChannelUnknown {
		return fmt.Errorf("must be an email address or a phone number")
	}
	return nil
}

func validPhone(value any) error {
	s, _ := value.(string)
	if Classify(s) != ChannelPhone {
		return fmt.Errorf("must be a phone number in international format")
	}
	return nil
}

func (a *Controller) Register(c *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondValidation(c, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	channel, err := a.auther.Register(c.Context(), payload.Name, payload.Account, payload.Password)
	if err != nil {
		return respondError(c, err)
	}

	message := "please check your email to activate your account"
	if channel == ChannelPhone {
		message = "please check your phone to activate your account"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": message})
}

// ActivatePayload carries the activation token back from the client.
type ActivatePayload struct {
	ActiveToken string `json:"active_token" form:"active_token"`
}

// Validate will run validation rules
func (r ActivatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ActiveToken, validation.Required),
	)
}

func (a *Controller) Activate(c *fiber.Ctx) error {
	payload := new(ActivatePayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondValidation(c, err)
	}

	user, err := a.auther.Activate(c.Context(), payload.ActiveToken)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "your account has been activated",
		"user":    user,
	})
}

// LoginPayload is the password login request body.
type LoginPayload struct {
	Account  string `json:"account" form:"account"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Account, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondValidation(c, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	session, err := a.auther.Login(c.Context(), payload.Account, payload.Password)
	if err != nil {
		return respondError(c, err)
	}

	return a.respondSession(c, session)
}

func (a *Controller) Logout(c *fiber.Ctx) error {
	claims, err := ClaimsFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := a.auther.Logout(c.Context(), claims.UserID()); err != nil {
		return respondError(c, err)
	}

	a.clearRefreshCookie(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "logged out"})
}

func (a *Controller) Refresh(c *fiber.Ctx) error {
	raw := c.Cookies(RefreshCookieName)
	if raw == "" {
		return respondError(c, ErrInvalidCredential.Clone())
	}

	session, err := a.auther.Refresh(c.Context(), raw)
	if err != nil {
		return respondError(c, err)
	}

	return a.respondSession(c, session)
}

// GoogleLoginPayload carries the provider ID token.
type GoogleLoginPayload struct {
	IDToken string `json:"id_token" form:"id_token"`
}

// Validate will run validation rules
func (r GoogleLoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDToken, validation.Required),
	)
}

func (a *Controller) GoogleLogin(c *fiber.Ctx) error {
	payload := new(GoogleLoginPayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondValidation(c, err)
	}

	session, err := a.auther.GoogleLogin(c.Context(), payload.IDToken)
	if err != nil {
		return respondError(c, err)
	}

	return a.respondSession(c, session)
}

// SMSStartPayload requests a one-time code.
type SMSStartPayload struct {
	Phone string `json:"phone" form:"phone"`
}

// Validate will run validation rules
func (r SMSStartPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required, validation.By(validPhone)),
	)
}

func (a *Controller) SMSLoginStart(c *fiber.Ctx) error {
	payload := new(SMSStartPayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondValidation(c, err)
	}

	if _, err := a.auther.SMSLoginStart(c.Context(), payload.Phone); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "verification code sent"})
}

// SMSVerifyPayload presents a one-time code back.
type SMSVerifyPayload struct {
	Phone string `json:"phone" form:"phone"`
	Code  string `json:"code" form:"code"`
}

// Validate will run validation rules
func (r SMSVerifyPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required, validation.By(validPhone)),
		validation.Field(&r.Code, validation.Required, is.Digit),
	)
}

func (a *Controller) SMSLoginVerify(c *fiber.Ctx) error {
	payload := new(SMSVerifyPayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondValidation(c, err)
	}

	session, err := a.auther.SMSLoginVerify(c.Context(), payload.Phone, payload.Code)
	if err != nil {
		return respondError(c, err)
	}

	return a.respondSession(c, session)
}

// ForgotPasswordPayload requests a reset link.
type ForgotPasswordPayload struct {
	Account string `json:"account" form:"account"`
}

// Validate will run validation rules
func (r ForgotPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Account, validation.Required),
	)
}

func (a *Controller) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondValidation(c, err)
	}

	channel, err := a.auther.ForgotPassword(c.Context(), payload.Account)
	if err != nil {
		return respondError(c, err)
	}

	message := "please check your email to reset your password"
	if channel == ChannelPhone {
		message = "please check your phone to reset your password"
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": message})
}

// ResetPasswordPayload carries the replacement password.
type ResetPasswordPayload struct {
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *Controller) ResetPassword(c *fiber.Ctx) error {
	claims, err := ClaimsFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	payload := new(ResetPasswordPayload)

	if err := c.BodyParser(payload); err != nil {
		return respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return respondValidation(c, err)
	}

	if err := a.auther.ResetPassword(c.Context(), claims.UserID(), payload.Password); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "your password has been updated"})
}

// respondSession writes the session body and mirrors the refresh token
// into the path-scoped cookie. The token never appears in the JSON body.
func (a *Controller) respondSession(c *fiber.Ctx, session *Session) error {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    session.RefreshToken,
		Path:     RefreshCookiePath,
		MaxAge:   int(a.refreshTTL.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Status(fiber.StatusOK).JSON(session)
}

func (a *Controller) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func respondValidation(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": err.Error(),
		"code":    "validation_failed",
	})
}

// respondError maps a rich error onto its HTTP status and a compact
// JSON body. Anything without a code is a 500 with a generic message.
func respondError(c *fiber.Ctx, err error) error {
	var rich *errors.Error
	if errors.As(err, &rich) {
		status := int(rich.Code)
		if status < 400 || status > 599 {
			status = fiber.StatusInternalServerError
		}

		message := rich.Message
		if status == fiber.StatusInternalServerError {
			message = "internal server error"
		}

		return c.Status(status).JSON(fiber.Map{
			"message": message,
			"code":    rich.TextCode,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "internal server error",
	})
}
