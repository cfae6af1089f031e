package services

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/folio/pkg/errors"
)

var (
	// ErrInviteNotFound indicates no invite matches the provided token.
	ErrInviteNotFound = apperrors.New("INVITE_NOT_FOUND", "This invitation link is not valid", http.StatusNotFound)
	// ErrInviteAlreadyUsed signals that the invite has already been redeemed.
	ErrInviteAlreadyUsed = apperrors.New("INVITE_ALREADY_USED", "This invitation has already been used", http.StatusConflict)
	// ErrInviteExpired indicates the invite is past its expiry.
	ErrInviteExpired = apperrors.New("INVITE_EXPIRED", "This invitation has expired", http.StatusGone)

	ErrExtensionNotFound        = apperrors.New("EXTENSION_NOT_FOUND", "Extension request not found", http.StatusNotFound)
	ErrExtensionAlreadyReviewed = apperrors.New("EXTENSION_ALREADY_REVIEWED", "This request has already been reviewed", http.StatusConflict)
	ErrExtensionAlreadyPending  = apperrors.New("EXTENSION_ALREADY_PENDING", "You already have a pending extension request", http.StatusConflict)
	// ErrNothingToReconcile is returned when an approved request already matches the user's window.
	ErrNothingToReconcile = apperrors.New("NOTHING_TO_RECONCILE", "The approved grant is already applied", http.StatusConflict)

	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)

	ErrReasonTooShort      = apperrors.NewValidation("Please provide a reason of at least 10 characters")
	ErrPasswordTooShort    = apperrors.NewValidation("Password must be at least 8 characters")
	ErrPasswordMismatch    = apperrors.NewValidation("Passwords do not match")
	ErrEmailTaken          = apperrors.NewValidation("An account with this email already exists")
	ErrInvalidDecision     = apperrors.NewValidation("Decision must be approved or denied")
	ErrCurrentPassword     = apperrors.NewValidation("Current password is incorrect")
	ErrInvalidSettingValue = apperrors.NewValidation("Value must be a JSON object")

	// ErrAdminExists blocks first-run setup once an administrator is present.
	ErrAdminExists = apperrors.New("SETUP_COMPLETE", "An administrator already exists", http.StatusConflict)
	// ErrAdminNotAllowed is returned for company-only operations attempted by the admin.
	ErrAdminNotAllowed = apperrors.ErrForbidden.WithMessage("Administrators cannot perform this action")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique") || strings.Contains(lower, "duplicate")
}
