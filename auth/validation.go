package auth

import (
	"net/mail"
	"regexp"
	"strings"

	apperrors "github.com/jrsteele09/dietitian-server/internal/errors"
	"github.com/jrsteele09/dietitian-server/users"
)

var (
	subdomainPattern  = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{1,61}[a-z0-9])$`)
	nationalIDPattern = regexp.MustCompile(`^[1-9][0-9]{10}$`)
)

var reservedSubdomains = map[string]struct{}{
	"www": {}, "api": {}, "app": {}, "admin": {}, "mail": {}, "static": {},
}

// fieldErrors collects per-field validation messages.
type fieldErrors map[string]string

func (fe fieldErrors) add(field, msg string) {
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

func (fe fieldErrors) err() error {
	if len(fe) == 0 {
		return nil
	}
	return apperrors.Validation("Validation failed", fe)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(fe fieldErrors, field, email string) {
	if email == "" {
		fe.add(field, "email is required")
		return
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		fe.add(field, "invalid email format")
	}
}

func validatePassword(fe fieldErrors, field, password string) {
	if err := users.ValidatePasswordStrength(password); err != nil {
		fe.add(field, err.Error())
	}
}

func validateName(fe fieldErrors, field, name string, max int) {
	name = strings.TrimSpace(name)
	switch {
	case len(name) < 2:
		fe.add(field, "must be at least 2 characters")
	case len(name) > max:
		fe.add(field, "is too long")
	}
}

// ValidateSubdomain checks the subdomain is 3 to 63 lower-case letters, digits or inner hyphens.
func ValidateSubdomain(subdomain string) error {
	fe := fieldErrors{}
	validateSubdomain(fe, subdomain)
	return fe.err()
}

func validateSubdomain(fe fieldErrors, subdomain string) {
	if !subdomainPattern.MatchString(subdomain) {
		fe.add("subdomain", "must be 3-63 lower-case letters, digits or hyphens")
		return
	}
	if _, reserved := reservedSubdomains[subdomain]; reserved {
		fe.add("subdomain", "is reserved")
	}
}

// ValidateNationalID checks an 11 digit national identity number including its two check digits.
func ValidateNationalID(id string) bool {
	if !nationalIDPattern.MatchString(id) {
		return false
	}
	d := make([]int, 11)
	for i, c := range id {
		d[i] = int(c - '0')
	}
	odd := d[0] + d[2] + d[4] + d[6] + d[8]
	even := d[1] + d[3] + d[5] + d[7]
	if ((odd*7-even)%10+10)%10 != d[9] {
		return false
	}
	sum := 0
	for _, v := range d[:10] {
		sum += v
	}
	return sum%10 == d[10]
}

func (r *RegisterRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
	r.Subdomain = strings.ToLower(strings.TrimSpace(r.Subdomain))
	r.OrganizationName = strings.TrimSpace(r.OrganizationName)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.NationalID = strings.TrimSpace(r.NationalID)
}

// Validate checks a normalized registration request.
func (r *RegisterRequest) Validate() error {
	fe := fieldErrors{}
	validateName(fe, "organizationName", r.OrganizationName, 100)
	validateSubdomain(fe, r.Subdomain)
	validateEmail(fe, "email", r.Email)
	validatePassword(fe, "password", r.Password)
	validateName(fe, "firstName", r.FirstName, 50)
	validateName(fe, "lastName", r.LastName, 50)
	if r.NationalID != "" && !ValidateNationalID(r.NationalID) {
		fe.add("nationalId", "invalid national ID")
	}
	if !r.AcceptTerms {
		fe.add("acceptTerms", "terms of service must be accepted")
	}
	if !r.AcceptPrivacy {
		fe.add("acceptPrivacy", "privacy policy must be accepted")
	}
	if !r.AcceptDataProcessing {
		fe.add("acceptDataProcessing", "consent to data processing is required")
	}
	return fe.err()
}

func (r *LoginRequest) Validate() error {
	fe := fieldErrors{}
	if r.Email == "" {
		fe.add("email", "email is required")
	}
	if r.Password == "" {
		fe.add("password", "password is required")
	}
	return fe.err()
}

func (r *ChangePasswordRequest) Validate() error {
	fe := fieldErrors{}
	if r.CurrentPassword == "" {
		fe.add("currentPassword", "current password is required")
	}
	validatePassword(fe, "newPassword", r.NewPassword)
	if r.CurrentPassword != "" && r.CurrentPassword == r.NewPassword {
		fe.add("newPassword", "new password must differ from the current password")
	}
	return fe.err()
}

func (r *ResetPasswordRequest) Validate() error {
	fe := fieldErrors{}
	if strings.TrimSpace(r.Token) == "" {
		fe.add("token", "token is required")
	}
	validatePassword(fe, "password", r.Password)
	return fe.err()
}
