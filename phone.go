package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is the region used to interpret local phone numbers
// (the portal serves Vietnamese guardians dialing 09x numbers).
const DefaultPhoneRegion = "VN"

// NormalizePhone validates a raw phone number and normalizes it to the E.164
// form the verification providers expect. Region defaults to
// DefaultPhoneRegion when not provided.
func NormalizePhone(raw string, region ...string) (string, error) {
	if err := validation.Validate(raw, validation.Required, validation.Length(8, 17)); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "phone number failed validation").
			WithTextCode(TextCodeInvalidCredentials)
	}

	reg := DefaultPhoneRegion
	if len(region) > 0 && region[0] != "" {
		reg = region[0]
	}

	parsed, err := phonenumbers.Parse(raw, reg)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "phone number could not be parsed").
			WithTextCode(TextCodeInvalidCredentials)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return "", goerrors.New("phone number is not valid for region "+reg, goerrors.CategoryValidation).
			WithTextCode(TextCodeInvalidCredentials)
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
