package lookup

import "github.com/polarityio/pulsedive/internal/entity"

// MissingAPIKeyMessage is reported when no API key was configured
const MissingAPIKeyMessage = "You must provide a PulseDive API key"

// ValidateOptions checks raw options before they are saved. The API key
// must be a non-empty string.
func ValidateOptions(raw entity.RawOptions) []entity.ValidationError {
	errs := []entity.ValidationError{}

	key, ok := raw["apiKey"].Value.(string)
	if !ok || key == "" {
		errs = append(errs, entity.ValidationError{
			Key:     "apiKey",
			Message: MissingAPIKeyMessage,
		})
	}

	return errs
}
