package validators

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/stripe-payments/pkg/errors"
)

// ParseUUID parses a path, query or body value naming field.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, field+" is required").WithDetails(map[string]any{"field": field})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, field+" must be a uuid").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

// ParseOptionalBool returns nil for an absent value so callers can fall back
// to a configured default.
func ParseOptionalBool(raw, field string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	switch strings.ToLower(raw) {
	case "on", "yes":
		v := true
		return &v, nil
	case "off", "no":
		v := false
		return &v, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a boolean").WithDetails(map[string]any{"field": field})
	}
	return &v, nil
}
