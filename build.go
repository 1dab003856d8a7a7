package godix

import (
	"errors"
	"log/slog"
)

// BuildAndValidate runs the duplicate report (when reporting is non-nil),
// builds the provider and validates its exclusivity declarations.
//
// Duplicate reports never stop the build. A failed validation closes the
// provider and returns the ExclusivityError; match it with
// errors.Is(err, ErrExclusivityViolation).
//
//	provider, err := godix.BuildAndValidate(collection, &godix.ProviderOptions{ValidateScopes: true}, reporting)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
func BuildAndValidate(c Collection, options *ProviderOptions, reporting *ReportConfig) (Provider, error) {
	if c == nil {
		return nil, ErrCollectionNil
	}

	var logger *slog.Logger
	if options != nil {
		logger = options.Logger
	}

	if reporting != nil {
		if err := reporting.report(c, logger); err != nil {
			return nil, err
		}
	}

	p, err := c.BuildWithOptions(options)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := NewValidator(p, WithValidatorLogger(logger)).Validate(); err != nil {
		if closeErr := p.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}

		logger.Error("service provider validation failed", slog.String("provider", p.ID()), slog.Any("error", err))

		return nil, err
	}

	return p, nil
}
