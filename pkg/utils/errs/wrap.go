// Package errs chains sentinel errors with their underlying cause so both
// stay matchable via errors.Is.
package errs

import "fmt"

// Wrap layers base over ext, keeping both in the error chain.
func Wrap(base, ext error) error {
	return fmt.Errorf("%w: %w", base, ext)
}

// Wrapf annotates base with a plain string that carries no error identity.
func Wrapf(base error, str string) error {
	return fmt.Errorf("%w: %s", base, str)
}
