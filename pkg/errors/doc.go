// Package errors provides structured error handling with error codes for the
// account security settings service.
//
// Every operation of the settings service reports one of a small set of error
// kinds, each carried as an *Error with an ErrorCode:
//
//   - ErrCodeValidationFailed: malformed input, Details maps field name to message
//   - ErrCodeForbidden: operation not valid for the current enrollment state
//   - ErrCodeInvalidCredentials: current password did not match
//   - ErrCode2FAInvalid: a TOTP or PGP proof code did not match
//   - ErrCodeInternal: persistence or capability failure
//
// # Basic Usage
//
//	err := errors.Forbidden("totp already enabled")
//	if errors.IsCode(err, errors.ErrCodeForbidden) {
//		// answer with an opaque 403
//	}
//
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
package errors
