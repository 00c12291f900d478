// Package twofa implements two-factor authentication enrollment and removal
// for the account security settings.
//
// Two methods are supported, and at most one may be active on an account:
//
//   - TOTP: the user scans a QR code into an authenticator app and proves
//     possession by entering a six digit code.
//   - PGP: the user supplies an OpenPGP public key, receives a random code
//     encrypted to it and proves possession by returning the decrypted code.
//
// # State
//
// Active methods live in the persisted account.Record. Candidate secrets,
// keys and codes live in a challenge.Session scoped to the user's login
// session, under the keys KeyTotpSecret, KeyPgpKey and KeyPgpCode.
//
//	NoTotp --ShowTotpEnroll--> PendingTotp --ConfirmTotpEnroll--> TotpActive
//	TotpActive --ConfirmTotpDisable--> NoTotp
//	NoPgp --ShowPgpEnroll--> PendingPgp --ConfirmPgpEnroll--> PgpActive
//	PgpActive --ShowPgpDisable--> PendingPgpDisable --ConfirmPgpDisable--> NoPgp
//
// # Usage
//
//	manager, err := twofa.NewManager(repo, totp.NewPquernaProvider("MyApp"), pgp.NewCipher(),
//		twofa.WithIssuer("MyApp"),
//		twofa.WithNotifier(noticeService),
//	)
//
//	session := challenge.Bind(store, sessionID)
//	enrollment, err := manager.ShowTotpEnroll(ctx, rec, session)
//	// render enrollment.QRCode, then later
//	err = manager.ConfirmTotpEnroll(ctx, &rec, session, twofa.CodeInput{Code: "123456"})
//
// # Errors
//
// Operations return *errors.Error values from pkg/errors:
//
//   - VALIDATION_FAILED when the input fails its field rules. Checked first.
//   - FORBIDDEN when the current 2FA state does not allow the operation.
//   - TWO_FA_INVALID when a submitted code does not match.
//   - INTERNAL_ERROR when the repository, challenge store or a crypto
//     primitive fails.
//
// Confirm operations are check-then-act without locking. Two concurrent
// confirms for the same account can both pass the state guard; the last
// write wins.
package twofa
