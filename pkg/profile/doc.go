// Package profile changes the account password.
//
// The current password must verify against the stored hash before the new
// one is hashed and saved. Other sessions of the same user are left alone.
package profile
