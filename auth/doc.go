// Copyright (c) 2025 Lodestar App.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides session tokens, password hashing, and ID generation.

# Session Tokens

Session tokens are HS256 JWTs carrying the user ID as "sub":

	svc := auth.NewTokenService(secret, 0)
	token, err := svc.GenerateToken(userID, email)
	userID, err := svc.ValidateToken(token)

Validation checks the exact signing algorithm to prevent algorithm
confusion attacks.

# Passwords

Passwords are bcrypt hashed at the default cost:

	hash, err := auth.HashPassword(password)
	ok := auth.CheckPassword(password, hash)

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
