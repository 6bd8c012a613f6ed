package handlers

import "errors"

var (
	errEmptyOwner         = errors.New("owner query parameter is required")
	errInvalidSubaccount  = errors.New("subaccount must be 64 hex characters (32 bytes)")
)
