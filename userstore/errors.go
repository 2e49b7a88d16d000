package userstore

import "github.com/MrEthical07/tokenkeeper"

var (
	ErrNotFound = tokenkeeper.ErrUserRecordNotFound
	ErrConflict = tokenkeeper.ErrUserRecordConflict
)
