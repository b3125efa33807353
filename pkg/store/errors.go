package store

import "errors"

// Store errors
var (
	// ErrInvalidInput 无效输入
	ErrInvalidInput = errors.New("invalid input")
	// ErrConnectionFailed 连接失败
	ErrConnectionFailed = errors.New("connection failed")
)
