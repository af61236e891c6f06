package domain

import "errors"

var (
	ErrInvalidID         = errors.New("invalid id")
	ErrInvalidName       = errors.New("invalid name")
	ErrInvalidTitle      = errors.New("invalid title")
	ErrInvalidDueDate    = errors.New("invalid due date")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidRepeatType = errors.New("invalid repeat type")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrInvalidHours      = errors.New("invalid hours")
	ErrInvalidUsername   = errors.New("invalid username")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrInvalidPassword   = errors.New("invalid password")
)
