package domain

import "errors"

// State machine violations. These are expected business outcomes and are
// reported to callers with their code.
var (
	ErrAlreadyAccepted    = errors.New("already_accepted")
	ErrAlreadyRejected    = errors.New("already_rejected")
	ErrExpired            = errors.New("expired")
	ErrDepositRequired    = errors.New("deposit_required")
	ErrInvalidDeposit     = errors.New("invalid_deposit")
	ErrDepositAlreadyPaid = errors.New("deposit_already_paid")
	ErrNotReopenable      = errors.New("not_reopenable")
	ErrNotEditable        = errors.New("not_editable")
	ErrAlreadyConverted   = errors.New("already_converted")
	ErrNotAccepted        = errors.New("not_accepted")
	ErrConcurrentUpdate   = errors.New("concurrent_update")
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidClient       = errors.New("invalid_client")
	ErrInvalidJob          = errors.New("invalid_job")
	ErrInvalidLineItem     = errors.New("invalid_line_item")
	ErrInvalidValidUntil   = errors.New("invalid_valid_until")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("not_found")
)
