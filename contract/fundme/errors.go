package fundme

import "errors"

var (
	ErrInsufficientValue = errors.New("FundMe__InsufficientValue: didn't send enough")
	ErrNotOwner          = errors.New("FundMe__NotOwner")
	ErrIndexOutOfRange   = errors.New("FundMe__IndexOutOfRange")
	ErrTransferFailure   = errors.New("FundMe__TransferFailure: call failed")
)
