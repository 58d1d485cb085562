package purchases

import (
	"errors"
	"fmt"

	pkgerrors "github.com/vtuhub/walletledger/pkg/errors"
)

var (
	ErrDuplicateReference = errors.New("duplicate purchase reference")
	ErrOrderNotFound      = errors.New("purchase order not found")
	ErrReferenceConflict  = errors.New("purchase reference belongs to another account")
)

func notFound(id string) error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOrderNotFound, fmt.Sprintf("purchase order %s not found", id))
}

func validation(message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message)
}
