package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrRunNotFound struct {
	error
}

func NewErrRunNotFound(id uuid.UUID) *ErrRunNotFound {
	return &ErrRunNotFound{fmt.Errorf("run %s not found", id)}
}

type ErrRunNotTerminal struct {
	error
}

func NewErrRunNotTerminal(id uuid.UUID, status string) *ErrRunNotTerminal {
	return &ErrRunNotTerminal{fmt.Errorf("run %s has not finished yet, current status: %s", id, status)}
}

type ErrInvalidRequest struct {
	error
}

func NewErrInvalidRequest(message string) *ErrInvalidRequest {
	return &ErrInvalidRequest{fmt.Errorf("bad request: %s", message)}
}
